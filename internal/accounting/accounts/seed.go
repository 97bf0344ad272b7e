package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Chart is a chart-of-accounts seed document.
type Chart struct {
	Accounts []ChartAccount `toml:"account"`
	// Mappings binds integration keys such as CASH to account codes.
	Mappings map[string]string `toml:"mappings"`
}

// ChartAccount is one account of a seed document. Parent refers to another code.
type ChartAccount struct {
	Code     string      `toml:"code"`
	Name     string      `toml:"name"`
	Type     AccountType `toml:"type"`
	Category string      `toml:"category"`
	Parent   string      `toml:"parent"`
	System   bool        `toml:"system"`
}

// LoadChart reads a TOML chart of accounts from path.
func LoadChart(path string) (Chart, error) {
	var chart Chart
	if _, err := toml.DecodeFile(path, &chart); err != nil {
		return Chart{}, fmt.Errorf("accounts: decode chart %s: %w", path, err)
	}
	return chart, nil
}

// ParseChart reads a TOML chart of accounts from r.
func ParseChart(r io.Reader) (Chart, error) {
	var chart Chart
	if _, err := toml.NewDecoder(r).Decode(&chart); err != nil {
		return Chart{}, fmt.Errorf("accounts: decode chart: %w", err)
	}
	return chart, nil
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Created  int
	Existing int
	// IDs maps every chart code to its account id.
	IDs map[string]int64
}

// Seed creates the accounts of chart that do not exist yet. Parents may appear in any order.
func (s *Service) Seed(ctx context.Context, scope shared.Scope, chart Chart) (SeedResult, error) {
	if err := scope.Validate(); err != nil {
		return SeedResult{}, err
	}
	result := SeedResult{IDs: make(map[string]int64, len(chart.Accounts))}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pending := make([]ChartAccount, 0, len(chart.Accounts))
		for _, item := range chart.Accounts {
			item.Code = strings.TrimSpace(item.Code)
			existing, err := tx.GetByCode(ctx, scope.TenantID, item.Code)
			switch {
			case err == nil:
				result.IDs[item.Code] = existing.ID
				result.Existing++
			case errors.Is(err, shared.ErrNotFound):
				pending = append(pending, item)
			default:
				return err
			}
		}
		for len(pending) > 0 {
			var deferred []ChartAccount
			for _, item := range pending {
				in := CreateInput{Code: item.Code, Name: item.Name, Type: item.Type, Category: item.Category, IsSystem: item.System}
				if item.Parent != "" {
					parentID, ok := result.IDs[item.Parent]
					if !ok {
						deferred = append(deferred, item)
						continue
					}
					in.ParentID = &parentID
				}
				if err := in.Validate(); err != nil {
					return err
				}
				created, err := createAccount(ctx, tx, scope.TenantID, in)
				if err != nil {
					return err
				}
				result.IDs[created.Code] = created.ID
				result.Created++
			}
			if len(deferred) == len(pending) {
				return shared.Invalid("account", deferred[0].Code, shared.ErrAccountNotFound, "parent %s", deferred[0].Parent)
			}
			pending = deferred
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
