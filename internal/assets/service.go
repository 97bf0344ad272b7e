package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	internalShared "github.com/rasyiqi-code/Counting-sub001/internal/shared"
)

// Ledger posts journals inside a transaction owned by the asset service.
type Ledger interface {
	PostInTx(ctx context.Context, tx journals.TxRepository, scope shared.Scope, in journals.CreateInput, opts journals.PostOptions) (journals.Journal, error)
	Committed(ctx context.Context, scope shared.Scope, action string, js ...journals.Journal)
	Manage(sourceTypes ...string)
}

// AuditPort records asset transitions.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service registers, depreciates and disposes fixed assets.
type Service struct {
	repo   Repository
	ledger Ledger
	audit  AuditPort
	now    func() time.Time
}

// NewService constructs the asset service.
func NewService(repo Repository, ledger Ledger, audit AuditPort) *Service {
	if ledger != nil {
		ledger.Manage(SourceDepreciation, SourceDisposal)
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one asset.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id int64) (Asset, error) {
	if err := scope.Validate(); err != nil {
		return Asset{}, err
	}
	return s.repo.Get(ctx, scope.TenantID, id)
}

// List returns the tenant's assets ordered by number.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) ([]Asset, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.TenantID, filter)
}

// Depreciations returns the recorded depreciation rows of an asset in period order.
func (s *Service) Depreciations(ctx context.Context, scope shared.Scope, id int64) ([]Depreciation, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, scope.TenantID, id); err != nil {
		return nil, err
	}
	return s.repo.Depreciations(ctx, scope.TenantID, id)
}

// Register stores a new ACTIVE asset whose book value equals its purchase price.
func (s *Service) Register(ctx context.Context, scope shared.Scope, in RegisterInput) (Asset, error) {
	if err := scope.Validate(); err != nil {
		return Asset{}, err
	}
	if err := in.Validate(); err != nil {
		return Asset{}, err
	}
	var asset Asset
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ids := []int64{in.AssetAccountID, in.ExpenseAccountID, in.AccumulatedAccountID}
		found, err := tx.Journals().Accounts().GetMany(ctx, scope.TenantID, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			account, ok := found[id]
			if !ok {
				return shared.Invalid("asset", nil, shared.ErrAccountNotFound, "account %d", id)
			}
			if !account.IsActive {
				return shared.Invalid("asset", nil, shared.ErrAccountInactive, "account %s", account.Code)
			}
		}
		purchase := periods.DateOnly(in.PurchaseDate)
		number, err := tx.NextNumber(ctx, scope.TenantID, purchase.Year())
		if err != nil {
			return err
		}
		asset, err = tx.Insert(ctx, Asset{
			TenantID:                scope.TenantID,
			Number:                  number,
			Name:                    in.Name,
			Category:                in.Category,
			PurchaseDate:            purchase,
			PurchasePrice:           in.PurchasePrice,
			ResidualValue:           in.ResidualValue,
			UsefulLifeMonths:        in.UsefulLifeMonths,
			Method:                  in.Method,
			AssetAccountID:          in.AssetAccountID,
			ExpenseAccountID:        in.ExpenseAccountID,
			AccumulatedAccountID:    in.AccumulatedAccountID,
			AccumulatedDepreciation: decimal.Zero,
			BookValue:               in.PurchasePrice,
			Status:                  StatusActive,
			CreatedBy:               scope.ActorID,
		})
		return err
	})
	if err != nil {
		return Asset{}, err
	}
	s.record(ctx, scope, "asset.register", asset.ID, map[string]any{"number": asset.Number})
	return asset, nil
}

// CalculateDepreciation records one month of depreciation: the depreciation row, its posted
// journal and the new accumulated depreciation commit together or not at all.
func (s *Service) CalculateDepreciation(ctx context.Context, scope shared.Scope, assetID int64, key periods.Key) (Depreciation, error) {
	if err := scope.Validate(); err != nil {
		return Depreciation{}, err
	}
	if err := key.Validate(); err != nil || key.IsYear() {
		return Depreciation{}, shared.Invalid("asset", assetID, shared.ErrInvalidInput, "period %s", key.String())
	}
	var (
		row     Depreciation
		journal journals.Journal
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		row, journal, err = s.depreciate(ctx, tx, scope, assetID, key)
		return err
	})
	if err != nil {
		return Depreciation{}, err
	}
	s.ledger.Committed(ctx, scope, "journal.post", journal)
	s.record(ctx, scope, "asset.depreciate", assetID, map[string]any{
		"period": key.String(),
		"amount": row.Amount.StringFixed(shared.AmountScale),
	})
	return row, nil
}

func (s *Service) depreciate(ctx context.Context, tx TxRepository, scope shared.Scope, assetID int64, key periods.Key) (Depreciation, journals.Journal, error) {
	asset, err := tx.GetForUpdate(ctx, scope.TenantID, assetID)
	if err != nil {
		return Depreciation{}, journals.Journal{}, err
	}
	if asset.Status != StatusActive {
		return Depreciation{}, journals.Journal{}, shared.Conflict("asset", asset.Number, shared.ErrAssetNotActive, "status %s", asset.Status)
	}
	if _, found, err := tx.FindDepreciation(ctx, asset.ID, key); err != nil {
		return Depreciation{}, journals.Journal{}, err
	} else if found {
		return Depreciation{}, journals.Journal{}, shared.Invalid("asset", asset.Number, shared.ErrDepreciationExists, "%s", key.String())
	}
	if before(key, asset.StartKey()) {
		return Depreciation{}, journals.Journal{}, shared.Invalid("asset", asset.Number, shared.ErrBeforePurchase,
			"period %s purchase %s", key.String(), asset.StartKey().String())
	}
	recorded, err := tx.CountDepreciations(ctx, asset.ID)
	if err != nil {
		return Depreciation{}, journals.Journal{}, err
	}
	amount, err := MonthlyAmount(asset, recorded)
	if err != nil {
		return Depreciation{}, journals.Journal{}, err
	}
	in, meta := depreciationInput(asset, key, amount)
	journal, err := s.ledger.PostInTx(ctx, tx.Journals(), scope, in, journals.PostOptions{Meta: meta})
	if err != nil {
		return Depreciation{}, journals.Journal{}, err
	}
	row, err := tx.InsertDepreciation(ctx, Depreciation{
		AssetID:   asset.ID,
		Year:      key.Year,
		Month:     key.Month,
		Amount:    amount,
		JournalID: journal.ID,
	})
	if err != nil {
		return Depreciation{}, journals.Journal{}, err
	}
	asset.AccumulatedDepreciation = asset.AccumulatedDepreciation.Add(amount)
	asset.BookValue = asset.PurchasePrice.Sub(asset.AccumulatedDepreciation)
	if err := tx.Update(ctx, asset); err != nil {
		return Depreciation{}, journals.Journal{}, err
	}
	return row, journal, nil
}

// RunDepreciation depreciates every ACTIVE asset for key. Assets already depreciated for the
// period, not yet purchased or fully depreciated are skipped; other failures are reported
// per asset without stopping the run.
func (s *Service) RunDepreciation(ctx context.Context, scope shared.Scope, key periods.Key) (RunResult, error) {
	if err := scope.Validate(); err != nil {
		return RunResult{}, err
	}
	result := RunResult{Period: key, TotalAmount: decimal.Zero}
	active, err := s.repo.List(ctx, scope.TenantID, ListFilter{Status: StatusActive})
	if err != nil {
		return RunResult{}, err
	}
	for _, asset := range active {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row, err := s.CalculateDepreciation(ctx, scope, asset.ID, key)
		switch {
		case err == nil:
			result.Recorded = append(result.Recorded, row)
			result.TotalAmount = result.TotalAmount.Add(row.Amount)
		case errors.Is(err, shared.ErrDepreciationExists), errors.Is(err, shared.ErrFullyDepreciated), errors.Is(err, shared.ErrBeforePurchase):
			result.Skipped++
		default:
			result.Failed = append(result.Failed, RunFailure{AssetID: asset.ID, Number: asset.Number, Error: err.Error()})
		}
	}
	return result, nil
}

// Schedule projects the remaining depreciation of an asset.
func (s *Service) Schedule(ctx context.Context, scope shared.Scope, id int64) ([]ScheduleLine, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	asset, err := s.repo.Get(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Depreciations(ctx, scope.TenantID, id)
	if err != nil {
		return nil, err
	}
	var last *periods.Key
	for _, row := range rows {
		key := row.Key()
		if last == nil || before(*last, key) {
			last = &key
		}
	}
	return ProjectSchedule(asset, len(rows), last), nil
}

// Dispose sells or writes off an ACTIVE asset, posting the disposal journal and marking the
// asset DISPOSED in one transaction.
func (s *Service) Dispose(ctx context.Context, scope shared.Scope, assetID int64, in DisposeInput) (DisposalResult, error) {
	if err := scope.Validate(); err != nil {
		return DisposalResult{}, err
	}
	if err := in.Validate(); err != nil {
		return DisposalResult{}, err
	}
	in.Date = periods.DateOnly(in.Date)
	var result DisposalResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		asset, err := tx.GetForUpdate(ctx, scope.TenantID, assetID)
		if err != nil {
			return err
		}
		if asset.Status == StatusDisposed {
			return shared.Conflict("asset", asset.Number, shared.ErrAssetDisposed, "disposed on %s", formatDate(asset.DisposalDate))
		}
		if in.Date.Before(asset.PurchaseDate) {
			return shared.Invalid("asset", asset.Number, shared.ErrInvalidInput, "disposal date precedes purchase date")
		}
		// Book value is only known through the end of the latest depreciated month.
		latest, found, err := tx.LatestDepreciation(ctx, asset.ID)
		if err != nil {
			return err
		}
		if found {
			if _, end := latest.Key().Bounds(); in.Date.Before(end) {
				return shared.Invalid("asset", asset.Number, shared.ErrDisposalBeforeDepreciation, "disposal %s, depreciated through %s", in.Date.Format(time.DateOnly), end.Format(time.DateOnly))
			}
		}
		cashAccountID, gainLossAccountID, err := disposalAccounts(ctx, tx, scope.TenantID, asset, in)
		if err != nil {
			return err
		}
		input, gainLoss := disposalInput(asset, in, cashAccountID, gainLossAccountID)
		journal, err := s.ledger.PostInTx(ctx, tx.Journals(), scope, input, journals.PostOptions{
			Meta: journals.Meta{SourceType: SourceDisposal, SourceID: fmt.Sprintf("%d", asset.ID)},
		})
		if err != nil {
			return err
		}
		proceeds := in.Proceeds
		date := in.Date
		asset.Status = StatusDisposed
		asset.DisposalDate = &date
		asset.DisposalAmount = &proceeds
		asset.DisposalJournalID = &journal.ID
		if err := tx.Update(ctx, asset); err != nil {
			return err
		}
		result = DisposalResult{Asset: asset, Journal: journal, GainLoss: gainLoss}
		return nil
	})
	if err != nil {
		return DisposalResult{}, err
	}
	s.ledger.Committed(ctx, scope, "journal.post", result.Journal)
	s.record(ctx, scope, "asset.dispose", assetID, map[string]any{
		"proceeds":  in.Proceeds.StringFixed(shared.AmountScale),
		"gain_loss": result.GainLoss.StringFixed(shared.AmountScale),
		"journal":   result.Journal.Number,
	})
	return result, nil
}

// disposalAccounts resolves the cash and gain/loss accounts, only requiring a mapping when the
// posting needs that line.
func disposalAccounts(ctx context.Context, tx TxRepository, tenantID uuid.UUID, asset Asset, in DisposeInput) (int64, int64, error) {
	var cash, gainLoss int64
	var err error
	if in.Proceeds.IsPositive() {
		if cash, err = mappings.Resolve(ctx, tx.Mappings(), tenantID, mappings.KeyCash, in.CashAccountID); err != nil {
			return 0, 0, err
		}
	}
	if !in.Proceeds.Equal(asset.BookValue) {
		if gainLoss, err = mappings.Resolve(ctx, tx.Mappings(), tenantID, mappings.KeyAssetDisposal, in.GainLossAccountID); err != nil {
			return 0, 0, err
		}
	}
	return cash, gainLoss, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func (s *Service) record(ctx context.Context, scope shared.Scope, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		TenantID: scope.TenantID,
		ActorID:  scope.ActorID,
		Action:   action,
		Entity:   "asset",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
