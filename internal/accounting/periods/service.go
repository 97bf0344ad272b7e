package periods

import (
	"context"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// Service provides read access to accounting periods.
type Service struct {
	repo Repository
}

// NewService constructs the period service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the month periods of year followed by the year-end record, when present.
func (s *Service) List(ctx context.Context, scope shared.Scope, year int) ([]Period, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := YearKey(year).Validate(); err != nil {
		return nil, shared.Invalid("period", year, shared.ErrInvalidInput, "%s", err.Error())
	}
	return s.repo.List(ctx, scope.TenantID, year)
}
