package periods

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// EnsureOpen rejects dates inside a CLOSED month or a LOCKED year. The month row is created OPEN
// when missing and held under a share lock until the transaction ends, so a concurrent close waits.
func EnsureOpen(ctx context.Context, tx TxRepository, tenantID uuid.UUID, date time.Time) error {
	key := KeyFor(date)
	year, err := tx.Get(ctx, tenantID, YearKey(key.Year))
	switch {
	case err == nil && year.Status == PeriodStatusLocked:
		return shared.Conflict("period", key.String(), shared.ErrPeriodLocked, "")
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return err
	}
	month, err := tx.InsertOrGet(ctx, New(tenantID, key))
	if err != nil {
		return err
	}
	switch month.Status {
	case PeriodStatusLocked:
		return shared.Conflict("period", key.String(), shared.ErrPeriodLocked, "")
	case PeriodStatusClosed:
		return shared.Conflict("period", key.String(), shared.ErrPeriodClosed, "")
	}
	return nil
}

// FindOrCreate locks the period for key, inserting an OPEN row when none exists yet.
func FindOrCreate(ctx context.Context, tx TxRepository, tenantID uuid.UUID, key Key) (Period, error) {
	p, err := tx.GetForUpdate(ctx, tenantID, key)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Period{}, err
	}
	return tx.Insert(ctx, New(tenantID, key))
}
