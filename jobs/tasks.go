package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDepreciationRun depreciates every active asset of a tenant for one month.
	TaskDepreciationRun = "ledger:depreciation:run"
	// TaskBalanceIntegrity compares cached account balances with posted entries.
	TaskBalanceIntegrity = "ledger:integrity:balances"
)

// DepreciationRunPayload selects the tenant and month of a depreciation run.
// A zero Year or Month means the month before the run starts.
type DepreciationRunPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
	ActorID  int64     `json:"actor_id"`
	Year     int       `json:"year,omitempty"`
	Month    int       `json:"month,omitempty"`
}

// Scope returns the ledger scope the run acts under.
func (p DepreciationRunPayload) Scope() shared.Scope {
	return shared.Scope{TenantID: p.TenantID, ActorID: p.ActorID}
}

// Period resolves the month to depreciate relative to now.
func (p DepreciationRunPayload) Period(now time.Time) periods.Key {
	if p.Year == 0 || p.Month == 0 {
		return periods.KeyFor(now.AddDate(0, 0, -now.Day()))
	}
	return periods.MonthKey(p.Year, p.Month)
}

// IntegrityPayload selects the tenant whose balances are checked.
type IntegrityPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

// NewDepreciationRunTask constructs an Asynq task for a depreciation run.
func NewDepreciationRunTask(payload DepreciationRunPayload) (*asynq.Task, error) {
	if payload.TenantID == uuid.Nil {
		return nil, fmt.Errorf("jobs: depreciation run requires tenant")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationRun, data), nil
}

// NewIntegrityTask constructs an Asynq task for the balance integrity check.
func NewIntegrityTask(tenantID uuid.UUID) (*asynq.Task, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("jobs: integrity check requires tenant")
	}
	data, err := json.Marshal(IntegrityPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceIntegrity, data), nil
}
