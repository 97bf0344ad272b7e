package mappings

import (
	"time"

	"github.com/google/uuid"
)

// Well-known integration keys resolved by the ledger engine.
const (
	KeyCash             = "CASH"
	KeyAssetDisposal    = "ASSET_DISPOSAL"
	KeyRetainedEarnings = "RETAINED_EARNINGS"
)

// AccountMapping links integration keys to ledger accounts.
type AccountMapping struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Key       string    `json:"key"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
