package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Sequence scopes for document numbers.
const (
	SequenceJournal = "journal"
	SequenceAsset   = "asset"
)

// NextSequence allocates the next value of the (tenant, scope, year) counter. The upsert keeps the
// counter row locked until the surrounding transaction ends, so concurrent allocations serialize.
func NextSequence(ctx context.Context, q DBTX, tenantID uuid.UUID, scope string, year int) (int64, error) {
	var next int64
	err := q.QueryRow(ctx, `INSERT INTO document_sequences (tenant_id, scope, year, last_value)
VALUES ($1, $2, $3, 1)
ON CONFLICT (tenant_id, scope, year) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, tenantID, scope, year).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("platform/db: next %s sequence: %w", scope, err)
	}
	return next, nil
}
