package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the ledger DDL.
func Schema() string {
	return schemaSQL
}

// Migrate applies the idempotent ledger schema.
func Migrate(ctx context.Context, q DBTX) error {
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("platform/db: migrate: %w", err)
	}
	return nil
}
