package mappings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/mappings"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
	"github.com/rasyiqi-code/Counting-sub001/internal/testing/ledgertest"
)

func TestListReturnsSeededMappings(t *testing.T) {
	l := ledgertest.New(t)
	listed, err := l.Mappings.List(context.Background(), l.Scope)
	require.NoError(t, err)

	keys := make([]string, 0, len(listed))
	for _, m := range listed {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{mappings.KeyAssetDisposal, mappings.KeyCash, mappings.KeyRetainedEarnings}, keys)
}

func TestApplyNormalizesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	bank := l.ID(t, "1-2000")

	require.NoError(t, l.Mappings.Apply(ctx, l.Scope, map[string]int64{" cash ": bank}))

	err := l.Store.Mappings().WithTx(ctx, func(ctx context.Context, tx mappings.TxRepository) error {
		id, err := mappings.Resolve(ctx, tx, l.Scope.TenantID, mappings.KeyCash, 0)
		require.NoError(t, err)
		assert.Equal(t, bank, id)

		id, err = mappings.Resolve(ctx, tx, l.Scope.TenantID, mappings.KeyCash, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		_, err = mappings.Resolve(ctx, tx, l.Scope.TenantID, "PETTY_CASH", 0)
		assert.ErrorIs(t, err, shared.ErrMappingNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyRejectsBadBindings(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)

	assert.ErrorIs(t, l.Mappings.Apply(ctx, l.Scope, map[string]int64{"": 1}), shared.ErrValidation)
	assert.ErrorIs(t, l.Mappings.Apply(ctx, l.Scope, map[string]int64{"CASH": 0}), shared.ErrValidation)
	assert.ErrorIs(t, l.Mappings.Apply(ctx, shared.Scope{}, map[string]int64{"CASH": 1}), shared.ErrValidation)
}

func TestApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.New(t)
	before, err := l.Mappings.List(ctx, l.Scope)
	require.NoError(t, err)

	l.Store.Fail("mappings.Upsert", errors.New("disk full"))
	err = l.Mappings.Apply(ctx, l.Scope, map[string]int64{"CASH": l.ID(t, "1-2000")})
	require.Error(t, err)

	after, err := l.Mappings.List(ctx, l.Scope)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
