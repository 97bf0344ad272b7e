package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndRule(t *testing.T) {
	err := Invalid("journal", int64(12), ErrUnbalanced, "debit %s credit %s", "10", "9")
	wrapped := fmt.Errorf("create journal: %w", err)

	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.ErrorIs(t, wrapped, ErrUnbalanced)
	assert.NotErrorIs(t, wrapped, ErrState)
	assert.Equal(t, "accounting: journal 12: journal lines must balance (debit 10 credit 9)", err.Error())
	assert.Equal(t, ErrValidation, KindOf(wrapped))
}

func TestKindOfUnknown(t *testing.T) {
	assert.Nil(t, KindOf(errors.New("boom")))
	assert.Equal(t, ErrNotFound, KindOf(NotFound("asset", int64(3))))
	assert.Equal(t, ErrConcurrency, KindOf(Concurrent("journal", nil, "number %d", 4)))
	assert.ErrorIs(t, Concurrent("journal", nil, ""), ErrNumberTaken)
	contended := Contended("transaction", "gave up after %d attempts", 3)
	assert.ErrorIs(t, contended, ErrConcurrency)
	assert.ErrorIs(t, contended, ErrSerialization)
	assert.Contains(t, contended.Error(), "gave up after 3 attempts")
}

func TestNotFoundMessageWithoutRule(t *testing.T) {
	assert.Equal(t, "accounting: period 2024-03: not found", NotFound("period", "2024-03").Error())
}

func TestScopeValidate(t *testing.T) {
	assert.ErrorIs(t, Scope{}.Validate(), ErrValidation)
	assert.NoError(t, Scope{TenantID: uuid.New(), ActorID: 1}.Validate())
}

func TestValidateStructReportsFields(t *testing.T) {
	type input struct {
		Code string `validate:"required"`
		Size int    `validate:"gte=0"`
	}
	err := ValidateStruct("account", input{Size: -1})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "input.Code required")
	assert.Contains(t, err.Error(), "input.Size gte")
	assert.NoError(t, ValidateStruct("account", input{Code: "1-1000"}))
}
