package accounts

import (
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

// CreateInput describes a new account.
type CreateInput struct {
	Code     string      `json:"code" validate:"required,max=32"`
	Name     string      `json:"name" validate:"required,max=200"`
	Type     AccountType `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE COGS EXPENSE"`
	Category string      `json:"category,omitempty" validate:"omitempty,max=100"`
	ParentID *int64      `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	IsSystem bool        `json:"is_system"`
}

// Validate checks field level rules.
func (in CreateInput) Validate() error {
	return shared.ValidateStruct("account", in)
}

// UpdateInput carries optional changes to an account.
type UpdateInput struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Type        *AccountType `json:"type,omitempty" validate:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE COGS EXPENSE"`
	Category    *string      `json:"category,omitempty" validate:"omitempty,max=100"`
	ParentID    *int64       `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	ClearParent bool         `json:"clear_parent"`
	IsActive    *bool        `json:"is_active,omitempty"`
}

// Validate checks field level rules.
func (in UpdateInput) Validate() error {
	return shared.ValidateStruct("account", in)
}
