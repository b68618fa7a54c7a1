// Package dto holds the input/output shapes of the outer request API
// surface's handlers (the surface itself is out of scope, §1) and their
// go-playground/validator/v10 validation tags, grounded on the
// teacher's rpc_node.go getValidator pattern including its custom
// bigint rule for decimal-string amount fields.
package dto

import (
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"

	"github.com/CashierHQ/cashier-sub001/domain"
)

// New builds a *validator.Validate with the engine's custom rules
// registered, mirroring the teacher's getValidator.
func New() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("decimalstring", func(fl validator.FieldLevel) bool {
		_, ok := new(big.Float).SetString(fmt.Sprint(fl.Field()))
		return ok
	}); err != nil {
		panic(fmt.Sprintf("failed to register decimalstring validation: %v", err))
	}
	return v
}

// legacyActionTypeClaim is the legacy action-type string the outer
// surface may still send; it is folded into Use at this boundary
// rather than modelled as a distinct domain.ActionType (resolved Open
// Question, DESIGN.md).
const legacyActionTypeClaim = "Claim"

// NormalizeActionType collapses the legacy "Claim" action type into Use
// before it reaches any domain code.
func NormalizeActionType(raw string) domain.ActionType {
	if raw == legacyActionTypeClaim {
		return domain.ActionTypeUse
	}
	return domain.ActionType(raw)
}

// CreateActionInput is the create_action request body (§4.6).
type CreateActionInput struct {
	LinkID     string                  `json:"link_id" validate:"required"`
	ActionType string                  `json:"action_type" validate:"required"`
	Intents    []CreateActionIntentDTO `json:"intents" validate:"required,dive"`
}

// CreateActionIntentDTO is one intent entry of a CreateActionInput,
// already carrying amounts and wallets filled in by the link service
// (§4.6 precondition).
type CreateActionIntentDTO struct {
	Task   string `json:"task" validate:"required"`
	Kind   string `json:"kind" validate:"required"`
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Asset  string `json:"asset" validate:"required"`
	Amount string `json:"amount" validate:"required,decimalstring"`
}

// CreateActionAnonymousInput extends CreateActionInput for a caller who
// has no registered principal; the service synthesises
// ANON#<wallet_address> (§4.9).
type CreateActionAnonymousInput struct {
	CreateActionInput
	AnonymousWalletAddress string `json:"anonymous_wallet_address" validate:"required"`
}

// ProcessActionInput is the process_action request body (§4.6).
type ProcessActionInput struct {
	ActionID        string `json:"action_id" validate:"required"`
	LinkID          string `json:"link_id" validate:"required"`
	ExecuteWalletTx bool   `json:"execute_wallet_tx"`
}

// TriggerTransactionInput lets a caller nudge a single transaction's
// manual status check outside a full process_action call.
type TriggerTransactionInput struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

// UpdateLinkInput is the Continue/Back request body against the Link
// State Machine (§4.8); every field is optional except LinkID, and the
// property-change guard decides which of the present ones are legal in
// the link's current state.
type UpdateLinkInput struct {
	LinkID                string   `json:"link_id" validate:"required"`
	Title                 *string  `json:"title,omitempty"`
	Description           *string  `json:"description,omitempty"`
	Template              *string  `json:"template,omitempty"`
	LinkType              *string  `json:"link_type,omitempty"`
	LinkImageURL          *string  `json:"link_image_url,omitempty"`
	NftImage              *string  `json:"nft_image,omitempty"`
	LinkUseActionMaxCount *int64   `json:"link_use_action_max_count,omitempty"`
	AssetInfo             []AssetInfoDTO `json:"asset_info,omitempty"`
}

// AssetInfoDTO is the wire shape of a domain.AssetInfo entry.
type AssetInfoDTO struct {
	Asset                  string `json:"asset" validate:"required"`
	AmountPerLinkUseAction string `json:"amount_per_link_use_action" validate:"required,decimalstring"`
	Label                  string `json:"label" validate:"required"`
}

// LinkGetUserStateInput reads back a caller's LinkAction progress row.
type LinkGetUserStateInput struct {
	LinkID     string `json:"link_id" validate:"required"`
	ActionType string `json:"action_type" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
}

// UserActionContinueInput drives C9's ChooseWallet->CompletedLink
// transition.
type UserActionContinueInput struct {
	LinkID     string `json:"link_id" validate:"required"`
	ActionType string `json:"action_type" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
}

// SetModeInput is the admin C12 mode-change request.
type SetModeInput struct {
	Mode string `json:"mode" validate:"required,oneof=Operational Maintenance"`
}

// AddAdminInput is the admin C12 admin-set-add request.
type AddAdminInput struct {
	Principal string `json:"principal" validate:"required"`
}
