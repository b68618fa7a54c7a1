// Package domain contains the core entity types shared by every component
// of the execution engine: Link, Action, Intent, Transaction and their
// join tables, plus the enums that constrain them.
package domain

// LinkState is a link's position in the Link State Machine (C8).
type LinkState string

const (
	LinkStateChooseLinkType LinkState = "ChooseLinkType"
	LinkStateAddAssets      LinkState = "AddAssets"
	LinkStatePreview        LinkState = "Preview"
	LinkStateCreateLink     LinkState = "CreateLink"
	LinkStateActive         LinkState = "Active"
	LinkStateInactive       LinkState = "Inactive"
	LinkStateInactiveEnded  LinkState = "InactiveEnded"
)

// LinkType is the kind of value-transfer link a creator built.
type LinkType string

const (
	LinkTypeSendTip         LinkType = "SendTip"
	LinkTypeSendAirdrop     LinkType = "SendAirdrop"
	LinkTypeSendTokenBasket LinkType = "SendTokenBasket"
	LinkTypeReceivePayment  LinkType = "ReceivePayment"
)

// AssetLabel conventions for AssetInfo.Label (§3).
const (
	AssetLabelSendTip         = "SEND_TIP_ASSET"
	AssetLabelSendAirdrop     = "SEND_AIRDROP_ASSET"
	AssetLabelTokenBasket     = "SEND_TOKEN_BASKET_ASSET_" // + address suffix
	AssetLabelReceivePayment  = "RECEIVE_PAYMENT_ASSET"
	AssetLabelLinkCreationFee = "LINK_CREATION_FEE"
)

// ActionType is the kind of lifecycle event requested against a link.
//
// The legacy codebase also carried an ActionType::Claim alongside Use;
// this engine collapses Claim into Use at the adapter boundary (see
// dto.NormalizeActionType) rather than modelling it as a distinct value.
type ActionType string

const (
	ActionTypeCreateLink ActionType = "CreateLink"
	ActionTypeUse        ActionType = "Use"
	ActionTypeWithdraw   ActionType = "Withdraw"
)

// State is the shared Created/Processing/Success/Fail lifecycle used by
// Action, Intent and Transaction (§3).
type State string

const (
	StateCreated    State = "Created"
	StateProcessing State = "Processing"
	StateSuccess    State = "Success"
	StateFail       State = "Fail"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFail
}

// IntentTask is the semantic role of an intent, independent of chain.
type IntentTask string

const (
	TaskTransferWalletToLink     IntentTask = "TransferWalletToLink"
	TaskTransferWalletToTreasury IntentTask = "TransferWalletToTreasury"
	TaskTransferLinkToWallet     IntentTask = "TransferLinkToWallet"
)

// IntentTypeKind discriminates the two shapes an Intent.Type can take.
type IntentTypeKind string

const (
	IntentTypeTransfer     IntentTypeKind = "Transfer"
	IntentTypeTransferFrom IntentTypeKind = "TransferFrom"
)

// ProtocolKind discriminates the three ledger-operation shapes a
// Transaction.Protocol can take.
type ProtocolKind string

const (
	ProtocolIcrc1Transfer     ProtocolKind = "Icrc1Transfer"
	ProtocolIcrc2Approve      ProtocolKind = "Icrc2Approve"
	ProtocolIcrc2TransferFrom ProtocolKind = "Icrc2TransferFrom"
)

// FromCallType identifies which side originates a Transaction's call.
type FromCallType string

const (
	FromCallTypeWallet   FromCallType = "Wallet"
	FromCallTypeCanister FromCallType = "Canister"
)

// LinkUserState is a per-user, per-LinkAction progress marker (C9).
type LinkUserState string

const (
	LinkUserStateChooseWallet   LinkUserState = "ChooseWallet"
	LinkUserStateCompletedLink  LinkUserState = "CompletedLink"
)

// SettingsMode gates state-changing endpoints (C12).
type SettingsMode string

const (
	SettingsModeOperational SettingsMode = "Operational"
	SettingsModeMaintenance SettingsMode = "Maintenance"
)

// FeeFlow is one of the five sender/receiver partitions C10 computes
// fees for, derived from (intent.task, caller == link.creator).
type FeeFlow string

const (
	FlowCreatorToTreasury FeeFlow = "CreatorToTreasury"
	FlowCreatorToLink     FeeFlow = "CreatorToLink"
	FlowUserToLink        FeeFlow = "UserToLink"
	FlowLinkToUser        FeeFlow = "LinkToUser"
	FlowLinkToCreator     FeeFlow = "LinkToCreator"
)

// AnonPrefix prefixes the synthetic principal synthesised for anonymous
// Use actions: ANON#<wallet-address>.
const AnonPrefix = "ANON#"
