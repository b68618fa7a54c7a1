package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// IntentType carries the discriminated payload of an Intent (§3). Exactly
// one of TransferArgs / TransferFromArgs is populated, selected by Kind.
type IntentType struct {
	Kind             IntentTypeKind   `json:"kind"`
	TransferArgs     *TransferArgs     `json:"transfer_args,omitempty"`
	TransferFromArgs *TransferFromArgs `json:"transfer_from_args,omitempty"`
}

// TransferArgs is the payload of an IntentTypeTransfer.
type TransferArgs struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

// TransferFromArgs is the payload of an IntentTypeTransferFrom.
//
// ApproveAmount and ActualAmount must always be populated together for
// CreatorToTreasury intents (resolved Open Question, DESIGN.md); a
// TransferFrom intent observed with exactly one set is an
// InternalLogicError, never an optional field.
type TransferFromArgs struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	Spender       string          `json:"spender"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	ApproveAmount *decimal.Decimal `json:"approve_amount,omitempty"`
	ActualAmount  *decimal.Decimal `json:"actual_amount,omitempty"`
}

// Intent is a chain-neutral transfer obligation belonging to exactly one
// Action (§3). Dependency forms a DAG across an action's intents.
type Intent struct {
	ID           string                    `json:"id" gorm:"column:id;primaryKey"`
	State        State                     `json:"state" gorm:"column:state;index"`
	CreatedAt    time.Time                 `json:"created_at" gorm:"column:created_at"`
	Dependency   datatypes.JSONSlice[string] `json:"dependency" gorm:"column:dependency"`
	Chain        string                    `json:"chain" gorm:"column:chain"`
	Task         IntentTask                `json:"task" gorm:"column:task"`
	Type         IntentType                `json:"type" gorm:"column:type;serializer:json"`
	Label        string                    `json:"label" gorm:"column:label"`
	ActionID     string                    `json:"action_id" gorm:"column:action_id;index"`
}

func (Intent) TableName() string { return "intents" }

// ValidTaskTypePairs is the §4.2 compatibility table: TransferFrom is
// only permitted for TransferWalletToTreasury; every other task pairs
// with Transfer.
func ValidTaskTypePairs(task IntentTask, kind IntentTypeKind) bool {
	switch task {
	case TaskTransferWalletToTreasury:
		return kind == IntentTypeTransferFrom
	case TaskTransferWalletToLink, TaskTransferLinkToWallet:
		return kind == IntentTypeTransfer
	default:
		return false
	}
}
