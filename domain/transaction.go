package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Protocol carries the discriminated ledger-call payload of a
// Transaction (§3). Exactly one field is populated, selected by Kind.
type Protocol struct {
	Kind              ProtocolKind       `json:"kind"`
	Icrc1Transfer     *Icrc1TransferArgs `json:"icrc1_transfer,omitempty"`
	Icrc2Approve      *Icrc2ApproveArgs  `json:"icrc2_approve,omitempty"`
	Icrc2TransferFrom *Icrc1TransferFromArgs `json:"icrc2_transfer_from,omitempty"`
}

type Icrc1TransferArgs struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	Memo   *string         `json:"memo,omitempty"`
	Ts     uint64          `json:"ts"`
}

type Icrc2ApproveArgs struct {
	From    string          `json:"from"`
	Spender string          `json:"spender"`
	Asset   string          `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
}

type Icrc1TransferFromArgs struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Spender string          `json:"spender"`
	Asset   string          `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
	Memo    *string         `json:"memo,omitempty"`
	Ts      uint64          `json:"ts"`
}

// Transaction is a single ledger operation, owned exclusively by one
// Intent (§3). dependency is a DAG subgraph matching the intent DAG plus
// intra-intent approve->transfer-from edges.
type Transaction struct {
	ID           string                      `json:"id" gorm:"column:id;primaryKey"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"column:created_at"`
	State        State                       `json:"state" gorm:"column:state;index"`
	Dependency   datatypes.JSONSlice[string] `json:"dependency" gorm:"column:dependency"`
	Protocol     Protocol                    `json:"protocol" gorm:"column:protocol;serializer:json"`
	Group        uint8                       `json:"group" gorm:"column:tx_group"`
	FromCallType FromCallType                `json:"from_call_type" gorm:"column:from_call_type"`
	StartTs      *uint64                     `json:"start_ts,omitempty" gorm:"column:start_ts"`
	IntentID     string                      `json:"intent_id" gorm:"column:intent_id;index"`
	Error        *string                     `json:"error,omitempty" gorm:"column:error"`
}

func (Transaction) TableName() string { return "transactions" }

// FromAccount returns the account this transaction's ledger call is
// submitted from, used to partition wallet-initiated vs
// canister-initiated transactions (§4.6 step 4).
func (t Transaction) FromAccount() string {
	switch t.Protocol.Kind {
	case ProtocolIcrc1Transfer:
		return t.Protocol.Icrc1Transfer.From
	case ProtocolIcrc2Approve:
		return t.Protocol.Icrc2Approve.From
	case ProtocolIcrc2TransferFrom:
		return t.Protocol.Icrc2TransferFrom.From
	default:
		return ""
	}
}

// IsRetryEligible reports whether the transaction may be (re)attempted:
// it must be in Created or Fail state (§4.5).
func (t Transaction) IsRetryEligible() bool {
	return t.State == StateCreated || t.State == StateFail
}
