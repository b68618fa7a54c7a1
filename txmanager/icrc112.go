package txmanager

import (
	"encoding/json"
	"sort"

	"github.com/CashierHQ/cashier-sub001/domain"
)

// Icrc112Call is one wallet-side call inside an ICRC-112 batch (§6),
// wire-encoded as the standard's [canister_id, method, arg, nonce]
// tuple rather than a JSON object.
type Icrc112Call struct {
	CanisterID string `validate:"required"`
	Method     string `validate:"required"`
	Arg        any
	Nonce      string `validate:"required"`
}

// MarshalJSON encodes the call in ICRC-112's array form.
func (c Icrc112Call) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]any{c.CanisterID, c.Method, c.Arg, c.Nonce})
}

// UnmarshalJSON decodes the array form back into a Icrc112Call.
func (c *Icrc112Call) UnmarshalJSON(data []byte) error {
	var raw [4]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &c.CanisterID); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &c.Method); err != nil {
		return err
	}
	c.Arg = raw[2]
	return json.Unmarshal(raw[3], &c.Nonce)
}

// Icrc112Batch is a sequence of groups; group k contains every
// wallet-side call all of whose wallet-ancestors live in groups < k
// (§4.6 step 6). The client is expected to launch every call in a group
// concurrently and wait for the group to settle before starting the
// next.
type Icrc112Batch [][]Icrc112Call

// method names emitted for each transaction protocol kind (§6).
const (
	methodIcrc1Transfer    = "icrc1_transfer"
	methodIcrc2Approve     = "icrc2_approve"
	methodTriggerTx        = "trigger_transaction"
)

// BuildBatch groups the wallet-initiated subset of txs by dependency
// level: a transaction's level is one more than the maximum level of
// its wallet-side dependencies (canister-side dependencies do not
// extend a wallet call's wait chain since the client never submits
// them). The transactions' own Group field is not consulted; grouping
// is by dependency level only.
func BuildBatch(txs []domain.Transaction) Icrc112Batch {
	byID := make(map[string]domain.Transaction, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx
	}

	level := make(map[string]int, len(txs))
	var levelOf func(id string) int
	levelOf = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		tx, ok := byID[id]
		if !ok {
			// dependency outside the wallet subset (e.g. a canister tx
			// or a tx from a different, already-settled call) imposes
			// no additional wait.
			return -1
		}
		max := -1
		for _, dep := range tx.Dependency {
			if l := levelOf(dep); l > max {
				max = l
			}
		}
		level[id] = max + 1
		return level[id]
	}

	levels := make(map[int][]domain.Transaction)
	maxLevel := 0
	for _, tx := range txs {
		l := levelOf(tx.ID)
		levels[l] = append(levels[l], tx)
		if l > maxLevel {
			maxLevel = l
		}
	}

	batch := make(Icrc112Batch, 0, maxLevel+1)
	for l := 0; l <= maxLevel; l++ {
		group := levels[l]
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		calls := make([]Icrc112Call, 0, len(group))
		for _, tx := range group {
			calls = append(calls, callFor(tx))
		}
		batch = append(batch, calls)
	}
	return batch
}

func callFor(tx domain.Transaction) Icrc112Call {
	switch tx.Protocol.Kind {
	case domain.ProtocolIcrc1Transfer:
		return Icrc112Call{CanisterID: tx.Protocol.Icrc1Transfer.Asset, Method: methodIcrc1Transfer, Arg: tx.Protocol.Icrc1Transfer, Nonce: tx.ID}
	case domain.ProtocolIcrc2Approve:
		return Icrc112Call{CanisterID: tx.Protocol.Icrc2Approve.Asset, Method: methodIcrc2Approve, Arg: tx.Protocol.Icrc2Approve, Nonce: tx.ID}
	default:
		return Icrc112Call{Method: methodTriggerTx, Nonce: tx.ID}
	}
}
