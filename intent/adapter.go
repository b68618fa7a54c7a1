// Package intent implements C2, the Intent Adapter: a pure translation
// table keyed on (intent.task, intent.type) that expands one intent into
// one or two ledger-operation transactions (§4.2).
package intent

import (
	"github.com/google/uuid"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
)

// IDGenerator produces a fresh transaction id. Exists only so tests can
// inject a deterministic sequence; production code uses uuid.NewString.
type IDGenerator func() string

// DefaultIDGenerator is uuid.NewString wrapped to satisfy IDGenerator.
func DefaultIDGenerator() string { return uuid.NewString() }

// GroupAllocator hands out a fresh ICRC-112 group id, unique across all
// intents belonging to the same action. The Transaction Manager (C6)
// owns the counter and passes it down so an Approve/TransferFrom pair's
// "fresh group" (§4.2) is actually unique action-wide, not just within
// this one intent's expansion.
type GroupAllocator func() uint8

// Expand is the pure function (intent, now) -> []transaction of §4.2.
// Output is deterministic given (intent, now, newGroup's sequence)
// except for transaction ids; every ts field in an emitted protocol
// equals now.
func Expand(it domain.Intent, now uint64, newID IDGenerator, newGroup GroupAllocator) ([]domain.Transaction, error) {
	if newID == nil {
		newID = DefaultIDGenerator
	}

	switch {
	case it.Task == domain.TaskTransferWalletToLink && it.Type.Kind == domain.IntentTypeTransfer:
		return oneTransfer(it, now, newID, domain.FromCallTypeWallet)

	case it.Task == domain.TaskTransferLinkToWallet && it.Type.Kind == domain.IntentTypeTransfer:
		return oneTransfer(it, now, newID, domain.FromCallTypeCanister)

	case it.Task == domain.TaskTransferWalletToTreasury && it.Type.Kind == domain.IntentTypeTransferFrom:
		return approveThenTransferFrom(it, now, newID, newGroup)

	default:
		return nil, apierr.ValidationError("invalid intent task+type: %s+%s", it.Task, it.Type.Kind)
	}
}

func oneTransfer(it domain.Intent, now uint64, newID IDGenerator, fct domain.FromCallType) ([]domain.Transaction, error) {
	args := it.Type.TransferArgs
	if args == nil {
		return nil, apierr.InternalLogicError("Transfer intent %s missing TransferArgs", it.ID)
	}
	if args.Amount.Sign() <= 0 {
		return nil, apierr.ValidationError("intent %s: amount must be > 0", it.ID)
	}

	tx := domain.Transaction{
		ID:           newID(),
		State:        domain.StateCreated,
		IntentID:     it.ID,
		Group:        0,
		FromCallType: fct,
		Protocol: domain.Protocol{
			Kind: domain.ProtocolIcrc1Transfer,
			Icrc1Transfer: &domain.Icrc1TransferArgs{
				From:   args.From,
				To:     args.To,
				Asset:  args.Asset,
				Amount: args.Amount,
				Ts:     now,
			},
		},
	}
	return []domain.Transaction{tx}, nil
}

func approveThenTransferFrom(it domain.Intent, now uint64, newID IDGenerator, newGroup GroupAllocator) ([]domain.Transaction, error) {
	args := it.Type.TransferFromArgs
	if args == nil {
		return nil, apierr.InternalLogicError("TransferFrom intent %s missing TransferFromArgs", it.ID)
	}
	if args.Amount.Sign() <= 0 {
		return nil, apierr.ValidationError("intent %s: amount must be > 0", it.ID)
	}
	// Resolved Open Question (DESIGN.md): approve_amount/actual_amount
	// must always be populated together for CreatorToTreasury intents.
	if (args.ApproveAmount == nil) != (args.ActualAmount == nil) {
		return nil, apierr.InternalLogicError("intent %s: approve_amount/actual_amount must be populated together", it.ID)
	}

	approveAmount := args.Amount
	if args.ApproveAmount != nil {
		approveAmount = *args.ApproveAmount
	}

	group := newGroup()

	approveTx := domain.Transaction{
		ID:           newID(),
		State:        domain.StateCreated,
		IntentID:     it.ID,
		Group:        group,
		FromCallType: domain.FromCallTypeWallet,
		Protocol: domain.Protocol{
			Kind: domain.ProtocolIcrc2Approve,
			Icrc2Approve: &domain.Icrc2ApproveArgs{
				From:    args.From,
				Spender: args.Spender,
				Asset:   args.Asset,
				Amount:  approveAmount,
			},
		},
	}

	transferFromTx := domain.Transaction{
		ID:           newID(),
		State:        domain.StateCreated,
		IntentID:     it.ID,
		Group:        group,
		FromCallType: domain.FromCallTypeCanister,
		Dependency:   []string{approveTx.ID},
		Protocol: domain.Protocol{
			Kind: domain.ProtocolIcrc2TransferFrom,
			Icrc2TransferFrom: &domain.Icrc1TransferFromArgs{
				From:    args.From,
				To:      args.To,
				Spender: args.Spender,
				Asset:   args.Asset,
				Amount:  args.Amount,
				Ts:      now,
			},
		},
	}

	return []domain.Transaction{approveTx, transferFromTx}, nil
}
