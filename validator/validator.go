// Package validator implements C4, the Transaction Validator: post-hoc
// confirmation that a wallet-initiated transaction landed, plus the
// timeout policy of §4.4/§5.
package validator

import (
	"context"
	"time"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/ledger"
	"github.com/CashierHQ/cashier-sub001/logging"
)

// Validator checks wallet-initiated transactions against ledger state.
type Validator struct {
	ledger    ledger.Client
	txTimeout time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// New builds a Validator. txTimeout is TX_TIMEOUT (§4.4), on the order
// of two minutes.
func New(ledgerClient ledger.Client, txTimeout time.Duration, logger logging.Logger) *Validator {
	return &Validator{ledger: ledgerClient, txTimeout: txTimeout, logger: logger.NewSystem("validator"), now: time.Now}
}

// Check runs the §4.4 manual status check on one transaction and returns
// the new state it should transition to, or the same state if no
// transition is due yet. Canister-initiated (TransferFrom) transactions
// are never checked here — they are deferred to the executor (C5) — and
// Check returns tx.State unchanged for them.
func (v *Validator) Check(ctx context.Context, tx domain.Transaction) (domain.State, error) {
	if tx.State.IsTerminal() {
		return tx.State, nil
	}

	if tx.Protocol.Kind == domain.ProtocolIcrc2TransferFrom {
		return tx.State, nil
	}

	if tx.State == domain.StateProcessing {
		due, err := v.timeoutDue(tx)
		if err != nil {
			return tx.State, err
		}
		if !due {
			// start_ts + TX_TIMEOUT still in the future: remains
			// Processing, no ledger read performed (§4.4).
			return domain.StateProcessing, nil
		}
	}

	switch tx.Protocol.Kind {
	case domain.ProtocolIcrc1Transfer:
		return v.checkTransfer(ctx, tx)
	case domain.ProtocolIcrc2Approve:
		return v.checkApprove(ctx, tx)
	default:
		return tx.State, nil
	}
}

func (v *Validator) timeoutDue(tx domain.Transaction) (bool, error) {
	if tx.StartTs == nil {
		// never entered Processing with a recorded start; nothing to
		// time out yet, perform the check immediately.
		return true, nil
	}
	deadline := time.Unix(int64(*tx.StartTs), 0).Add(v.txTimeout)
	return !v.now().Before(deadline), nil
}

func (v *Validator) checkTransfer(ctx context.Context, tx domain.Transaction) (domain.State, error) {
	args := tx.Protocol.Icrc1Transfer
	balance, err := v.ledger.BalanceOf(ctx, args.Asset, args.To)
	if err != nil {
		return tx.State, err
	}
	if balance.GreaterThanOrEqual(args.Amount) {
		return domain.StateSuccess, nil
	}
	if tx.State == domain.StateProcessing {
		// timeout already elapsed (guarded above) and still short: Fail.
		return domain.StateFail, nil
	}
	return domain.StateProcessing, nil
}

func (v *Validator) checkApprove(ctx context.Context, tx domain.Transaction) (domain.State, error) {
	args := tx.Protocol.Icrc2Approve
	allowance, err := v.ledger.Allowance(ctx, args.Asset, args.From, args.Spender)
	if err != nil {
		return tx.State, err
	}
	if allowance.Allowance.GreaterThanOrEqual(args.Amount) {
		return domain.StateSuccess, nil
	}
	if tx.State == domain.StateProcessing {
		return domain.StateFail, nil
	}
	return domain.StateProcessing, nil
}
