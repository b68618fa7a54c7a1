// Package executor implements C5, the Transaction Executor: issues
// canister-initiated transfer/transfer_from calls and classifies
// outcomes (§4.5). ExecuteBatch is the synchronous join_all-style
// primitive C6 calls directly from process_action; Worker is a
// background per-ledger reconciliation loop, grounded on the teacher's
// chain-worker pattern, that retries Fail transactions left behind by a
// prior batch without requiring the caller to invoke process_action
// again (an ambient enrichment — §5 already allows "the caller may
// retry by re-invoking process_action"; this just automates it).
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/ledger"
	"github.com/CashierHQ/cashier-sub001/logging"
	"github.com/CashierHQ/cashier-sub001/metrics"
)

// Outcome is the result of attempting to execute one transaction.
type Outcome struct {
	TransactionID string
	NewState      domain.State
	Err           error
}

// DependencyStates supplies, for a given transaction id, the states of
// every other transaction in the same action — needed to evaluate the
// §4.5 precondition "all dependency transactions are in Success".
type DependencyStates func(txID string) (domain.State, bool)

// Executor issues canister-initiated ledger calls.
type Executor struct {
	ledger  ledger.Client
	metrics *metrics.Metrics
	logger  logging.Logger
}

func New(ledgerClient ledger.Client, m *metrics.Metrics, logger logging.Logger) *Executor {
	return &Executor{ledger: ledgerClient, metrics: m, logger: logger.NewSystem("executor")}
}

// ExecuteBatch attempts every transaction in txs concurrently (the
// process_action join_all of §5) and returns one Outcome per input,
// preserving order. A failure in one transaction never aborts the
// others — all are attempted (§4.5).
func (e *Executor) ExecuteBatch(ctx context.Context, txs []domain.Transaction, siblings DependencyStates) []Outcome {
	outcomes := make([]Outcome, len(txs))
	var wg sync.WaitGroup
	for i, tx := range txs {
		wg.Add(1)
		go func(i int, tx domain.Transaction) {
			defer wg.Done()
			outcomes[i] = e.executeOne(ctx, tx, siblings)
		}(i, tx)
	}
	wg.Wait()
	return outcomes
}

func (e *Executor) executeOne(ctx context.Context, tx domain.Transaction, siblings DependencyStates) Outcome {
	logger := e.logger.With("tx_id", tx.ID).With("kind", string(tx.Protocol.Kind))

	if !tx.IsRetryEligible() {
		return Outcome{TransactionID: tx.ID, NewState: tx.State}
	}
	for _, depID := range tx.Dependency {
		state, ok := siblings(depID)
		if !ok || state != domain.StateSuccess {
			// precondition (a) unmet: leave state untouched, this
			// transaction is not yet eligible.
			return Outcome{TransactionID: tx.ID, NewState: tx.State}
		}
	}

	var err error
	method := string(tx.Protocol.Kind)
	start := time.Now()
	switch tx.Protocol.Kind {
	case domain.ProtocolIcrc2TransferFrom:
		args := tx.Protocol.Icrc2TransferFrom
		_, err = e.ledger.TransferFrom(ctx, ledger.TransferFromArgs{
			Ledger:  args.Asset,
			From:    args.From,
			To:      args.To,
			Spender: args.Spender,
			Amount:  args.Amount,
			Memo:    args.Memo,
		})
	case domain.ProtocolIcrc1Transfer:
		// canister-initiated Icrc1Transfer (e.g. LinkToWallet payouts).
		args := tx.Protocol.Icrc1Transfer
		_, err = e.ledger.Transfer(ctx, ledger.TransferArgs{
			Ledger: args.Asset,
			From:   args.From,
			To:     args.To,
			Amount: args.Amount,
			Memo:   args.Memo,
		})
	default:
		err = fmt.Errorf("executor: transaction %s is not canister-initiated", tx.ID)
	}
	if e.metrics != nil && method != "" {
		e.metrics.LedgerCallLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if e.metrics != nil && method != "" {
			e.metrics.LedgerCallRejected.WithLabelValues(method).Inc()
		}
		logger.Error("canister-initiated call rejected", "error", err)
		return Outcome{TransactionID: tx.ID, NewState: domain.StateFail, Err: err}
	}

	logger.Info("canister-initiated call succeeded")
	return Outcome{TransactionID: tx.ID, NewState: domain.StateSuccess}
}

// Worker periodically sweeps each ledger principal's Fail/Created
// canister-initiated transactions and retries them, the way the
// teacher's BlockchainWorker runs one goroutine per chain.
type Worker struct {
	logger      logging.Logger
	tickEvery   time.Duration
	pending     func(ctx context.Context, ledgerPrincipal string) ([]domain.Transaction, DependencyStates, error)
	onOutcome   func(ctx context.Context, outcome Outcome)
	executor    *Executor
	ledgerIDs   []string
}

// NewWorker builds a background reconciliation Worker, one goroutine per
// entry in ledgerIDs. pending fetches the retry-eligible canister
// transactions for one ledger; onOutcome persists each Outcome via the
// repository rollup (C7).
func NewWorker(
	executor *Executor,
	ledgerIDs []string,
	tickEvery time.Duration,
	pending func(ctx context.Context, ledgerPrincipal string) ([]domain.Transaction, DependencyStates, error),
	onOutcome func(ctx context.Context, outcome Outcome),
	logger logging.Logger,
) *Worker {
	return &Worker{
		executor:  executor,
		ledgerIDs: ledgerIDs,
		tickEvery: tickEvery,
		pending:   pending,
		onOutcome: onOutcome,
		logger:    logger.NewSystem("executor-worker"),
	}
}

// Start runs one reconciliation goroutine per ledger until ctx is
// cancelled, then waits for all of them to stop.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range w.ledgerIDs {
		wg.Add(1)
		go w.runLedgerWorker(ctx, &wg, id)
	}
	<-ctx.Done()
	wg.Wait()
}

func (w *Worker) runLedgerWorker(ctx context.Context, wg *sync.WaitGroup, ledgerPrincipal string) {
	defer wg.Done()
	logger := w.logger.With("ledger", ledgerPrincipal)
	ticker := time.NewTicker(w.tickEvery)
	defer ticker.Stop()

	w.sweep(ctx, ledgerPrincipal, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx, ledgerPrincipal, logger)
		}
	}
}

func (w *Worker) sweep(ctx context.Context, ledgerPrincipal string, logger logging.Logger) {
	txs, siblings, err := w.pending(ctx, ledgerPrincipal)
	if err != nil {
		logger.Error("failed to load pending transactions", "error", err)
		return
	}
	if len(txs) == 0 {
		return
	}
	logger.Debug("retrying pending canister transactions", "count", len(txs))
	if w.executor.metrics != nil {
		w.executor.metrics.ExecutorRetriesTotal.Add(float64(len(txs)))
	}
	for _, outcome := range w.executor.ExecuteBatch(ctx, txs, siblings) {
		w.onOutcome(ctx, outcome)
	}
}
