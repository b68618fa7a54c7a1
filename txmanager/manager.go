// Package txmanager implements C6, the Transaction Manager:
// create_action and process_action, the two top-level algorithms that
// drive an action's intents and transactions from assembly through
// ledger execution (§4.6). Grounded on the teacher's AppSessionService,
// which similarly orchestrates a multi-step create/settle flow behind a
// single exported method pair backed by gorm persistence.
package txmanager

import (
	"context"
	"sync"
	"time"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/depgraph"
	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/executor"
	"github.com/CashierHQ/cashier-sub001/intent"
	"github.com/CashierHQ/cashier-sub001/ledger"
	"github.com/CashierHQ/cashier-sub001/logging"
	"github.com/CashierHQ/cashier-sub001/metrics"
	"github.com/CashierHQ/cashier-sub001/nftreward"
	"github.com/CashierHQ/cashier-sub001/repository"
	"github.com/CashierHQ/cashier-sub001/reqlock"
	"github.com/CashierHQ/cashier-sub001/settings"
	"github.com/CashierHQ/cashier-sub001/txmanager/notify"
	"github.com/CashierHQ/cashier-sub001/validator"
)

// Manager owns C6's two entry points.
type Manager struct {
	repo      *repository.Repository
	validator *validator.Validator
	executor  *executor.Executor
	ledger    ledger.Client
	settings  *settings.Handle
	locks     *reqlock.Table
	metrics   *metrics.Metrics
	minter    nftreward.Minter
	hub       *notify.Hub
	logger    logging.Logger
	now       func() time.Time
}

func New(repo *repository.Repository, v *validator.Validator, ex *executor.Executor, ledgerClient ledger.Client, settingsHandle *settings.Handle, locks *reqlock.Table, m *metrics.Metrics, minter nftreward.Minter, hub *notify.Hub, logger logging.Logger) *Manager {
	return &Manager{
		repo:      repo,
		validator: v,
		executor:  ex,
		ledger:    ledgerClient,
		settings:  settingsHandle,
		locks:     locks,
		metrics:   m,
		minter:    minter,
		hub:       hub,
		logger:    logger.NewSystem("txmanager"),
		now:       time.Now,
	}
}

func (m *Manager) notify(action domain.Action) {
	if m.hub == nil {
		return
	}
	m.hub.Publish(notify.Event{
		ActionID:  action.ID,
		LinkID:    action.LinkID,
		Type:      action.Type,
		State:     action.State,
		Timestamp: m.now().Unix(),
	})
}

// CreateAction implements create_action (§4.6). intents must already
// carry amounts and wallets filled in by the link service (out of
// scope here).
func (m *Manager) CreateAction(action domain.Action, intents []domain.Intent) (domain.Action, Icrc112Batch, error) {
	if err := m.settings.GuardMutating(); err != nil {
		return domain.Action{}, nil, err
	}

	lk, err := m.locks.Acquire(action.Creator, "action", action.LinkID)
	if err != nil {
		if m.metrics != nil {
			m.metrics.LockContentionTotal.Inc()
		}
		return domain.Action{}, nil, err
	}
	defer m.locks.Drop(lk)

	if _, err := m.repo.GetAction(action.ID); err == nil {
		return domain.Action{}, nil, apierr.Conflict("action %s exists", action.ID)
	} else if ce, ok := apierr.As(err); !ok || ce.Kind != apierr.KindNotFound {
		return domain.Action{}, nil, err
	}

	nowTs := uint64(m.now().Unix())
	var groupCounter uint8
	newGroup := func() uint8 {
		groupCounter++
		return groupCounter
	}

	txByIntent := make(map[string][]domain.Transaction, len(intents))
	for _, it := range intents {
		txs, err := intent.Expand(it, nowTs, intent.DefaultIDGenerator, newGroup)
		if err != nil {
			return domain.Action{}, nil, err
		}
		txByIntent[it.ID] = txs
	}

	finalTxs, err := depgraph.Lift(intents, txByIntent)
	if err != nil {
		return domain.Action{}, nil, err
	}

	linkUserState := domain.LinkUserState("")
	if action.Type == domain.ActionTypeUse {
		linkUserState = domain.LinkUserStateChooseWallet
	}
	linkAction := domain.LinkAction{
		LinkID:        action.LinkID,
		ActionType:    action.Type,
		UserID:        action.Creator,
		ActionID:      action.ID,
		LinkUserState: linkUserState,
	}

	if err := m.repo.CreateActionBundle(action, intents, finalTxs, linkAction); err != nil {
		return domain.Action{}, nil, err
	}
	if m.metrics != nil {
		m.metrics.ActionsCreatedTotal.WithLabelValues(string(action.Type)).Inc()
	}
	m.notify(action)

	batch := BuildBatch(walletTxs(finalTxs))
	return action, batch, nil
}

// ProcessAction implements process_action (§4.6).
func (m *Manager) ProcessAction(ctx context.Context, actionID, callerWallet string, executeWalletTx bool) (domain.Action, *Icrc112Batch, error) {
	if err := m.settings.GuardMutating(); err != nil {
		return domain.Action{}, nil, err
	}

	lk, err := m.locks.Acquire(callerWallet, "action", actionID)
	if err != nil {
		if m.metrics != nil {
			m.metrics.LockContentionTotal.Inc()
		}
		return domain.Action{}, nil, err
	}
	defer m.locks.Drop(lk)

	data, err := m.repo.LoadActionData(actionID)
	if err != nil {
		return domain.Action{}, nil, err
	}
	initialState := data.Action.State

	allTxs := flatten(data.TransactionsByIntent)
	if err := m.manualStatusCheck(ctx, allTxs); err != nil {
		return domain.Action{}, nil, err
	}

	// reload after manual-check persistence so eligibility is computed
	// against up-to-date states.
	data, err = m.repo.LoadActionData(actionID)
	if err != nil {
		return domain.Action{}, nil, err
	}
	allTxs = flatten(data.TransactionsByIntent)

	eligible := eligibleTransactions(allTxs)
	walletEligible, canisterEligible := partition(eligible)

	var batch *Icrc112Batch
	if !executeWalletTx && len(walletEligible) > 0 {
		b := BuildBatch(walletEligible)
		batch = &b
		startTs := uint64(m.now().Unix())
		for _, tx := range walletEligible {
			tx := tx
			if _, _, err := m.repo.UpdateTxState(tx.ID, domain.StateProcessing, nil); err != nil {
				return domain.Action{}, nil, err
			}
			if err := m.setStartTs(tx.ID, startTs); err != nil {
				return domain.Action{}, nil, err
			}
		}
	}

	if len(canisterEligible) > 0 {
		stateIndex := indexStates(allTxs)
		siblings := func(txID string) (domain.State, bool) {
			s, ok := stateIndex[txID]
			return s, ok
		}
		outcomes := m.executor.ExecuteBatch(ctx, canisterEligible, siblings)
		for _, o := range outcomes {
			var errMsg *string
			if o.Err != nil {
				msg := o.Err.Error()
				errMsg = &msg
			}
			if _, _, err := m.repo.UpdateTxState(o.TransactionID, o.NewState, errMsg); err != nil {
				return domain.Action{}, nil, err
			}
			if o.NewState == domain.StateSuccess {
				if err := m.promotePairedApprove(o.TransactionID, data); err != nil {
					return domain.Action{}, nil, err
				}
			}
		}
	}

	final, err := m.repo.GetAction(actionID)
	if err != nil {
		return domain.Action{}, nil, err
	}

	// reward only on the call that moves the action into Success.
	if link, err := m.repo.GetLink(final.LinkID); err == nil && initialState != domain.StateSuccess {
		if rewardErr := nftreward.MaybeReward(ctx, m.minter, link, final); rewardErr != nil {
			m.logger.Warn("nft completion reward failed", "action_id", final.ID, "error", rewardErr)
		}
	}
	m.notify(final)

	return final, batch, nil
}

// ReconcileTimeouts re-runs C4's manual status check over every
// wallet-initiated transaction still Processing past its start_ts +
// TX_TIMEOUT deadline, persisting any resulting transition. It exists so
// an action whose caller never comes back to invoke process_action again
// still eventually resolves (§4.4/§5), driven by the admin CLI's
// reconcile-timeouts subcommand instead of a caller-triggered retry.
func (m *Manager) ReconcileTimeouts(ctx context.Context, deadline int64) (int, error) {
	stale, err := m.repo.TimedOutProcessingTransactions(deadline)
	if err != nil {
		return 0, err
	}
	if err := m.manualStatusCheck(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// manualStatusCheck runs C4 over every wallet-initiated transaction
// concurrently and persists any state change (§4.6 step 2).
func (m *Manager) manualStatusCheck(ctx context.Context, txs []domain.Transaction) error {
	type result struct {
		id  string
		st  domain.State
		err error
	}

	toCheck := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.FromCallType != domain.FromCallTypeCanister {
			toCheck = append(toCheck, tx)
		}
	}

	results := make([]result, len(toCheck))
	var wg sync.WaitGroup
	for i, tx := range toCheck {
		wg.Add(1)
		go func(i int, tx domain.Transaction) {
			defer wg.Done()
			st, err := m.validator.Check(ctx, tx)
			results[i] = result{id: tx.ID, st: st, err: err}
		}(i, tx)
	}
	wg.Wait()

	var errs []error
	for i, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if r.st != toCheck[i].State {
			if _, _, err := m.repo.UpdateTxState(r.id, r.st, nil); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return apierr.Batch(errs)
	}
	return nil
}

// eligibleTransactions applies the §4.6 step 3 rule: Created or Fail,
// no unresolved dependencies, with an intra-group exception, and a
// group is only launchable if all of its members are simultaneously
// eligible under that relaxed rule.
func eligibleTransactions(txs []domain.Transaction) []domain.Transaction {
	stateOf := indexStates(txs)
	groupOf := make(map[string]uint8, len(txs))
	for _, tx := range txs {
		groupOf[tx.ID] = tx.Group
	}

	candidate := func(tx domain.Transaction) bool {
		if tx.State != domain.StateCreated && tx.State != domain.StateFail {
			return false
		}
		for _, dep := range tx.Dependency {
			if groupOf[dep] != 0 && groupOf[dep] == tx.Group {
				continue // intra-group exception
			}
			if stateOf[dep] != domain.StateSuccess {
				return false
			}
		}
		return true
	}

	candidateOf := make(map[string]bool, len(txs))
	for _, tx := range txs {
		candidateOf[tx.ID] = candidate(tx)
	}

	groupMembers := make(map[uint8][]string)
	for _, tx := range txs {
		if tx.Group != 0 {
			groupMembers[tx.Group] = append(groupMembers[tx.Group], tx.ID)
		}
	}
	groupLaunchable := make(map[uint8]bool, len(groupMembers))
	for g, members := range groupMembers {
		launchable := true
		for _, id := range members {
			if !candidateOf[id] {
				launchable = false
				break
			}
		}
		groupLaunchable[g] = launchable
	}

	var out []domain.Transaction
	for _, tx := range txs {
		if tx.Group != 0 {
			if groupLaunchable[tx.Group] {
				out = append(out, tx)
			}
			continue
		}
		if candidateOf[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}

func partition(txs []domain.Transaction) (wallet, canister []domain.Transaction) {
	for _, tx := range txs {
		if tx.FromCallType == domain.FromCallTypeCanister {
			canister = append(canister, tx)
		} else {
			wallet = append(wallet, tx)
		}
	}
	return wallet, canister
}

// promotePairedApprove implements §4.5's paired handling: when a
// TransferFrom succeeds, its paired Approve (same group, opposite
// from_call_type) is transitioned to Success too.
func (m *Manager) promotePairedApprove(transferFromTxID string, data repository.ActionData) error {
	var group uint8
	found := false
	for _, txs := range data.TransactionsByIntent {
		for _, tx := range txs {
			if tx.ID == transferFromTxID && tx.Protocol.Kind == domain.ProtocolIcrc2TransferFrom {
				group = tx.Group
				found = true
			}
		}
	}
	if !found || group == 0 {
		return nil
	}
	for _, txs := range data.TransactionsByIntent {
		for _, tx := range txs {
			if tx.Group == group && tx.Protocol.Kind == domain.ProtocolIcrc2Approve {
				if _, _, err := m.repo.UpdateTxState(tx.ID, domain.StateSuccess, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *Manager) setStartTs(txID string, ts uint64) error {
	return m.repo.SetTransactionStartTs(txID, ts)
}

func walletTxs(txs []domain.Transaction) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range txs {
		if tx.FromCallType != domain.FromCallTypeCanister {
			out = append(out, tx)
		}
	}
	return out
}

func flatten(byIntent map[string][]domain.Transaction) []domain.Transaction {
	var out []domain.Transaction
	for _, txs := range byIntent {
		out = append(out, txs...)
	}
	return out
}

func indexStates(txs []domain.Transaction) map[string]domain.State {
	out := make(map[string]domain.State, len(txs))
	for _, tx := range txs {
		out[tx.ID] = tx.State
	}
	return out
}
