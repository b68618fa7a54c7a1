package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
)

// Repository is C7's storage-facing half: atomic persistence of the
// action/intent/transaction bundle and the update_tx_state rollup of
// §4.7. The deterministic aggregation math itself lives in
// domain.RollupState; this type owns only the read-modify-write dance
// around it.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ActionData is the (action, intents, intent->transactions) bundle
// process_action operates on (§4.6 step 1).
type ActionData struct {
	Action             domain.Action
	Intents            []domain.Intent
	TransactionsByIntent map[string][]domain.Transaction
}

// RollupResult reports the action's state before and after a rollup so
// the Link State Machine (C8) can react to the transition (§4.7).
type RollupResult struct {
	PreviousState domain.Action
	CurrentState  domain.Action
}

// GetAction returns NotFound if no action with this id is persisted,
// satisfying the create_action idempotence check (§4.6 step 1).
func (r *Repository) GetAction(id string) (domain.Action, error) {
	var a domain.Action
	err := r.db.First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Action{}, apierr.NotFound(fmt.Sprintf("action %s", id))
	}
	if err != nil {
		return domain.Action{}, err
	}
	return a, nil
}

// LoadActionData loads the full bundle needed by process_action.
func (r *Repository) LoadActionData(actionID string) (ActionData, error) {
	action, err := r.GetAction(actionID)
	if err != nil {
		return ActionData{}, err
	}

	var intents []domain.Intent
	if err := r.db.Where("action_id = ?", actionID).Find(&intents).Error; err != nil {
		return ActionData{}, err
	}

	byIntent := make(map[string][]domain.Transaction, len(intents))
	for _, it := range intents {
		var txs []domain.Transaction
		if err := r.db.Where("intent_id = ?", it.ID).Find(&txs).Error; err != nil {
			return ActionData{}, err
		}
		byIntent[it.ID] = txs
	}

	return ActionData{Action: action, Intents: intents, TransactionsByIntent: byIntent}, nil
}

// CreateActionBundle persists action, intents, transactions and the
// join rows atomically from the caller's point of view (§4.6 step 5).
// Any error rolls back the entire transaction; no partial persistence.
func (r *Repository) CreateActionBundle(
	action domain.Action,
	intents []domain.Intent,
	transactions []domain.Transaction,
	linkAction domain.LinkAction,
) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("persisting action: %w", err)
		}
		for _, it := range intents {
			if err := tx.Create(&it).Error; err != nil {
				return fmt.Errorf("persisting intent %s: %w", it.ID, err)
			}
			if err := tx.Create(&domain.ActionIntent{ActionID: action.ID, IntentID: it.ID}).Error; err != nil {
				return fmt.Errorf("persisting action_intent: %w", err)
			}
		}
		for _, t := range transactions {
			if err := tx.Create(&t).Error; err != nil {
				return fmt.Errorf("persisting transaction %s: %w", t.ID, err)
			}
			if err := tx.Create(&domain.IntentTransaction{IntentID: t.IntentID, TransactionID: t.ID}).Error; err != nil {
				return fmt.Errorf("persisting intent_transaction: %w", err)
			}
		}
		if err := tx.Create(&linkAction).Error; err != nil {
			return fmt.Errorf("persisting link_action: %w", err)
		}
		if err := tx.Create(&domain.UserAction{UserID: linkAction.UserID, ActionID: action.ID}).Error; err != nil {
			return fmt.Errorf("persisting user_action: %w", err)
		}
		if err := tx.FirstOrCreate(&domain.UserLink{}, domain.UserLink{UserID: linkAction.UserID, LinkID: linkAction.LinkID}).Error; err != nil {
			return fmt.Errorf("persisting user_link: %w", err)
		}
		return nil
	})
}

// UpdateTxState implements update_tx_state (§4.7): a no-op unless the
// state actually changes, otherwise a three-level rollup of
// transaction -> intent -> action, applying the counter invariant when
// a Use action enters Success.
func (r *Repository) UpdateTxState(txID string, newState domain.State, txErr *string) (RollupResult, bool, error) {
	var result RollupResult
	changed := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var t domain.Transaction
		if err := tx.First(&t, "id = ?", txID).Error; err != nil {
			return err
		}
		if t.State == newState {
			return nil
		}
		changed = true

		t.State = newState
		t.Error = txErr
		if err := tx.Save(&t).Error; err != nil {
			return err
		}

		var it domain.Intent
		if err := tx.First(&it, "id = ?", t.IntentID).Error; err != nil {
			return err
		}
		var siblingTxs []domain.Transaction
		if err := tx.Where("intent_id = ?", it.ID).Find(&siblingTxs).Error; err != nil {
			return err
		}
		it.State = domain.RollupState(states(siblingTxs))
		if err := tx.Save(&it).Error; err != nil {
			return err
		}

		var action domain.Action
		if err := tx.First(&action, "id = ?", it.ActionID).Error; err != nil {
			return err
		}
		result.PreviousState = action

		var siblingIntents []domain.Intent
		if err := tx.Where("action_id = ?", action.ID).Find(&siblingIntents).Error; err != nil {
			return err
		}
		action.State = domain.RollupState(intentStates(siblingIntents))

		if action.Type == domain.ActionTypeUse && action.State == domain.StateSuccess && result.PreviousState.State != domain.StateSuccess {
			if err := r.bumpLinkCounter(tx, action.LinkID); err != nil {
				return err
			}
		}

		if err := tx.Save(&action).Error; err != nil {
			return err
		}
		result.CurrentState = action
		return nil
	})
	if err != nil {
		return RollupResult{}, false, err
	}
	return result, changed, nil
}

// bumpLinkCounter enforces the §4.7 counter invariant inside the same
// transaction as the state write it is triggered by.
func (r *Repository) bumpLinkCounter(tx *gorm.DB, linkID string) error {
	var link domain.Link
	if err := tx.First(&link, "id = ?", linkID).Error; err != nil {
		return err
	}
	if link.LinkUseActionCounter+1 > link.LinkUseActionMaxCount {
		return apierr.LimitExceeded("link %s has no remaining uses", linkID)
	}
	link.LinkUseActionCounter++
	return tx.Save(&link).Error
}

// SetTransactionStartTs records start_ts on a transaction entering
// Processing as a wallet call, the "register a timeout guardian" step
// of §4.6 step 5a: the Validator's timeout policy (§4.4) reads this
// field on the next manual status check.
func (r *Repository) SetTransactionStartTs(txID string, ts uint64) error {
	return r.db.Model(&domain.Transaction{}).Where("id = ?", txID).Update("start_ts", ts).Error
}

// GetLink loads a link by id, NotFound if absent.
func (r *Repository) GetLink(id string) (domain.Link, error) {
	var l domain.Link
	err := r.db.First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Link{}, apierr.NotFound(fmt.Sprintf("link %s", id))
	}
	return l, err
}

// SaveLink persists link, used by the Link State Machine (C8).
func (r *Repository) SaveLink(link domain.Link) error {
	return r.db.Save(&link).Error
}

// DeleteLinkCascade removes a link and its user_link row, used by the
// create_link bootstrap's rollback-on-failure (§4.8).
func (r *Repository) DeleteLinkCascade(linkID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.UserLink{}, "user_id = ? AND link_id = ?", userID, linkID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Link{}, "id = ?", linkID).Error
	})
}

// GetLinkAction loads the per-user progress row keyed by
// (link_id, action_type, user_id), used by C9.
func (r *Repository) GetLinkAction(linkID string, actionType domain.ActionType, userID string) (domain.LinkAction, error) {
	var la domain.LinkAction
	err := r.db.First(&la, "link_id = ? AND action_type = ? AND user_id = ?", linkID, actionType, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.LinkAction{}, apierr.NotFound(fmt.Sprintf("link_action %s/%s/%s", linkID, actionType, userID))
	}
	return la, err
}

// SaveLinkAction persists la, used by C9's ChooseWallet->CompletedLink
// transition.
func (r *Repository) SaveLinkAction(la domain.LinkAction) error {
	return r.db.Save(&la).Error
}

// ActionsForLinkByType returns every action of actionType against
// linkID, used by C8's CreateLink->Active and Inactive->InactiveEnded
// conditions which require "the single CreateLink/Withdraw action ...
// must exist and be in Success".
func (r *Repository) ActionsForLinkByType(linkID string, actionType domain.ActionType) ([]domain.Action, error) {
	var actions []domain.Action
	err := r.db.Where("link_id = ? AND type = ?", linkID, actionType).Find(&actions).Error
	return actions, err
}

// GetIntent is an admin-surface read, used by the admin CLI's
// admin-get-intent subcommand.
func (r *Repository) GetIntent(id string) (domain.Intent, error) {
	var it domain.Intent
	err := r.db.First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Intent{}, apierr.NotFound(fmt.Sprintf("intent %s", id))
	}
	return it, err
}

// GetTransaction is an admin-surface read, used by the admin CLI's
// admin-get-transaction subcommand.
func (r *Repository) GetTransaction(id string) (domain.Transaction, error) {
	var tx domain.Transaction
	err := r.db.First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Transaction{}, apierr.NotFound(fmt.Sprintf("transaction %s", id))
	}
	return tx, err
}

// TimedOutProcessingTransactions returns every wallet-initiated
// transaction still in Processing with a start_ts old enough that
// deadline has elapsed (§4.4's timeout guardian), for the admin CLI's
// reconcile-timeouts subcommand to re-run C4's manual status check on.
func (r *Repository) TimedOutProcessingTransactions(deadline int64) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := r.db.Where("state = ? AND from_call_type = ? AND start_ts IS NOT NULL AND start_ts < ?",
		domain.StateProcessing, domain.FromCallTypeWallet, deadline).Find(&txs).Error
	return txs, err
}

func states(txs []domain.Transaction) []domain.State {
	out := make([]domain.State, len(txs))
	for i, t := range txs {
		out[i] = t.State
	}
	return out
}

func intentStates(intents []domain.Intent) []domain.State {
	out := make([]domain.State, len(intents))
	for i, it := range intents {
		out[i] = it.State
	}
	return out
}
