// Package userfsm implements C9: the per-user progress marker on a
// LinkAction. Grounded on the same small-state-check style as linkfsm.
package userfsm

import (
	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/repository"
)

// Machine drives LinkAction.LinkUserState transitions.
type Machine struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Machine {
	return &Machine{repo: repo}
}

// AnonymousUserID synthesises the user id a caller who only presents an
// anonymous_wallet_address is identified by (§4.9).
func AnonymousUserID(walletAddress string) string {
	return domain.AnonPrefix + walletAddress
}

// Continue is the only legal LinkUserState transition,
// ChooseWallet->CompletedLink, permitted iff the referenced action's
// current state is Success (§4.9).
func (m *Machine) Continue(linkID string, actionType domain.ActionType, userID string) (domain.LinkAction, error) {
	la, err := m.repo.GetLinkAction(linkID, actionType, userID)
	if err != nil {
		return domain.LinkAction{}, err
	}
	if la.LinkUserState != domain.LinkUserStateChooseWallet {
		return domain.LinkAction{}, apierr.InvalidTransition("no Continue transition from %s", la.LinkUserState)
	}

	action, err := m.repo.GetAction(la.ActionID)
	if err != nil {
		return domain.LinkAction{}, err
	}
	if action.State != domain.StateSuccess {
		return domain.LinkAction{}, apierr.InvalidTransition("action %s is not Success", action.ID)
	}

	la.LinkUserState = domain.LinkUserStateCompletedLink
	if err := m.repo.SaveLinkAction(la); err != nil {
		return domain.LinkAction{}, err
	}
	return la, nil
}
