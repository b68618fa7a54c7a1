// Package linkfsm implements C8: the Link State Machine gating which
// link properties may change in which state and which state follows a
// Continue/Back transition. Grounded on the teacher's ChannelService,
// which similarly checks a Status field before mutating and persisting
// through gorm.
package linkfsm

import (
	"github.com/google/uuid"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/logging"
	"github.com/CashierHQ/cashier-sub001/repository"
)

// forward is the Continue transition table, self-loops omitted (§4.8).
var forward = map[domain.LinkState]domain.LinkState{
	domain.LinkStateChooseLinkType: domain.LinkStateAddAssets,
	domain.LinkStateAddAssets:      domain.LinkStatePreview,
	domain.LinkStatePreview:        domain.LinkStateCreateLink,
	domain.LinkStateCreateLink:     domain.LinkStateActive,
	// Active fans out to Inactive/InactiveEnded via checkLinkAssetLeft,
	// handled specially in Continue rather than in this table.
}

// back is the Back transition table (§4.8 diagram).
var back = map[domain.LinkState]domain.LinkState{
	domain.LinkStateAddAssets: domain.LinkStateChooseLinkType,
	domain.LinkStatePreview:   domain.LinkStateAddAssets,
}

// mutableFields is the fixed set the property-change guard compares
// proposed params against (§4.8).
type mutableFields struct {
	Title                 *string
	Description           *string
	AssetInfo             []domain.AssetInfo
	Template              *string
	LinkType              *domain.LinkType
	LinkImageURL          *string
	NftImage              *string
	LinkUseActionMaxCount *int64
}

// whitelistByState names, per state, which of mutableFields' members
// may differ from the current link when Continue is called from that
// state. The spec names the fixed field set but not a per-state table;
// this mapping follows the natural wizard order the states describe
// (pick type, then assets/presentation, then a read-only review) and is
// recorded as a resolved ambiguity in DESIGN.md.
var whitelistByState = map[domain.LinkState]map[string]bool{
	domain.LinkStateChooseLinkType: {"link_type": true},
	domain.LinkStateAddAssets: {
		"title": true, "description": true, "asset_info": true,
		"template": true, "link_image_url": true, "nft_image": true,
		"link_use_action_max_count": true,
	},
	domain.LinkStatePreview:    {},
	domain.LinkStateCreateLink: {},
	domain.LinkStateActive:     {},
	domain.LinkStateInactive:   {},
}

// Machine drives link transitions, persisting through repo and reading
// vault balances through the ledger's LinkLedger view.
type Machine struct {
	repo   *repository.Repository
	db     LedgerFactory
	logger logging.Logger
}

// LedgerFactory abstracts repository.GetLinkLedger so Machine doesn't
// need a *gorm.DB directly.
type LedgerFactory func(linkID string) *repository.LinkLedger

func New(repo *repository.Repository, ledgerFactory LedgerFactory, logger logging.Logger) *Machine {
	return &Machine{repo: repo, db: ledgerFactory, logger: logger}
}

// propertyChangeGuard fails unless every field that differs between
// current and proposed is on the state's whitelist.
func propertyChangeGuard(state domain.LinkState, current domain.Link, proposed mutableFields) error {
	allowed := whitelistByState[state]

	check := func(name string, changed bool) error {
		if !changed {
			return nil
		}
		if !allowed[name] {
			return apierr.ValidationError("properties not allowed to change in state %s", state)
		}
		return nil
	}

	if err := check("title", proposed.Title != nil && *proposed.Title != current.Title); err != nil {
		return err
	}
	if err := check("description", proposed.Description != nil && *proposed.Description != current.Description); err != nil {
		return err
	}
	if err := check("asset_info", proposed.AssetInfo != nil && !assetInfoEqual(proposed.AssetInfo, current.AssetInfo)); err != nil {
		return err
	}
	if err := check("template", proposed.Template != nil && (current.Template == nil || *proposed.Template != *current.Template)); err != nil {
		return err
	}
	if err := check("link_type", proposed.LinkType != nil && *proposed.LinkType != current.LinkType); err != nil {
		return err
	}
	if err := check("link_image_url", proposed.LinkImageURL != nil && (current.LinkImageURL == nil || *proposed.LinkImageURL != *current.LinkImageURL)); err != nil {
		return err
	}
	if err := check("nft_image", proposed.NftImage != nil && (current.NftImage == nil || *proposed.NftImage != *current.NftImage)); err != nil {
		return err
	}
	if err := check("link_use_action_max_count", proposed.LinkUseActionMaxCount != nil && *proposed.LinkUseActionMaxCount != current.LinkUseActionMaxCount); err != nil {
		return err
	}
	return nil
}

func assetInfoEqual(a, b []domain.AssetInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Asset != b[i].Asset || a[i].Label != b[i].Label || !a[i].AmountPerLinkUseAction.Equal(b[i].AmountPerLinkUseAction) {
			return false
		}
	}
	return true
}

func applyFields(link *domain.Link, proposed mutableFields) {
	if proposed.Title != nil {
		link.Title = *proposed.Title
	}
	if proposed.Description != nil {
		link.Description = *proposed.Description
	}
	if proposed.AssetInfo != nil {
		link.AssetInfo = proposed.AssetInfo
	}
	if proposed.Template != nil {
		link.Template = proposed.Template
	}
	if proposed.LinkType != nil {
		link.LinkType = *proposed.LinkType
	}
	if proposed.LinkImageURL != nil {
		link.LinkImageURL = proposed.LinkImageURL
	}
	if proposed.NftImage != nil {
		link.NftImage = proposed.NftImage
	}
	if proposed.LinkUseActionMaxCount != nil {
		link.LinkUseActionMaxCount = *proposed.LinkUseActionMaxCount
	}
}

// prefetchTemplate requires template and link_type to already be set,
// the entry rule for CreateLink (§4.8).
func prefetchTemplate(link domain.Link) error {
	if link.Template == nil || *link.Template == "" {
		return apierr.ValidationError("template is required")
	}
	if link.LinkType == "" {
		return apierr.ValidationError("link_type is required")
	}
	return nil
}

// prefetchParamsAddAsset requires link_use_action_max_count and
// asset_info to already be set, the entry rule for Preview (§4.8).
func prefetchParamsAddAsset(link domain.Link) error {
	if link.LinkUseActionMaxCount <= 0 {
		return apierr.ValidationError("link_use_action_max_count is required")
	}
	if len(link.AssetInfo) == 0 {
		return apierr.ValidationError("asset_info is required")
	}
	return nil
}

// Continue advances link by one Continue transition, applying proposed
// field changes (validated by the property-change guard) before
// evaluating the transition's own entry condition.
func (m *Machine) Continue(link domain.Link, proposed mutableFields) (domain.Link, error) {
	if link.State == domain.LinkStateInactiveEnded {
		return domain.Link{}, apierr.InvalidTransition("InactiveEnded is terminal")
	}

	if err := propertyChangeGuard(link.State, link, proposed); err != nil {
		return domain.Link{}, err
	}
	applyFields(&link, proposed)

	switch link.State {
	case domain.LinkStateChooseLinkType:
		link.State = forward[link.State]
	case domain.LinkStateAddAssets:
		if err := prefetchParamsAddAsset(link); err != nil {
			return domain.Link{}, err
		}
		link.State = forward[link.State]
	case domain.LinkStatePreview:
		if err := prefetchTemplate(link); err != nil {
			return domain.Link{}, err
		}
		link.State = forward[link.State]
	case domain.LinkStateCreateLink:
		ok, err := m.createLinkActionSucceeded(link.ID)
		if err != nil {
			return domain.Link{}, err
		}
		if !ok {
			return domain.Link{}, apierr.ValidationError("CreateLink action must exist and be Success")
		}
		link.State = forward[link.State]
	case domain.LinkStateActive:
		next, err := m.activeContinue(link)
		if err != nil {
			return domain.Link{}, err
		}
		link.State = next
	case domain.LinkStateInactive:
		ok, err := m.withdrawSucceededAndDrained(link)
		if err != nil {
			return domain.Link{}, err
		}
		if !ok {
			return domain.Link{}, apierr.ValidationError("Withdraw action must be Success and balances must be zero")
		}
		link.State = domain.LinkStateInactiveEnded
	default:
		return domain.Link{}, apierr.InvalidTransition("no Continue transition from %s", link.State)
	}

	if err := m.repo.SaveLink(link); err != nil {
		return domain.Link{}, err
	}
	return link, nil
}

// Back reverts link by one Back transition (§4.8 diagram).
func (m *Machine) Back(link domain.Link, proposed mutableFields) (domain.Link, error) {
	next, ok := back[link.State]
	if !ok {
		return domain.Link{}, apierr.InvalidTransition("no Back transition from %s", link.State)
	}
	if err := propertyChangeGuard(link.State, link, proposed); err != nil {
		return domain.Link{}, err
	}
	applyFields(&link, proposed)
	link.State = next
	if err := m.repo.SaveLink(link); err != nil {
		return domain.Link{}, err
	}
	return link, nil
}

func (m *Machine) createLinkActionSucceeded(linkID string) (bool, error) {
	actions, err := m.repo.ActionsForLinkByType(linkID, domain.ActionTypeCreateLink)
	if err != nil {
		return false, err
	}
	return len(actions) == 1 && actions[0].State == domain.StateSuccess, nil
}

func (m *Machine) activeContinue(link domain.Link) (domain.LinkState, error) {
	left, err := m.checkLinkAssetLeft(link)
	if err != nil {
		return "", err
	}
	if left {
		return domain.LinkStateInactive, nil
	}
	return domain.LinkStateInactiveEnded, nil
}

// checkLinkAssetLeft reports whether any asset balance is positive at
// the link's vault (§4.8).
func (m *Machine) checkLinkAssetLeft(link domain.Link) (bool, error) {
	ledger := m.db(link.ID)
	return ledger.AnyAssetLeft(assetSymbols(link.AssetInfo))
}

func (m *Machine) withdrawSucceededAndDrained(link domain.Link) (bool, error) {
	actions, err := m.repo.ActionsForLinkByType(link.ID, domain.ActionTypeWithdraw)
	if err != nil {
		return false, err
	}
	if len(actions) == 0 {
		return false, nil
	}
	succeeded := false
	for _, a := range actions {
		if a.State == domain.StateSuccess {
			succeeded = true
		}
	}
	if !succeeded {
		return false, nil
	}
	ledger := m.db(link.ID)
	return ledger.AllZero(assetSymbols(link.AssetInfo))
}

func assetSymbols(assets []domain.AssetInfo) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Asset
	}
	return out
}

// CreateLink bootstraps a fresh link in ChooseLinkType and immediately
// drives it through ChooseLinkType->AddAssets->Preview in one call; any
// failure deletes the partially-created link and user_link row (§4.8).
// preview is checked against the Preview state's property-change guard
// and the link is returned in Preview.
func (m *Machine) CreateLink(creator string, linkType domain.LinkType, addAssets mutableFields, preview mutableFields) (domain.Link, error) {
	link := domain.Link{
		ID:       "link_" + uuid.NewString(),
		State:    domain.LinkStateChooseLinkType,
		Creator:  creator,
		LinkType: linkType,
	}
	if err := m.repo.SaveLink(link); err != nil {
		return domain.Link{}, err
	}

	rollback := func() {
		_ = m.repo.DeleteLinkCascade(link.ID, creator)
	}

	link, err := m.Continue(link, mutableFields{LinkType: &linkType})
	if err != nil {
		rollback()
		return domain.Link{}, err
	}
	link, err = m.Continue(link, addAssets)
	if err != nil {
		rollback()
		return domain.Link{}, err
	}
	if err := propertyChangeGuard(link.State, link, preview); err != nil {
		rollback()
		return domain.Link{}, err
	}
	return link, nil
}
