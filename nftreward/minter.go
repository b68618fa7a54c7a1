// Package nftreward supplements the distilled spec with the completion
// reward the original implementation grants on a successful SendAirdrop
// claim: minting a commemorative NFT to the claimer. Grounded on
// original_source's services/ext/cashier_nft.rs mint_nft, which talks to
// a sibling NFT canister identified by a fixed principal — here
// generalized to an injected Minter so the engine never hard-codes that
// principal (it lives in config.EngineConfig.CashierNftCanisterID).
package nftreward

import (
	"context"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/logging"
)

// MintArgs carries what the minter needs to identify the reward: the
// owning principal and the link/action that earned it.
type MintArgs struct {
	Owner    string
	LinkID   string
	ActionID string
}

// Minter mints a completion-reward NFT. Implementations talk to the NFT
// canister over whatever transport the outer process wires in; that
// wire format is out of scope here the same way the ledger's is (§1).
type Minter interface {
	Mint(ctx context.Context, args MintArgs) error
}

// NoopMinter is the default Minter: it logs and does nothing, so the
// engine runs correctly in environments with no NFT canister configured
// (CashierNftCanisterID unset).
type NoopMinter struct {
	logger logging.Logger
}

func NewNoopMinter(logger logging.Logger) *NoopMinter {
	return &NoopMinter{logger: logger.NewSystem("nftreward")}
}

func (m *NoopMinter) Mint(_ context.Context, args MintArgs) error {
	m.logger.Debug("skipping nft mint: no minter configured", "owner", args.Owner, "link_id", args.LinkID, "action_id", args.ActionID)
	return nil
}

// MaybeReward mints a completion NFT iff the action is a Success Use
// action against a SendAirdrop link, the condition the original
// implementation's claim flow calls mint_nft under.
func MaybeReward(ctx context.Context, minter Minter, link domain.Link, action domain.Action) error {
	if link.LinkType != domain.LinkTypeSendAirdrop {
		return nil
	}
	if action.Type != domain.ActionTypeUse || action.State != domain.StateSuccess {
		return nil
	}
	return minter.Mint(ctx, MintArgs{Owner: action.Creator, LinkID: link.ID, ActionID: action.ID})
}
