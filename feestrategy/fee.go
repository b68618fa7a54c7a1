// Package feestrategy implements C10: per-flow fee computation. The
// five flows are selected by a pure function (task, caller==creator) ->
// Flow (§9 "Dynamic dispatch" — a tagged enum with a dispatch function,
// no global registry), grounded on the same strategy-interface shape the
// teacher uses for its three AppSessionUpdater variants.
package feestrategy

import (
	"github.com/shopspring/decimal"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
)

// Result is the pure output of a fee Strategy: (§4.10).
type Result struct {
	IntentTotalNetworkFee decimal.Decimal
	IntentUserFee         decimal.Decimal
	IntentTotalAmount     decimal.Decimal
}

// Strategy computes a Result given a link, intent, its transactions and
// the ledger's network fee. Each of the five flows is a concrete
// implementation; SelectFlow below is the dispatch function.
type Strategy interface {
	Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal) (Result, error)
}

// SelectFlow is the pure dispatch function (task, caller==creator) ->
// Flow named in §9.
func SelectFlow(task domain.IntentTask, callerIsCreator bool) (domain.FeeFlow, error) {
	switch {
	case task == domain.TaskTransferWalletToTreasury:
		return domain.FlowCreatorToTreasury, nil
	case task == domain.TaskTransferWalletToLink && callerIsCreator:
		return domain.FlowCreatorToLink, nil
	case task == domain.TaskTransferWalletToLink && !callerIsCreator:
		return domain.FlowUserToLink, nil
	case task == domain.TaskTransferLinkToWallet && callerIsCreator:
		return domain.FlowLinkToCreator, nil
	case task == domain.TaskTransferLinkToWallet && !callerIsCreator:
		return domain.FlowLinkToUser, nil
	default:
		return "", apierr.ValidationError("no fee flow for task %s", task)
	}
}

// Strategies indexes the five concrete Strategy implementations by Flow.
var Strategies = map[domain.FeeFlow]Strategy{
	domain.FlowCreatorToTreasury: creatorToTreasury{},
	domain.FlowCreatorToLink:     creatorToLink{},
	domain.FlowUserToLink:        userToLink{},
	domain.FlowLinkToUser:        linkToUser{},
	domain.FlowLinkToCreator:     linkToCreator{},
}

// Compute dispatches to the Strategy selected by SelectFlow.
func Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal, callerIsCreator bool) (Result, error) {
	flow, err := SelectFlow(it.Task, callerIsCreator)
	if err != nil {
		return Result{}, err
	}
	return Strategies[flow].Compute(link, it, txs, networkFee)
}

// inboundFee derives "inbound" from the transaction list: an ICRC-1
// transfer costs one ledger fee, an ICRC-2 Approve+TransferFrom pair
// costs two (§4.10).
func inboundFee(txs []domain.Transaction, networkFee decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		switch tx.Protocol.Kind {
		case domain.ProtocolIcrc1Transfer:
			total = total.Add(networkFee)
		case domain.ProtocolIcrc2Approve, domain.ProtocolIcrc2TransferFrom:
			total = total.Add(networkFee)
		}
	}
	return total
}

func intentAmount(it domain.Intent) decimal.Decimal {
	switch it.Type.Kind {
	case domain.IntentTypeTransfer:
		return it.Type.TransferArgs.Amount
	case domain.IntentTypeTransferFrom:
		return it.Type.TransferFromArgs.Amount
	default:
		return decimal.Zero
	}
}

// creatorToTreasury: inbound derived from the transactions (two ledger
// fees for the Approve+TransferFrom pair), no outbound, user pays
// amount + inbound.
type creatorToTreasury struct{}

func (creatorToTreasury) Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal) (Result, error) {
	inbound := inboundFee(txs, networkFee)
	amount := intentAmount(it)
	return Result{
		IntentTotalNetworkFee: inbound,
		IntentUserFee:         inbound,
		IntentTotalAmount:     amount.Add(inbound),
	}, nil
}

// creatorToLink: ledger fee x 1 inbound, ledger fee x max_use outbound,
// user pays inbound + outbound.
type creatorToLink struct{}

func (creatorToLink) Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal) (Result, error) {
	inbound := inboundFee(txs, networkFee)
	outbound := networkFee.Mul(decimal.NewFromInt(link.LinkUseActionMaxCount))
	amount := intentAmount(it)
	return Result{
		IntentTotalNetworkFee: inbound.Add(outbound),
		IntentUserFee:         inbound.Add(outbound),
		IntentTotalAmount:     amount.Add(inbound).Add(outbound),
	}, nil
}

// userToLink: ledger fee x 1 inbound, ledger fee x 1 outbound, user pays
// inbound + outbound.
type userToLink struct{}

func (userToLink) Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal) (Result, error) {
	inbound := inboundFee(txs, networkFee)
	outbound := networkFee
	amount := intentAmount(it)
	return Result{
		IntentTotalNetworkFee: inbound.Add(outbound),
		IntentUserFee:         inbound.Add(outbound),
		IntentTotalAmount:     amount.Add(inbound).Add(outbound),
	}, nil
}

// linkToUser: no inbound, ledger fee x 1 outbound, user pays 0.
type linkToUser struct{}

func (linkToUser) Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal) (Result, error) {
	amount := intentAmount(it)
	return Result{
		IntentTotalNetworkFee: networkFee,
		IntentUserFee:         decimal.Zero,
		IntentTotalAmount:     amount,
	}, nil
}

// linkToCreator: no inbound, ledger fee x 1 outbound, user pays outbound.
type linkToCreator struct{}

func (linkToCreator) Compute(link domain.Link, it domain.Intent, txs []domain.Transaction, networkFee decimal.Decimal) (Result, error) {
	amount := intentAmount(it)
	return Result{
		IntentTotalNetworkFee: networkFee,
		IntentUserFee:         networkFee,
		IntentTotalAmount:     amount,
	}, nil
}
