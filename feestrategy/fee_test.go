package feestrategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CashierHQ/cashier-sub001/domain"
)

func transferIntent(task domain.IntentTask, amount decimal.Decimal) domain.Intent {
	return domain.Intent{
		Task: task,
		Type: domain.IntentType{
			Kind:         domain.IntentTypeTransfer,
			TransferArgs: &domain.TransferArgs{Amount: amount},
		},
	}
}

func TestSelectFlowDispatchesByTaskAndCaller(t *testing.T) {
	flow, err := SelectFlow(domain.TaskTransferWalletToTreasury, true)
	require.NoError(t, err)
	require.Equal(t, domain.FlowCreatorToTreasury, flow)

	flow, err = SelectFlow(domain.TaskTransferWalletToLink, true)
	require.NoError(t, err)
	require.Equal(t, domain.FlowCreatorToLink, flow)

	flow, err = SelectFlow(domain.TaskTransferWalletToLink, false)
	require.NoError(t, err)
	require.Equal(t, domain.FlowUserToLink, flow)

	flow, err = SelectFlow(domain.TaskTransferLinkToWallet, true)
	require.NoError(t, err)
	require.Equal(t, domain.FlowLinkToCreator, flow)

	flow, err = SelectFlow(domain.TaskTransferLinkToWallet, false)
	require.NoError(t, err)
	require.Equal(t, domain.FlowLinkToUser, flow)

	_, err = SelectFlow("bogus", true)
	require.Error(t, err)
}

func TestComputeCreatorToTreasuryChargesInboundFeePerTransaction(t *testing.T) {
	networkFee := decimal.NewFromInt(1)
	it := transferIntent(domain.TaskTransferWalletToTreasury, decimal.NewFromInt(100))
	it.Type.Kind = domain.IntentTypeTransferFrom
	it.Type.TransferFromArgs = &domain.TransferFromArgs{Amount: decimal.NewFromInt(100)}
	txs := []domain.Transaction{
		{Protocol: domain.Protocol{Kind: domain.ProtocolIcrc2Approve}},
		{Protocol: domain.Protocol{Kind: domain.ProtocolIcrc2TransferFrom}},
	}

	res, err := Compute(domain.Link{}, it, txs, networkFee, true)
	require.NoError(t, err)
	require.True(t, res.IntentTotalAmount.Equal(decimal.NewFromInt(102)))
}

func TestComputeCreatorToLinkChargesOutboundPerMaxUse(t *testing.T) {
	networkFee := decimal.NewFromInt(1)
	link := domain.Link{LinkUseActionMaxCount: 5}
	it := transferIntent(domain.TaskTransferWalletToLink, decimal.NewFromInt(50))
	txs := []domain.Transaction{{Protocol: domain.Protocol{Kind: domain.ProtocolIcrc1Transfer}}}

	res, err := Compute(link, it, txs, networkFee, true)
	require.NoError(t, err)
	require.True(t, res.IntentTotalNetworkFee.Equal(decimal.NewFromInt(6)))
	require.True(t, res.IntentTotalAmount.Equal(decimal.NewFromInt(56)))
}

func TestComputeLinkToUserChargesNoUserFee(t *testing.T) {
	networkFee := decimal.NewFromInt(1)
	it := transferIntent(domain.TaskTransferLinkToWallet, decimal.NewFromInt(20))

	res, err := Compute(domain.Link{}, it, nil, networkFee, false)
	require.NoError(t, err)
	require.True(t, res.IntentUserFee.IsZero())
	require.True(t, res.IntentTotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestComputeLinkToCreatorChargesUserFee(t *testing.T) {
	networkFee := decimal.NewFromInt(1)
	it := transferIntent(domain.TaskTransferLinkToWallet, decimal.NewFromInt(20))

	res, err := Compute(domain.Link{}, it, nil, networkFee, true)
	require.NoError(t, err)
	require.True(t, res.IntentUserFee.Equal(networkFee))
}
