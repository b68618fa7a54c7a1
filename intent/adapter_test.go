package intent

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CashierHQ/cashier-sub001/domain"
)

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestExpandWalletToLinkProducesOneTransfer(t *testing.T) {
	it := domain.Intent{
		ID:   "intent-1",
		Task: domain.TaskTransferWalletToLink,
		Type: domain.IntentType{
			Kind:         domain.IntentTypeTransfer,
			TransferArgs: &domain.TransferArgs{From: "alice", To: "vault", Asset: "icp", Amount: decimal.NewFromInt(10)},
		},
	}

	txs, err := Expand(it, 100, sequentialIDs("tx"), nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, domain.ProtocolIcrc1Transfer, txs[0].Protocol.Kind)
	require.Equal(t, domain.FromCallTypeWallet, txs[0].FromCallType)
	require.Equal(t, uint64(100), txs[0].Protocol.Icrc1Transfer.Ts)
}

func TestExpandLinkToWalletIsCanisterInitiated(t *testing.T) {
	it := domain.Intent{
		ID:   "intent-2",
		Task: domain.TaskTransferLinkToWallet,
		Type: domain.IntentType{
			Kind:         domain.IntentTypeTransfer,
			TransferArgs: &domain.TransferArgs{From: "vault", To: "bob", Asset: "icp", Amount: decimal.NewFromInt(5)},
		},
	}

	txs, err := Expand(it, 1, sequentialIDs("tx"), nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, domain.FromCallTypeCanister, txs[0].FromCallType)
}

func TestExpandWalletToTreasuryProducesApproveThenTransferFromPair(t *testing.T) {
	it := domain.Intent{
		ID:   "intent-3",
		Task: domain.TaskTransferWalletToTreasury,
		Type: domain.IntentType{
			Kind: domain.IntentTypeTransferFrom,
			TransferFromArgs: &domain.TransferFromArgs{
				From: "alice", To: "treasury", Spender: "vault", Asset: "icp", Amount: decimal.NewFromInt(3),
			},
		},
	}

	calls := 0
	newGroup := func() uint8 { calls++; return 7 }

	txs, err := Expand(it, 1, sequentialIDs("tx"), newGroup)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, 1, calls)

	approve, transferFrom := txs[0], txs[1]
	require.Equal(t, domain.ProtocolIcrc2Approve, approve.Protocol.Kind)
	require.Equal(t, domain.ProtocolIcrc2TransferFrom, transferFrom.Protocol.Kind)
	require.Equal(t, approve.Group, transferFrom.Group)
	require.Equal(t, []string{approve.ID}, []string(transferFrom.Dependency))
	require.True(t, approve.Protocol.Icrc2Approve.Amount.Equal(decimal.NewFromInt(3)))
}

func TestExpandUsesApproveAmountWhenDistinctFromActual(t *testing.T) {
	approveAmt := decimal.NewFromInt(100)
	actualAmt := decimal.NewFromInt(3)
	it := domain.Intent{
		ID:   "intent-4",
		Task: domain.TaskTransferWalletToTreasury,
		Type: domain.IntentType{
			Kind: domain.IntentTypeTransferFrom,
			TransferFromArgs: &domain.TransferFromArgs{
				From: "alice", To: "treasury", Spender: "vault", Asset: "icp",
				Amount: actualAmt, ApproveAmount: &approveAmt, ActualAmount: &actualAmt,
			},
		},
	}

	txs, err := Expand(it, 1, sequentialIDs("tx"), func() uint8 { return 1 })
	require.NoError(t, err)
	require.True(t, txs[0].Protocol.Icrc2Approve.Amount.Equal(approveAmt))
	require.True(t, txs[1].Protocol.Icrc2TransferFrom.Amount.Equal(actualAmt))
}

func TestExpandRejectsInvalidTaskTypePair(t *testing.T) {
	it := domain.Intent{
		ID:   "intent-5",
		Task: domain.TaskTransferWalletToLink,
		Type: domain.IntentType{Kind: domain.IntentTypeTransferFrom},
	}

	_, err := Expand(it, 1, sequentialIDs("tx"), nil)
	require.Error(t, err)
}

func TestExpandRejectsNonPositiveAmount(t *testing.T) {
	it := domain.Intent{
		ID:   "intent-6",
		Task: domain.TaskTransferWalletToLink,
		Type: domain.IntentType{
			Kind:         domain.IntentTypeTransfer,
			TransferArgs: &domain.TransferArgs{From: "alice", To: "vault", Asset: "icp", Amount: decimal.Zero},
		},
	}

	_, err := Expand(it, 1, sequentialIDs("tx"), nil)
	require.Error(t, err)
}

func TestExpandRejectsMismatchedApproveActualAmounts(t *testing.T) {
	approveAmt := decimal.NewFromInt(100)
	it := domain.Intent{
		ID:   "intent-7",
		Task: domain.TaskTransferWalletToTreasury,
		Type: domain.IntentType{
			Kind: domain.IntentTypeTransferFrom,
			TransferFromArgs: &domain.TransferFromArgs{
				From: "alice", To: "treasury", Spender: "vault", Asset: "icp",
				Amount: decimal.NewFromInt(3), ApproveAmount: &approveAmt,
			},
		},
	}

	_, err := Expand(it, 1, sequentialIDs("tx"), func() uint8 { return 1 })
	require.Error(t, err)
}
