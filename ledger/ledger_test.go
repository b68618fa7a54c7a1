package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/logging"
)

type fakeTransport struct {
	response any
	err      error
	gotMethod string
	gotLedger string
}

func (f *fakeTransport) Call(_ context.Context, ledger, method string, _ any, out any) error {
	f.gotLedger = ledger
	f.gotMethod = method
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(f.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func TestBalanceOfDecodesResponse(t *testing.T) {
	ft := &fakeTransport{response: map[string]string{"balance": "12.5"}}
	c := New(ft, logging.New("test"))

	got, err := c.BalanceOf(context.Background(), "icp-ledger", "alice")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("12.5")))
	require.Equal(t, "icrc1_balance_of", ft.gotMethod)
	require.Equal(t, "icp-ledger", ft.gotLedger)
}

func TestTransferWrapsRejection(t *testing.T) {
	ft := &fakeTransport{err: &CanisterCallRejected{Code: "InsufficientFunds", Msg: "balance too low"}}
	c := New(ft, logging.New("test"))

	_, err := c.Transfer(context.Background(), TransferArgs{Ledger: "icp-ledger", From: "alice", To: "bob", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)

	ce, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindLedgerError, ce.Kind)
	require.Equal(t, "InsufficientFunds", ce.Code)
}

func TestTransferFromWrapsUnknownError(t *testing.T) {
	ft := &fakeTransport{err: context.DeadlineExceeded}
	c := New(ft, logging.New("test"))

	_, err := c.TransferFrom(context.Background(), TransferFromArgs{Ledger: "icp-ledger", From: "alice", To: "bob", Spender: "carol", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)

	ce, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, "unknown", ce.Code)
}

func TestApproveReturnsBlockIndex(t *testing.T) {
	ft := &fakeTransport{response: map[string]uint64{"block_index": 42}}
	c := New(ft, logging.New("test"))

	idx, err := c.Approve(context.Background(), ApproveArgs{Ledger: "icp-ledger", From: "alice", Spender: "bob", Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.Equal(t, uint64(42), idx)
}

func TestVaultSubaccountIsDeterministic(t *testing.T) {
	a := VaultSubaccount("link-1")
	b := VaultSubaccount("link-1")
	c := VaultSubaccount("link-2")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
