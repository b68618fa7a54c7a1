package nftreward

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CashierHQ/cashier-sub001/domain"
)

type recordingMinter struct {
	called bool
	args   MintArgs
}

func (m *recordingMinter) Mint(_ context.Context, args MintArgs) error {
	m.called = true
	m.args = args
	return nil
}

func TestMaybeRewardOnlyMintsForSuccessfulAirdropUse(t *testing.T) {
	link := domain.Link{ID: "l1", LinkType: domain.LinkTypeSendAirdrop}
	action := domain.Action{ID: "a1", Type: domain.ActionTypeUse, State: domain.StateSuccess, Creator: "user-1"}

	m := &recordingMinter{}
	require.NoError(t, MaybeReward(context.Background(), m, link, action))
	require.True(t, m.called)
	require.Equal(t, "user-1", m.args.Owner)
}

func TestMaybeRewardSkipsNonAirdrop(t *testing.T) {
	link := domain.Link{ID: "l2", LinkType: domain.LinkTypeSendTip}
	action := domain.Action{ID: "a2", Type: domain.ActionTypeUse, State: domain.StateSuccess}

	m := &recordingMinter{}
	require.NoError(t, MaybeReward(context.Background(), m, link, action))
	require.False(t, m.called)
}

func TestMaybeRewardSkipsNonSuccess(t *testing.T) {
	link := domain.Link{ID: "l3", LinkType: domain.LinkTypeSendAirdrop}
	action := domain.Action{ID: "a3", Type: domain.ActionTypeUse, State: domain.StateProcessing}

	m := &recordingMinter{}
	require.NoError(t, MaybeReward(context.Background(), m, link, action))
	require.False(t, m.called)
}
