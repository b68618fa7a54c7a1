package txmanager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/executor"
	"github.com/CashierHQ/cashier-sub001/ledger"
	"github.com/CashierHQ/cashier-sub001/logging"
	"github.com/CashierHQ/cashier-sub001/metrics"
	"github.com/CashierHQ/cashier-sub001/nftreward"
	"github.com/CashierHQ/cashier-sub001/repository"
	"github.com/CashierHQ/cashier-sub001/reqlock"
	"github.com/CashierHQ/cashier-sub001/settings"
	"github.com/CashierHQ/cashier-sub001/validator"
)

// fakeLedger is a minimal in-memory ledger.Client that accepts every
// transfer and records it in a balance map, so canister-initiated
// transactions resolve to Success on the first executeOne attempt.
type fakeLedger struct {
	balances map[string]decimal.Decimal
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]decimal.Decimal)}
}

func (f *fakeLedger) BalanceOf(_ context.Context, _, account string) (decimal.Decimal, error) {
	return f.balances[account], nil
}

func (f *fakeLedger) Allowance(_ context.Context, _, _, _ string) (ledger.Allowance, error) {
	return ledger.Allowance{Allowance: decimal.NewFromInt(1_000_000)}, nil
}

func (f *fakeLedger) Transfer(_ context.Context, args ledger.TransferArgs) (uint64, error) {
	f.balances[args.To] = f.balances[args.To].Add(args.Amount)
	return 1, nil
}

func (f *fakeLedger) TransferFrom(_ context.Context, args ledger.TransferFromArgs) (uint64, error) {
	f.balances[args.To] = f.balances[args.To].Add(args.Amount)
	return 1, nil
}

func (f *fakeLedger) Approve(_ context.Context, _ ledger.ApproveArgs) (uint64, error) {
	return 1, nil
}

// memSettingsStore is an in-memory settings.Store for tests.
type memSettingsStore struct {
	cur domain.Settings
}

func (s *memSettingsStore) Load() (domain.Settings, error) { return s.cur, nil }
func (s *memSettingsStore) Save(next domain.Settings) error {
	s.cur = next
	return nil
}

func setupTestSqlite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file::memory:test%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Link{}, &domain.Action{}, &domain.Intent{}, &domain.Transaction{},
		&domain.ActionIntent{}, &domain.IntentTransaction{}, &domain.LinkAction{},
		&domain.UserAction{}, &domain.UserLink{}, &domain.UserWallet{}, &domain.Settings{},
		&repository.LedgerEntry{},
	))
	return db
}

func newTestManager(t *testing.T, db *gorm.DB, fl ledger.Client) *Manager {
	t.Helper()
	return newTestManagerWithAdmins(t, db, fl, nil)
}

func newTestManagerWithAdmins(t *testing.T, db *gorm.DB, fl ledger.Client, admins []string) *Manager {
	t.Helper()
	logger := logging.New("txmanager-test")
	repo := repository.New(db)
	v := validator.New(fl, time.Minute, logger)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	ex := executor.New(fl, m, logger)
	sh, err := settings.New(&memSettingsStore{cur: domain.Settings{Admins: admins}})
	require.NoError(t, err)
	locks := reqlock.New(time.Minute)
	minter := nftreward.NewNoopMinter(logger)
	return New(repo, v, ex, fl, sh, locks, m, minter, nil, logger)
}

func seedLink(t *testing.T, db *gorm.DB) domain.Link {
	t.Helper()
	link := domain.Link{
		ID:                    "link_" + uuid.NewString(),
		State:                 domain.LinkStateActive,
		LinkType:              domain.LinkTypeSendAirdrop,
		Creator:               "creator-1",
		LinkUseActionMaxCount: 10,
		AssetInfo: []domain.AssetInfo{
			{Asset: "ICP", AmountPerLinkUseAction: decimal.NewFromInt(5), Label: domain.AssetLabelSendAirdrop},
		},
	}
	require.NoError(t, db.Create(&link).Error)
	return link
}

func TestCreateActionThenProcessActionSucceeds(t *testing.T) {
	db := setupTestSqlite(t)
	fl := newFakeLedger()
	m := newTestManager(t, db, fl)
	link := seedLink(t, db)

	action := domain.Action{ID: "action_" + uuid.NewString(), Type: domain.ActionTypeUse, State: domain.StateCreated, Creator: "user-1", LinkID: link.ID}
	intents := []domain.Intent{
		{
			ID:       "intent_" + uuid.NewString(),
			State:    domain.StateCreated,
			Task:     domain.TaskTransferLinkToWallet,
			ActionID: action.ID,
			Type: domain.IntentType{
				Kind: domain.IntentTypeTransfer,
				TransferArgs: &domain.TransferArgs{
					From: ledger.VaultSubaccount(link.ID), To: "user-1", Asset: "ICP", Amount: decimal.NewFromInt(5),
				},
			},
		},
	}

	created, batch, err := m.CreateAction(action, intents)
	require.NoError(t, err)
	require.Equal(t, action.ID, created.ID)
	require.NotNil(t, batch)

	final, _, err := m.ProcessAction(context.Background(), action.ID, "user-1", true)
	require.NoError(t, err)
	require.Equal(t, domain.StateSuccess, final.State)
}

func TestCreateActionIsIdempotent(t *testing.T) {
	db := setupTestSqlite(t)
	fl := newFakeLedger()
	m := newTestManager(t, db, fl)
	link := seedLink(t, db)

	action := domain.Action{ID: "action_" + uuid.NewString(), Type: domain.ActionTypeWithdraw, State: domain.StateCreated, Creator: "creator-1", LinkID: link.ID}
	intents := []domain.Intent{
		{
			ID:       "intent_" + uuid.NewString(),
			State:    domain.StateCreated,
			Task:     domain.TaskTransferLinkToWallet,
			ActionID: action.ID,
			Type: domain.IntentType{
				Kind: domain.IntentTypeTransfer,
				TransferArgs: &domain.TransferArgs{
					From: ledger.VaultSubaccount(link.ID), To: "creator-1", Asset: "ICP", Amount: decimal.NewFromInt(5),
				},
			},
		},
	}

	_, _, err := m.CreateAction(action, intents)
	require.NoError(t, err)

	_, _, err = m.CreateAction(action, intents)
	require.Error(t, err)
}

func TestProcessActionFailsInMaintenanceMode(t *testing.T) {
	db := setupTestSqlite(t)
	fl := newFakeLedger()
	m := newTestManagerWithAdmins(t, db, fl, []string{"admin"})
	require.NoError(t, m.settings.SetMode("admin", domain.SettingsModeMaintenance))

	_, _, err := m.ProcessAction(context.Background(), "missing-action", "user-1", true)
	require.Error(t, err)
}
