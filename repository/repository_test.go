package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/CashierHQ/cashier-sub001/domain"
)

func setupTestSqlite(t testing.TB) *gorm.DB {
	t.Helper()

	uniqueDSN := fmt.Sprintf("file::memory:test%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(uniqueDSN), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, autoMigrateSqlite(db))
	return db
}

func seedLink(t *testing.T, db *gorm.DB, maxUse int64) domain.Link {
	t.Helper()
	link := domain.Link{
		ID:                    uuid.NewString(),
		State:                 domain.LinkStateActive,
		LinkType:              domain.LinkTypeSendAirdrop,
		Creator:               "creator-1",
		LinkUseActionMaxCount: maxUse,
	}
	require.NoError(t, db.Create(&link).Error)
	return link
}

func seedActionWithOneTx(t *testing.T, db *gorm.DB, link domain.Link, actionType domain.ActionType) (domain.Action, domain.Intent, domain.Transaction) {
	t.Helper()
	action := domain.Action{ID: uuid.NewString(), Type: actionType, State: domain.StateCreated, Creator: "user-1", LinkID: link.ID}
	require.NoError(t, db.Create(&action).Error)

	intent := domain.Intent{
		ID:       uuid.NewString(),
		State:    domain.StateCreated,
		Task:     domain.TaskTransferLinkToWallet,
		Type:     domain.IntentType{Kind: domain.IntentTypeTransfer, TransferArgs: &domain.TransferArgs{Amount: decimal.NewFromInt(10)}},
		ActionID: action.ID,
	}
	require.NoError(t, db.Create(&intent).Error)
	require.NoError(t, db.Create(&domain.ActionIntent{ActionID: action.ID, IntentID: intent.ID}).Error)

	tx := domain.Transaction{
		ID:       uuid.NewString(),
		State:    domain.StateCreated,
		Protocol: domain.Protocol{Kind: domain.ProtocolIcrc1Transfer, Icrc1Transfer: &domain.Icrc1TransferArgs{Amount: decimal.NewFromInt(10)}},
		IntentID: intent.ID,
	}
	require.NoError(t, db.Create(&tx).Error)
	require.NoError(t, db.Create(&domain.IntentTransaction{IntentID: intent.ID, TransactionID: tx.ID}).Error)

	return action, intent, tx
}

func TestUpdateTxStateRollsUpToAction(t *testing.T) {
	db := setupTestSqlite(t)
	repo := New(db)
	link := seedLink(t, db, 5)
	action, _, tx := seedActionWithOneTx(t, db, link, domain.ActionTypeUse)

	result, changed, err := repo.UpdateTxState(tx.ID, domain.StateSuccess, nil)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, domain.StateCreated, result.PreviousState.State)
	require.Equal(t, domain.StateSuccess, result.CurrentState.State)

	var reloaded domain.Action
	require.NoError(t, db.First(&reloaded, "id = ?", action.ID).Error)
	require.Equal(t, domain.StateSuccess, reloaded.State)

	var reloadedLink domain.Link
	require.NoError(t, db.First(&reloadedLink, "id = ?", link.ID).Error)
	require.Equal(t, int64(1), reloadedLink.LinkUseActionCounter)
}

func TestUpdateTxStateNoopWhenUnchanged(t *testing.T) {
	db := setupTestSqlite(t)
	repo := New(db)
	link := seedLink(t, db, 5)
	_, _, tx := seedActionWithOneTx(t, db, link, domain.ActionTypeUse)

	_, changed, err := repo.UpdateTxState(tx.ID, domain.StateCreated, nil)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestUpdateTxStateLimitExceeded(t *testing.T) {
	db := setupTestSqlite(t)
	repo := New(db)
	link := seedLink(t, db, 0)
	_, _, tx := seedActionWithOneTx(t, db, link, domain.ActionTypeUse)

	_, _, err := repo.UpdateTxState(tx.ID, domain.StateSuccess, nil)
	require.Error(t, err)
}

func TestGetActionSupportsIdempotenceCheck(t *testing.T) {
	db := setupTestSqlite(t)
	repo := New(db)
	link := seedLink(t, db, 5)

	_, err := repo.GetAction("missing")
	require.Error(t, err)

	action, _, _ := seedActionWithOneTx(t, db, link, domain.ActionTypeUse)
	got, err := repo.GetAction(action.ID)
	require.NoError(t, err)
	require.Equal(t, action.ID, got.ID)
}

func TestLinkLedgerBalance(t *testing.T) {
	db := setupTestSqlite(t)
	require.NoError(t, autoMigrateSqlite(db))
	ledger := GetLinkLedger(db, "link-1")

	require.NoError(t, ledger.Record("tx-1", "ICP", decimal.NewFromInt(100)))
	require.NoError(t, ledger.Record("tx-2", "ICP", decimal.NewFromInt(-40)))

	balance, err := ledger.Balance("ICP")
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(60)))

	left, err := ledger.AnyAssetLeft([]string{"ICP"})
	require.NoError(t, err)
	require.True(t, left)
}
