package linkfsm

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/repository"
)

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

func newMachine(t *testing.T, db *gorm.DB) *Machine {
	t.Helper()
	repo := repository.New(db)
	return New(repo, func(linkID string) *repository.LinkLedger {
		return repository.GetLinkLedger(db, linkID)
	}, nil)
}

func strPtr(s string) *string { return &s }

func TestLinkCreateBootstrap(t *testing.T) {
	db := setupTestSqlite(t)
	m := newMachine(t, db)

	link, err := m.CreateLink(
		"creator-1",
		domain.LinkTypeSendTip,
		mutableFields{AssetInfo: []domain.AssetInfo{{Asset: "ICP", AmountPerLinkUseAction: decimal.NewFromInt(1)}}, LinkUseActionMaxCount: int64Ptr(1)},
		mutableFields{},
	)
	require.NoError(t, err)
	require.Equal(t, domain.LinkStatePreview, link.State)
}

func int64Ptr(v int64) *int64 { return &v }

func TestLinkCreateBootstrapRollsBackOnFailure(t *testing.T) {
	db := setupTestSqlite(t)
	m := newMachine(t, db)

	// missing asset_info/max_count fails prefetchParamsAddAsset at Preview.
	_, err := m.CreateLink("creator-1", domain.LinkTypeSendTip, mutableFields{}, mutableFields{})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&domain.Link{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestPropertyChangeGuardRejectsNonWhitelistedField(t *testing.T) {
	db := setupTestSqlite(t)
	m := newMachine(t, db)

	link := domain.Link{ID: "l1", State: domain.LinkStateChooseLinkType, LinkType: domain.LinkTypeSendTip}
	require.NoError(t, db.Create(&link).Error)

	_, err := m.Continue(link, mutableFields{Title: strPtr("new title")})
	require.Error(t, err)
}

func TestActiveContinueGoesInactiveWhenAssetsLeft(t *testing.T) {
	db := setupTestSqlite(t)
	m := newMachine(t, db)

	link := domain.Link{
		ID:        "l2",
		State:     domain.LinkStateActive,
		LinkType:  domain.LinkTypeSendTip,
		AssetInfo: []domain.AssetInfo{{Asset: "ICP"}},
	}
	require.NoError(t, db.Create(&link).Error)
	require.NoError(t, repository.GetLinkLedger(db, link.ID).Record("tx-1", "ICP", decimal.NewFromInt(10)))

	next, err := m.Continue(link, mutableFields{})
	require.NoError(t, err)
	require.Equal(t, domain.LinkStateInactive, next.State)
}

func TestInactiveEndedIsTerminal(t *testing.T) {
	db := setupTestSqlite(t)
	m := newMachine(t, db)

	link := domain.Link{ID: "l3", State: domain.LinkStateInactiveEnded}
	require.NoError(t, db.Create(&link).Error)

	_, err := m.Continue(link, mutableFields{})
	require.Error(t, err)
}
