package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is a double-entry bookkeeping row recording one asset
// movement into or out of a link's vault subaccount, kept alongside
// (not instead of) the Transaction/Intent/Action rollup so the admin
// surface (§6) can answer "how much of asset X is still at this link's
// vault" without replaying every transaction.
type LedgerEntry struct {
	ID          uint            `gorm:"primaryKey"`
	LinkID      string          `gorm:"column:link_id;not null;index:idx_link_asset"`
	Asset       string          `gorm:"column:asset;not null;index:idx_link_asset"`
	TransactionID string        `gorm:"column:transaction_id;not null;index:idx_tx"`
	Credit      decimal.Decimal `gorm:"column:credit;type:numeric;not null"`
	Debit       decimal.Decimal `gorm:"column:debit;type:numeric;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LinkLedger is the admin-facing double-entry view over one link's
// vault. check_link_asset_left (§4.8) is expressed against it: a link
// still "has assets left" iff any asset's Balance is positive.
type LinkLedger struct {
	linkID string
	db     *gorm.DB
}

func GetLinkLedger(db *gorm.DB, linkID string) *LinkLedger {
	return &LinkLedger{linkID: linkID, db: db}
}

// Record posts a signed movement of asset against the link's vault: a
// positive amount is a credit (inbound to the vault), negative is a
// debit (outbound). A zero amount is a no-op.
func (l *LinkLedger) Record(transactionID, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	entry := &LedgerEntry{
		LinkID:        l.linkID,
		Asset:         asset,
		TransactionID: transactionID,
		Credit:        decimal.Zero,
		Debit:         decimal.Zero,
		CreatedAt:     time.Now(),
	}
	if amount.IsPositive() {
		entry.Credit = amount
	} else {
		entry.Debit = amount.Abs()
	}
	return l.db.Create(entry).Error
}

// Balance returns the net balance of asset at the link's vault. Sums in
// Go for sqlite to avoid its lossy numeric aggregation on
// string-encoded decimals, matching the dialect split this storage
// layer otherwise uses throughout.
func (l *LinkLedger) Balance(asset string) (decimal.Decimal, error) {
	switch l.db.Dialector.Name() {
	case "postgres":
		var result struct {
			Balance decimal.Decimal
		}
		err := l.db.Model(&LedgerEntry{}).
			Where("link_id = ? AND asset = ?", l.linkID, asset).
			Select("COALESCE(SUM(credit), 0) - COALESCE(SUM(debit), 0) AS balance").
			Scan(&result).Error
		if err != nil {
			return decimal.Zero, err
		}
		return result.Balance, nil
	default:
		var entries []LedgerEntry
		if err := l.db.Where("link_id = ? AND asset = ?", l.linkID, asset).Find(&entries).Error; err != nil {
			return decimal.Zero, err
		}
		balance := decimal.Zero
		for _, e := range entries {
			balance = balance.Add(e.Credit).Sub(e.Debit)
		}
		return balance, nil
	}
}

// AnyAssetLeft reports whether any of assets still has a positive
// balance at this link's vault, implementing check_link_asset_left
// (§4.8).
func (l *LinkLedger) AnyAssetLeft(assets []string) (bool, error) {
	for _, asset := range assets {
		balance, err := l.Balance(asset)
		if err != nil {
			return false, err
		}
		if balance.IsPositive() {
			return true, nil
		}
	}
	return false, nil
}

// AllZero reports whether every asset's balance is exactly zero,
// implementing the Inactive->InactiveEnded condition's "all balances
// must be zero" check (§4.8).
func (l *LinkLedger) AllZero(assets []string) (bool, error) {
	left, err := l.AnyAssetLeft(assets)
	if err != nil {
		return false, err
	}
	return !left, nil
}
