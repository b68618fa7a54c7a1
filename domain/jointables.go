package domain

import "fmt"

// Join tables (§3). Keys are built as component-1#component-2 so the
// repository layer can prefix-scan them the way §6's persisted-state
// layout describes.

type ActionIntent struct {
	ActionID string `gorm:"column:action_id;primaryKey"`
	IntentID string `gorm:"column:intent_id;primaryKey"`
}

func (ActionIntent) TableName() string { return "action_intents" }

type IntentTransaction struct {
	IntentID      string `gorm:"column:intent_id;primaryKey"`
	TransactionID string `gorm:"column:transaction_id;primaryKey"`
}

func (IntentTransaction) TableName() string { return "intent_transactions" }

// LinkAction keys a per-user progress row by (link_id, action_type,
// user_id). LinkUserState only moves ChooseWallet -> CompletedLink, and
// only once the referenced action's state is Success (C9).
type LinkAction struct {
	LinkID        string        `gorm:"column:link_id;primaryKey"`
	ActionType    ActionType    `gorm:"column:action_type;primaryKey"`
	UserID        string        `gorm:"column:user_id;primaryKey"`
	ActionID      string        `gorm:"column:action_id"`
	LinkUserState LinkUserState `gorm:"column:link_user_state"`
}

func (LinkAction) TableName() string { return "link_actions" }

// Key returns the "{link_id}#{action_type}#{user_id}" composite key
// named in §6's persisted state layout.
func (k LinkAction) Key() string {
	return fmt.Sprintf("%s#%s#%s", k.LinkID, k.ActionType, k.UserID)
}

type UserAction struct {
	UserID   string `gorm:"column:user_id;primaryKey"`
	ActionID string `gorm:"column:action_id;primaryKey"`
}

func (UserAction) TableName() string { return "user_actions" }

type UserLink struct {
	UserID string `gorm:"column:user_id;primaryKey"`
	LinkID string `gorm:"column:link_id;primaryKey"`
}

func (UserLink) TableName() string { return "user_links" }

// Key returns the "{user_id}#{link_id}" composite key named in §6.
func (k UserLink) Key() string {
	return fmt.Sprintf("%s#%s", k.UserID, k.LinkID)
}

type UserWallet struct {
	WalletAddress string `gorm:"column:wallet_address;primaryKey"`
	UserID        string `gorm:"column:user_id"`
}

func (UserWallet) TableName() string { return "user_wallets" }

// RequestLock implements the (caller, kind, subject) -> acquired_at
// fingerprint table (§3). The in-memory implementation in reqlock does
// not persist this row; it exists here so the repository can expose an
// admin view of currently-held locks if the storage-backed variant is
// ever swapped in.
type RequestLock struct {
	Caller     string `gorm:"column:caller;primaryKey"`
	Kind       string `gorm:"column:kind;primaryKey"`
	Subject    string `gorm:"column:subject;primaryKey"`
	AcquiredAt int64  `gorm:"column:acquired_at"`
}

func (RequestLock) TableName() string { return "request_locks" }

// Settings is the persisted form of C12's mode/admin-set singleton.
type Settings struct {
	ID     uint         `gorm:"column:id;primaryKey"`
	Mode   SettingsMode `gorm:"column:mode"`
	Admins []string     `gorm:"column:admins;serializer:json"`
}

func (Settings) TableName() string { return "settings" }
