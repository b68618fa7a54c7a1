package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AssetInfo describes one asset a link moves and how much of it each
// Use action releases.
type AssetInfo struct {
	Asset                  string          `json:"asset" gorm:"column:asset"`
	AmountPerLinkUseAction decimal.Decimal `json:"amount_per_link_use_action" gorm:"column:amount_per_link_use_action;type:numeric"`
	Label                  string          `json:"label" gorm:"column:label"`
}

// Link is a creator-owned descriptor for a value-transfer flow (§3).
//
// Once State == LinkStateActive, no field other than State and
// LinkUseActionCounter may change — enforced by the Link State Machine
// (C8), not by the storage layer.
type Link struct {
	ID                    string         `json:"id" gorm:"column:id;primaryKey"`
	State                 LinkState      `json:"state" gorm:"column:state;index"`
	Title                 string         `json:"title" gorm:"column:title"`
	Description           string         `json:"description" gorm:"column:description"`
	LinkType              LinkType       `json:"link_type" gorm:"column:link_type"`
	AssetInfo             datatypes.JSONSlice[AssetInfo] `json:"asset_info" gorm:"column:asset_info"`
	Creator               string         `json:"creator" gorm:"column:creator;index"`
	CreateAt              time.Time      `json:"create_at" gorm:"column:create_at"`
	LinkUseActionCounter  int64          `json:"link_use_action_counter" gorm:"column:link_use_action_counter"`
	LinkUseActionMaxCount int64          `json:"link_use_action_max_count" gorm:"column:link_use_action_max_count"`
	Template              *string        `json:"template,omitempty" gorm:"column:template"`
	LinkImageURL          *string        `json:"link_image_url,omitempty" gorm:"column:link_image_url"`
	NftImage              *string        `json:"nft_image,omitempty" gorm:"column:nft_image"`
	Metadata              datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata"`
}

func (Link) TableName() string { return "links" }

// HasRoomForUse reports whether one more Use action can still succeed
// against this link without exceeding LinkUseActionMaxCount.
func (l Link) HasRoomForUse() bool {
	return l.LinkUseActionCounter < l.LinkUseActionMaxCount
}

// ExpectedAssetCount returns how many AssetInfo rows a link of this type
// must carry, or -1 when any count >= 1 is acceptable (TokenBasket).
func (t LinkType) ExpectedAssetCount() int {
	switch t {
	case LinkTypeSendTip, LinkTypeSendAirdrop, LinkTypeReceivePayment:
		return 1
	case LinkTypeSendTokenBasket:
		return -1
	default:
		return 0
	}
}

// MaxUseCount returns the max_count a freshly created link of this type
// is constrained to, or -1 when the creator may choose any positive
// value (SendAirdrop, SendTokenBasket).
func (t LinkType) MaxUseCount() int64 {
	switch t {
	case LinkTypeSendTip, LinkTypeReceivePayment:
		return 1
	default:
		return -1
	}
}
