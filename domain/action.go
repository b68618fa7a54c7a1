package domain

import "time"

// Action is a requested lifecycle event against a link (§3). Its state
// is never set directly by callers; it is derived from its intents by
// the repository rollup (C7, §4.7).
type Action struct {
	ID        string     `json:"id" gorm:"column:id;primaryKey"`
	Type      ActionType `json:"type" gorm:"column:type"`
	State     State      `json:"state" gorm:"column:state;index"`
	Creator   string     `json:"creator" gorm:"column:creator;index"`
	LinkID    string     `json:"link_id" gorm:"column:link_id;index"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Action) TableName() string { return "actions" }

// IsAnonymous reports whether the action was created by a synthetic
// ANON#<wallet-address> caller rather than a registered principal.
func (a Action) IsAnonymous() bool {
	return len(a.Creator) > len(AnonPrefix) && a.Creator[:len(AnonPrefix)] == AnonPrefix
}

// RollupState computes the §4.7 aggregation rule for a parent given its
// children's states: all Created -> Created; any Fail -> Fail; all
// Success -> Success; else Processing. Shared by Action-from-Intents and
// Intent-from-Transactions rollups.
func RollupState(children []State) State {
	if len(children) == 0 {
		return StateCreated
	}

	allCreated := true
	allSuccess := true
	anyFail := false

	for _, s := range children {
		if s != StateCreated {
			allCreated = false
		}
		if s != StateSuccess {
			allSuccess = false
		}
		if s == StateFail {
			anyFail = true
		}
	}

	switch {
	case anyFail:
		return StateFail
	case allCreated:
		return StateCreated
	case allSuccess:
		return StateSuccess
	default:
		return StateProcessing
	}
}
