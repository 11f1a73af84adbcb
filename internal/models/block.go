package models

import (
	"time"
)

// BlockState is the state recorded by a block history row
type BlockState string

// Block states
const (
	BlockStateBlocked   BlockState = "blocked"
	BlockStateUnblocked BlockState = "unblocked"
)

// BlockedUser is the current-state projection of a user's block history.
// Blocked always equals the state of the latest BlockedUserHistory row.
type BlockedUser struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserIdentity string    `gorm:"type:varchar(254);not null;uniqueIndex:comment_blocked_users_ux;column:user_identity" json:"user"`
	Email        string    `gorm:"type:varchar(254);column:email" json:"email,omitempty"`
	Blocked      bool      `gorm:"not null;default:false;column:blocked" json:"blocked"`
	UpdatedAt    time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for BlockedUser
func (BlockedUser) TableName() string {
	return "comment_blocked_users"
}

// BlockedUserHistory is the append-only audit trail of block transitions
type BlockedUserHistory struct {
	ID            int64      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	BlockedUserID int64      `gorm:"not null;index:comment_blocked_history_ix;column:blocked_user_id" json:"blocked_user_id"`
	Blocker       string     `gorm:"type:varchar(254);not null;column:blocker" json:"blocker"`
	Reason        string     `gorm:"type:text;column:reason" json:"reason"`
	State         BlockState `gorm:"type:varchar(16);not null;column:state" json:"state"`
	OccurredAt    time.Time  `gorm:"not null;column:occurred_at" json:"date"`
}

// TableName specifies the table name for BlockedUserHistory
func (BlockedUserHistory) TableName() string {
	return "comment_blocked_user_history"
}
