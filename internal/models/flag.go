package models

import (
	"time"
)

// FlagState is the moderation state of a comment's flag
type FlagState string

// Flag states
const (
	FlagUnflagged          FlagState = "unflagged"
	FlagFlagged            FlagState = "flagged"
	FlagFlaggedAndRejected FlagState = "flagged_and_rejected"
	FlagFlaggedAndResolved FlagState = "flagged_and_resolved"
)

// IsTerminal reports whether the state closes a flag cycle
func (s FlagState) IsTerminal() bool {
	return s == FlagFlaggedAndRejected || s == FlagFlaggedAndResolved
}

// FlagOutcome is a moderator's decision on a flagged comment
type FlagOutcome string

// Flag outcomes
const (
	OutcomeResolved FlagOutcome = "resolved"
	OutcomeRejected FlagOutcome = "rejected"
)

// Flag is the single live moderation record of a comment. Count always
// equals the number of FlagInstance rows of the current Cycle.
type Flag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CommentID int64     `gorm:"not null;uniqueIndex:comment_flags_ux;column:comment_id" json:"comment_id"`
	State     FlagState `gorm:"type:varchar(32);not null;default:unflagged;index:comment_flags_state_ix;column:state" json:"state"`
	Count     int       `gorm:"not null;default:0;column:count" json:"count"`
	Cycle     int       `gorm:"not null;default:0;column:cycle" json:"cycle"`
	Moderator string    `gorm:"type:varchar(254);column:moderator" json:"moderator,omitempty"`
	Reason    string    `gorm:"type:text;column:resolution_reason" json:"resolution_reason,omitempty"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Flag
func (Flag) TableName() string {
	return "comment_flags"
}

// FlagInstance is one report against a comment. Rows are append-only; a
// reporter can hold one row per flag cycle.
type FlagInstance struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	FlagID    int64     `gorm:"not null;uniqueIndex:comment_flag_instances_ux,priority:1;column:flag_id" json:"flag_id"`
	Cycle     int       `gorm:"not null;uniqueIndex:comment_flag_instances_ux,priority:2;column:cycle" json:"cycle"`
	Reporter  string    `gorm:"type:varchar(254);not null;uniqueIndex:comment_flag_instances_ux,priority:3;column:reporter" json:"user"`
	Reason    string    `gorm:"type:varchar(64);not null;column:reason" json:"reason"`
	Info      string    `gorm:"type:text;column:info" json:"info,omitempty"`
	FlaggedAt time.Time `gorm:"not null;column:flagged_at" json:"date_flagged"`
}

// TableName specifies the table name for FlagInstance
func (FlagInstance) TableName() string {
	return "comment_flag_instances"
}
