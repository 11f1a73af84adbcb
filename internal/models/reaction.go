package models

import (
	"time"
)

// ReactionKind is the kind of a reaction
type ReactionKind string

// Reaction kinds
const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Valid reports whether k is a known kind
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// ReactionInstance is one user's reaction to one comment. There is at most
// one row per (comment, user).
type ReactionInstance struct {
	ID           int64        `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	CommentID    int64        `gorm:"not null;uniqueIndex:comment_reactions_ux,priority:1;column:comment_id" json:"comment_id"`
	UserIdentity string       `gorm:"type:varchar(254);not null;uniqueIndex:comment_reactions_ux,priority:2;column:user_identity" json:"user"`
	Kind         ReactionKind `gorm:"type:varchar(16);not null;column:kind" json:"reaction_type"`
	ReactedAt    time.Time    `gorm:"not null;column:reacted_at" json:"date_reacted"`
}

// TableName specifies the table name for ReactionInstance
func (ReactionInstance) TableName() string {
	return "comment_reaction_instances"
}

// Tally is the live like/dislike count of a comment. It is always computed
// from ReactionInstance rows and never stored.
type Tally struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}
