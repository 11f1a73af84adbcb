package models

import (
	"time"
)

// Follower subscribes an identity to new comments under a target
type Follower struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	Identity   string    `gorm:"type:varchar(254);not null;uniqueIndex:comment_followers_ux,priority:1;column:identity" json:"identity"`
	Username   string    `gorm:"type:varchar(150);column:username" json:"username,omitempty"`
	Email      string    `gorm:"type:varchar(254);column:email" json:"email,omitempty"`
	TargetType string    `gorm:"type:varchar(64);not null;uniqueIndex:comment_followers_ux,priority:2;index:comment_followers_target_ix,priority:1;column:target_type" json:"target_type"`
	TargetID   string    `gorm:"type:varchar(128);not null;uniqueIndex:comment_followers_ux,priority:3;index:comment_followers_target_ix,priority:2;column:target_id" json:"target_id"`
	CreatedAt  time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Follower
func (Follower) TableName() string {
	return "comment_followers"
}

// Target returns the followed entity
func (f *Follower) Target() PolymorphicRef {
	return PolymorphicRef{EntityType: f.TargetType, EntityID: f.TargetID}
}
