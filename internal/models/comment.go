package models

import (
	"time"
)

// Comment is a threaded comment attached to a PolymorphicRef target.
// Comments are never deleted; moderation sets RemovedAt.
type Comment struct {
	ID         int64      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TargetType string     `gorm:"type:varchar(64);not null;index:comments_target_ix,priority:1;column:target_type" json:"target_type"`
	TargetID   string     `gorm:"type:varchar(128);not null;index:comments_target_ix,priority:2;column:target_id" json:"target_id"`
	ParentID   *int64     `gorm:"index:comments_parent_ix;column:parent_id" json:"parent_id,omitempty"`
	Author     Author     `gorm:"embedded" json:"author"`
	Content    string     `gorm:"type:text;not null;column:content" json:"content"`
	URLHash    string     `gorm:"type:varchar(16);index:comments_urlhash_ix;column:url_hash" json:"url_hash"`
	PostedAt   time.Time  `gorm:"not null;index:comments_target_ix,priority:3;column:posted_at" json:"posted_at"`
	EditedAt   *time.Time `gorm:"column:edited_at" json:"edited_at,omitempty"`
	RemovedAt  *time.Time `gorm:"column:removed_at" json:"removed_at,omitempty"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comment_comments"
}

// Target returns the entity the comment is attached to
func (c *Comment) Target() PolymorphicRef {
	return PolymorphicRef{EntityType: c.TargetType, EntityID: c.TargetID}
}

// IsRemoved reports whether moderation has hidden the comment
func (c *Comment) IsRemoved() bool {
	return c.RemovedAt != nil
}

// IsEdited reports whether the content changed after posting
func (c *Comment) IsEdited() bool {
	return c.EditedAt != nil
}
