package models

import (
	"fmt"
	"regexp"
	"strings"
)

var entityTypePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// PolymorphicRef identifies any commentable or followable entity by
// (entity_type, entity_id). The core never resolves it.
type PolymorphicRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

// Validate checks the reference is well formed
func (r PolymorphicRef) Validate() error {
	if !entityTypePattern.MatchString(r.EntityType) {
		return fmt.Errorf("invalid entity_type %q", r.EntityType)
	}
	if r.EntityID == "" || len(r.EntityID) > 128 {
		return fmt.Errorf("invalid entity_id %q", r.EntityID)
	}
	return nil
}

// Key returns a stable string form, used for cache and lock keys
func (r PolymorphicRef) Key() string {
	return r.EntityType + ":" + r.EntityID
}

func (r PolymorphicRef) String() string {
	return r.Key()
}

// Author describes who wrote a comment. Registered users carry a UserID and
// Username; anonymous authors are identified by email alone.
type Author struct {
	UserID      *int64 `gorm:"column:user_id" json:"user_id,omitempty"`
	Username    string `gorm:"type:varchar(150);column:username" json:"username,omitempty"`
	DisplayName string `gorm:"type:varchar(150);column:display_name" json:"display_name"`
	Email       string `gorm:"type:varchar(254);column:email" json:"email"`
}

// Identity returns the identity the author acts under: the username for
// registered users, otherwise the email.
func (a Author) Identity() string {
	if a.Username != "" {
		return NormalizeIdentity(a.Username)
	}
	return NormalizeIdentity(a.Email)
}

// IsAnonymous reports whether the author has no account
func (a Author) IsAnonymous() bool {
	return a.UserID == nil && a.Username == ""
}

// NormalizeIdentity trims and lowercases an identity (email or username)
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
