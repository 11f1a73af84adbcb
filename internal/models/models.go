// Package models defines the gorm models of the discussion store.
package models

// All returns every model, in migration order
func All() []interface{} {
	return []interface{}{
		&Comment{},
		&ReactionInstance{},
		&Flag{},
		&FlagInstance{},
		&Follower{},
		&BlockedUser{},
		&BlockedUserHistory{},
	}
}
