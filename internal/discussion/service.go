// Package discussion implements polymorphic comments and their moderation:
// posting and threading, reactions, the flag workflow, follower
// subscriptions and user blocking.
package discussion

import (
	"time"

	"github.com/steemit/discussion/internal/cache"
	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/lock"
	"github.com/steemit/discussion/pkg/config"
	"github.com/steemit/discussion/pkg/logging"
)

// Deps are the collaborators shared by every component
type Deps struct {
	Repo       *db.Repository
	Locker     lock.Locker
	Cache      cache.Store // optional
	Authorizer Authorizer
	Notifier   Notifier // optional
	Comments   config.CommentsConfig
	Flags      config.FlagsConfig
	Clock      func() time.Time // optional
}

// Service groups the components of the discussion core
type Service struct {
	Comments  *CommentStore
	Reactions *ReactionEngine
	Flags     *FlagWorkflow
	Follows   *FollowRegistry
	Blocks    *BlockRegistry
}

// New wires the components together
func New(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(logging.WithComponent("notifier"))
	}
	if deps.Authorizer == nil {
		deps.Authorizer = NewStaticAuthorizer(nil)
	}

	blocks := NewBlockRegistry(deps)
	follows := NewFollowRegistry(deps)
	comments := NewCommentStore(deps, blocks, follows)
	reactions := NewReactionEngine(deps)
	flags := NewFlagWorkflow(deps, comments)

	return &Service{
		Comments:  comments,
		Reactions: reactions,
		Flags:     flags,
		Follows:   follows,
		Blocks:    blocks,
	}
}

// now returns the clock reading at the precision postgres stores
func now(clock func() time.Time) time.Time {
	return clock().UTC().Truncate(time.Microsecond)
}
