package discussion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/logging"
	"github.com/steemit/discussion/pkg/telemetry"
)

// FollowRegistry records which identities follow which targets
type FollowRegistry struct {
	followers  *db.FollowerRepository
	authz      Authorizer
	notifier   Notifier
	autoFollow bool
	clock      func() time.Time
	logger     *zap.Logger
	notified   metric.Int64Counter
}

// NewFollowRegistry creates a follow registry
func NewFollowRegistry(deps Deps) *FollowRegistry {
	return &FollowRegistry{
		followers:  db.NewFollowerRepository(deps.Repo),
		authz:      deps.Authorizer,
		notifier:   deps.Notifier,
		autoFollow: deps.Comments.AutoFollow,
		clock:      deps.Clock,
		logger:     logging.WithComponent("follows"),
		notified:   telemetry.Counter("discussion.notifications.emitted", "Comment posted events handed to the notifier"),
	}
}

// Follow subscribes identity to target. Following twice is a no-op.
func (f *FollowRegistry) Follow(ctx context.Context, identity string, target models.PolymorphicRef) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "follows.follow")
	defer func() { telemetry.EndSpan(span, err) }()

	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return newError(KindInvalid, "identity is required")
	}
	if err := target.Validate(); err != nil {
		return &Error{Kind: KindInvalid, Message: "invalid target", Cause: err}
	}
	follower := &models.Follower{Identity: identity, TargetType: target.EntityType, TargetID: target.EntityID}
	if strings.Contains(identity, "@") {
		follower.Email = identity
	} else {
		follower.Username = identity
	}
	return f.add(ctx, follower)
}

func (f *FollowRegistry) add(ctx context.Context, follower *models.Follower) error {
	follower.CreatedAt = now(f.clock)
	inserted, err := f.followers.Create(ctx, follower)
	if err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	if inserted {
		logging.For(ctx, f.logger).Debug("Follower added",
			zap.String("identity", follower.Identity),
			zap.String("target", follower.Target().Key()))
	}
	return nil
}

// Unfollow removes the subscription if present
func (f *FollowRegistry) Unfollow(ctx context.Context, identity string, target models.PolymorphicRef) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "follows.unfollow")
	defer func() { telemetry.EndSpan(span, err) }()

	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return newError(KindInvalid, "identity is required")
	}
	if _, err := f.followers.Delete(ctx, identity, target); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	return nil
}

// FollowersOf returns the identities following target, sorted
func (f *FollowRegistry) FollowersOf(ctx context.Context, target models.PolymorphicRef) ([]string, error) {
	rows, err := f.followers.ListByTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	identities := make([]string, 0, len(rows))
	for _, row := range rows {
		identities = append(identities, row.Identity)
	}
	return identities, nil
}

// Followers returns the follower rows of target with their contact
// details. Moderators only.
func (f *FollowRegistry) Followers(ctx context.Context, moderator string, target models.PolymorphicRef) ([]models.Follower, error) {
	if err := requireModerator(ctx, f.authz, moderator); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalid, Message: "invalid target", Cause: err}
	}
	rows, err := f.followers.ListByTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return rows, nil
}

// IsFollowing reports whether identity follows target
func (f *FollowRegistry) IsFollowing(ctx context.Context, identity string, target models.PolymorphicRef) (bool, error) {
	ok, err := f.followers.Exists(ctx, models.NormalizeIdentity(identity), target)
	if err != nil {
		return false, fmt.Errorf("failed to check follower: %w", err)
	}
	return ok, nil
}

// OnCommentPosted auto-follows the author when enabled and hands the
// target's followers, minus the author, to the notifier.
func (f *FollowRegistry) OnCommentPosted(ctx context.Context, comment models.Comment) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "follows.on_comment_posted")
	defer func() { telemetry.EndSpan(span, err) }()

	target := comment.Target()
	author := comment.Author.Identity()

	if f.autoFollow && author != "" {
		if err := f.add(ctx, &models.Follower{
			Identity:   author,
			Username:   comment.Author.Username,
			Email:      comment.Author.Email,
			TargetType: target.EntityType,
			TargetID:   target.EntityID,
		}); err != nil {
			return err
		}
	}

	identities, err := f.FollowersOf(ctx, target)
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(identities))
	for _, identity := range identities {
		if identity != author {
			recipients = append(recipients, identity)
		}
	}

	if err := f.notifier.CommentPosted(ctx, CommentPostedEvent{
		Comment:   comment,
		Target:    target,
		Followers: recipients,
	}); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}
	f.notified.Add(ctx, 1)
	return nil
}
