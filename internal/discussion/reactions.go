package discussion

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/lock"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/logging"
	"github.com/steemit/discussion/pkg/telemetry"
)

// ReactionEngine records likes and dislikes. A user holds at most one
// reaction per comment.
type ReactionEngine struct {
	repo      *db.Repository
	comments  *db.CommentRepository
	reactions *db.ReactionRepository
	locker    lock.Locker
	clock     func() time.Time
	logger    *zap.Logger
	changed   metric.Int64Counter
}

// NewReactionEngine creates a reaction engine
func NewReactionEngine(deps Deps) *ReactionEngine {
	return &ReactionEngine{
		repo:      deps.Repo,
		comments:  db.NewCommentRepository(deps.Repo),
		reactions: db.NewReactionRepository(deps.Repo),
		locker:    deps.Locker,
		clock:     deps.Clock,
		logger:    logging.WithComponent("reactions"),
		changed:   telemetry.Counter("discussion.reactions.changed", "Reaction inserts, replacements and removals"),
	}
}

// React sets the reaction of identity on a comment, replacing a reaction
// of the other kind. Reacting twice with the same kind changes nothing.
func (e *ReactionEngine) React(ctx context.Context, commentID int64, identity string, kind models.ReactionKind) (tally models.Tally, err error) {
	ctx, span := telemetry.StartSpan(ctx, "reactions.react")
	defer func() { telemetry.EndSpan(span, err) }()

	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return tally, newError(KindInvalid, "identity is required")
	}
	if !kind.Valid() {
		return tally, newError(KindInvalid, "unknown reaction kind %q", kind)
	}

	unlock, err := e.locker.Acquire(ctx, lock.Key("reaction", commentID, identity))
	if err != nil {
		return tally, fmt.Errorf("failed to lock reaction: %w", err)
	}
	defer unlock()

	changed := false
	err = e.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := requireLiveComment(ctx, db.NewCommentRepository(tx), commentID); err != nil {
			return err
		}
		reactions := db.NewReactionRepository(tx)

		existing, err := reactions.Get(ctx, commentID, identity)
		if err != nil {
			return fmt.Errorf("failed to load reaction: %w", err)
		}
		if existing == nil || existing.Kind != kind {
			if err := reactions.Upsert(ctx, &models.ReactionInstance{
				CommentID:    commentID,
				UserIdentity: identity,
				Kind:         kind,
				ReactedAt:    now(e.clock),
			}); err != nil {
				return fmt.Errorf("failed to save reaction: %w", err)
			}
			changed = true
		}

		tally, err = reactions.Tally(ctx, commentID)
		if err != nil {
			return fmt.Errorf("failed to count reactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Tally{}, err
	}

	if changed {
		e.changed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
		logging.For(ctx, e.logger).Debug("Reaction recorded",
			zap.Int64("comment_id", commentID),
			zap.String("identity", identity),
			zap.String("kind", string(kind)))
	}
	return tally, nil
}

// Unreact removes the reaction of identity, if any
func (e *ReactionEngine) Unreact(ctx context.Context, commentID int64, identity string) (tally models.Tally, err error) {
	ctx, span := telemetry.StartSpan(ctx, "reactions.unreact")
	defer func() { telemetry.EndSpan(span, err) }()

	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return tally, newError(KindInvalid, "identity is required")
	}

	unlock, err := e.locker.Acquire(ctx, lock.Key("reaction", commentID, identity))
	if err != nil {
		return tally, fmt.Errorf("failed to lock reaction: %w", err)
	}
	defer unlock()

	var removed int64
	err = e.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := requireLiveComment(ctx, db.NewCommentRepository(tx), commentID); err != nil {
			return err
		}
		reactions := db.NewReactionRepository(tx)

		if removed, err = reactions.Delete(ctx, commentID, identity); err != nil {
			return fmt.Errorf("failed to delete reaction: %w", err)
		}
		tally, err = reactions.Tally(ctx, commentID)
		if err != nil {
			return fmt.Errorf("failed to count reactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Tally{}, err
	}

	if removed > 0 {
		e.changed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "none")))
	}
	return tally, nil
}

// Tally counts the live reactions of a comment
func (e *ReactionEngine) Tally(ctx context.Context, commentID int64) (models.Tally, error) {
	if err := requireLiveComment(ctx, e.comments, commentID); err != nil {
		return models.Tally{}, err
	}
	tally, err := e.reactions.Tally(ctx, commentID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to count reactions: %w", err)
	}
	return tally, nil
}

// Tallies counts the reactions of several comments at once. Comments
// without reactions map to a zero tally.
func (e *ReactionEngine) Tallies(ctx context.Context, commentIDs []int64) (map[int64]models.Tally, error) {
	tallies, err := e.reactions.Tallies(ctx, commentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	for _, id := range commentIDs {
		if _, ok := tallies[id]; !ok {
			tallies[id] = models.Tally{}
		}
	}
	return tallies, nil
}

// Reactions lists the reactions of a comment, oldest first
func (e *ReactionEngine) Reactions(ctx context.Context, commentID int64) ([]models.ReactionInstance, error) {
	reactions, err := e.reactions.ListByComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	return reactions, nil
}

func requireLiveComment(ctx context.Context, comments *db.CommentRepository, commentID int64) error {
	comment, err := comments.GetByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil || comment.IsRemoved() {
		return newError(KindNotFound, "comment %d not found", commentID)
	}
	return nil
}
