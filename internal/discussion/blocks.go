package discussion

import (
	"context"
	"fmt"
	"strings"
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

// DefaultListLimit bounds admin list reads
const DefaultListLimit = 100

// BlockRegistry keeps the audit trail of block transitions and the
// current-state projection derived from it.
type BlockRegistry struct {
	repo    *db.Repository
	users   *db.BlockRepository
	locker  lock.Locker
	authz   Authorizer
	clock   func() time.Time
	logger  *zap.Logger
	changes metric.Int64Counter
}

// NewBlockRegistry creates a block registry
func NewBlockRegistry(deps Deps) *BlockRegistry {
	return &BlockRegistry{
		repo:    deps.Repo,
		users:   db.NewBlockRepository(deps.Repo),
		locker:  deps.Locker,
		authz:   deps.Authorizer,
		clock:   deps.Clock,
		logger:  logging.WithComponent("blocks"),
		changes: telemetry.Counter("discussion.blocks.changed", "Block and unblock transitions"),
	}
}

// Block blocks identity from posting. The history row and the projection
// flip commit together.
func (b *BlockRegistry) Block(ctx context.Context, identity, blocker, reason string) (user *models.BlockedUser, err error) {
	ctx, span := telemetry.StartSpan(ctx, "blocks.block")
	defer func() { telemetry.EndSpan(span, err) }()

	return b.transition(ctx, identity, blocker, reason, models.BlockStateBlocked)
}

// Unblock lifts a block
func (b *BlockRegistry) Unblock(ctx context.Context, identity, blocker, reason string) (user *models.BlockedUser, err error) {
	ctx, span := telemetry.StartSpan(ctx, "blocks.unblock")
	defer func() { telemetry.EndSpan(span, err) }()

	return b.transition(ctx, identity, blocker, reason, models.BlockStateUnblocked)
}

func (b *BlockRegistry) transition(ctx context.Context, identity, blocker, reason string, state models.BlockState) (*models.BlockedUser, error) {
	identity = models.NormalizeIdentity(identity)
	blocker = models.NormalizeIdentity(blocker)
	if identity == "" {
		return nil, newError(KindInvalid, "identity is required")
	}
	if err := requireModerator(ctx, b.authz, blocker); err != nil {
		return nil, err
	}

	unlock, err := b.locker.Acquire(ctx, lock.Key("block", identity))
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", identity, err)
	}
	defer unlock()

	var user *models.BlockedUser
	err = b.repo.Transaction(ctx, func(tx *db.Repository) error {
		users := db.NewBlockRepository(tx)
		at := now(b.clock)

		email := ""
		if strings.Contains(identity, "@") {
			email = identity
		}
		current, err := users.GetOrCreateForUpdate(ctx, identity, email, at)
		if err != nil {
			return fmt.Errorf("failed to load block state: %w", err)
		}

		blocked := state == models.BlockStateBlocked
		if current.Blocked == blocked {
			if blocked {
				return newError(KindAlreadyBlocked, "%s is already blocked", identity)
			}
			return newError(KindNotBlocked, "%s is not blocked", identity)
		}

		if err := users.AppendHistory(ctx, &models.BlockedUserHistory{
			BlockedUserID: current.ID,
			Blocker:       blocker,
			Reason:        reason,
			State:         state,
			OccurredAt:    at,
		}); err != nil {
			return fmt.Errorf("failed to append block history: %w", err)
		}

		current.Blocked = blocked
		current.UpdatedAt = at
		if err := users.Save(ctx, current); err != nil {
			return fmt.Errorf("failed to save block state: %w", err)
		}
		user = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.changes.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(state))))
	logging.For(ctx, b.logger).Info("Block state changed",
		zap.String("identity", identity),
		zap.String("blocker", blocker),
		zap.String("state", string(state)))
	return user, nil
}

// IsBlocked reports whether identity is currently blocked
func (b *BlockRegistry) IsBlocked(ctx context.Context, identity string) (bool, error) {
	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return false, nil
	}
	blocked, err := b.users.IsBlocked(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("failed to check block state: %w", err)
	}
	return blocked, nil
}

// isAuthorBlocked checks both identities an author may act under
func (b *BlockRegistry) isAuthorBlocked(ctx context.Context, author models.Author) (bool, error) {
	identities := []string{author.Identity()}
	if email := models.NormalizeIdentity(author.Email); email != "" && email != identities[0] {
		identities = append(identities, email)
	}
	blocked, err := b.users.IsBlocked(ctx, identities...)
	if err != nil {
		return false, fmt.Errorf("failed to check block state: %w", err)
	}
	return blocked, nil
}

// History returns the block transitions of identity, oldest first
func (b *BlockRegistry) History(ctx context.Context, identity string) ([]models.BlockedUserHistory, error) {
	user, err := b.users.GetByIdentity(ctx, models.NormalizeIdentity(identity))
	if err != nil {
		return nil, fmt.Errorf("failed to load block state: %w", err)
	}
	if user == nil {
		return []models.BlockedUserHistory{}, nil
	}
	entries, err := b.users.History(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load block history: %w", err)
	}
	return entries, nil
}

// Blocked lists currently blocked users, most recent first
func (b *BlockRegistry) Blocked(ctx context.Context, limit int) ([]models.BlockedUser, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	users, err := b.users.ListBlocked(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	return users, nil
}
