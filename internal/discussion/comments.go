package discussion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/cache"
	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/lock"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/config"
	"github.com/steemit/discussion/pkg/logging"
	"github.com/steemit/discussion/pkg/telemetry"
)

// CommentStore persists comments and serves threads
type CommentStore struct {
	repo      *db.Repository
	comments  *db.CommentRepository
	blocks    *BlockRegistry
	follows   *FollowRegistry
	authz     Authorizer
	locker    lock.Locker
	cache     cache.Store
	cfg       config.CommentsConfig
	sanitizer *bluemonday.Policy
	clock     func() time.Time
	logger    *zap.Logger
	posted    metric.Int64Counter
	cacheHits metric.Int64Counter

	pending sync.WaitGroup
}

// NewCommentStore creates a comment store
func NewCommentStore(deps Deps, blocks *BlockRegistry, follows *FollowRegistry) *CommentStore {
	return &CommentStore{
		repo:      deps.Repo,
		comments:  db.NewCommentRepository(deps.Repo),
		blocks:    blocks,
		follows:   follows,
		authz:     deps.Authorizer,
		locker:    deps.Locker,
		cache:     deps.Cache,
		cfg:       deps.Comments,
		sanitizer: bluemonday.StrictPolicy(),
		clock:     deps.Clock,
		logger:    logging.WithComponent("comments"),
		posted:    telemetry.Counter("discussion.comments.posted", "Comments posted"),
		cacheHits: telemetry.Counter("discussion.threads.cache", "Thread cache lookups"),
	}
}

// Post validates and stores a new comment, then emits the comment posted
// event in the background.
func (s *CommentStore) Post(ctx context.Context, target models.PolymorphicRef, author models.Author, content string, parentID *int64) (comment *models.Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "comments.post")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := target.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalid, Message: "invalid target", Cause: err}
	}
	if err := validateAuthor(author); err != nil {
		return nil, err
	}
	content, err = s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blocks.isAuthorBlocked(ctx, author)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, newError(KindBlocked, "%s is blocked", author.Identity())
	}

	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		comments := db.NewCommentRepository(tx)

		// A missing or removed parent is NotFound; InvalidParent is kept for
		// a live parent attached to another target.
		if parentID != nil {
			parent, err := comments.GetByID(ctx, *parentID)
			if err != nil {
				return fmt.Errorf("failed to load parent: %w", err)
			}
			if parent == nil || parent.IsRemoved() {
				return newError(KindNotFound, "parent %d not found", *parentID)
			}
			if parent.Target() != target {
				return newError(KindInvalidParent, "parent %d belongs to %s", parent.ID, parent.Target())
			}
		}

		comment = &models.Comment{
			TargetType: target.EntityType,
			TargetID:   target.EntityID,
			ParentID:   parentID,
			Author:     author,
			Content:    content,
			PostedAt:   now(s.clock),
		}
		if err := comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		comment.URLHash = URLHash(s.cfg.URLHashSalt, comment.ID)
		if err := comments.SetURLHash(ctx, comment.ID, comment.URLHash); err != nil {
			return fmt.Errorf("failed to set url hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateThread(ctx, target)
	s.posted.Add(ctx, 1, metric.WithAttributes(attribute.String("entity_type", target.EntityType)))
	logging.For(ctx, s.logger).Info("Comment posted",
		zap.Int64("comment_id", comment.ID),
		zap.String("target", target.Key()),
		zap.String("author", author.Identity()))

	s.emitPosted(ctx, *comment)
	return comment, nil
}

// emitPosted runs the follow and notify side effects off the request path.
// Their failures are logged and never reach the poster.
func (s *CommentStore) emitPosted(ctx context.Context, comment models.Comment) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Comment posted handler panicked",
					zap.Int64("comment_id", comment.ID),
					zap.Any("panic", r))
			}
		}()

		if err := s.follows.OnCommentPosted(ctx, comment); err != nil {
			logging.For(ctx, s.logger).Error("Comment posted side effects failed",
				zap.Int64("comment_id", comment.ID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until background side effects of posted comments finish
func (s *CommentStore) Wait() {
	s.pending.Wait()
}

// Edit replaces the content of a comment. Only the author or a moderator
// may edit.
func (s *CommentStore) Edit(ctx context.Context, commentID int64, editor, content string) (comment *models.Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "comments.edit")
	defer func() { telemetry.EndSpan(span, err) }()

	editor = models.NormalizeIdentity(editor)
	content, err = s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Acquire(ctx, lock.Key("comment", commentID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock comment %d: %w", commentID, err)
	}
	defer unlock()

	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		comments := db.NewCommentRepository(tx)

		current, err := comments.GetByIDForUpdate(ctx, commentID)
		if err != nil {
			return fmt.Errorf("failed to load comment: %w", err)
		}
		if current == nil || current.IsRemoved() {
			return newError(KindNotFound, "comment %d not found", commentID)
		}

		if editor == "" || editor != current.Author.Identity() {
			if err := requireModerator(ctx, s.authz, editor); err != nil {
				return err
			}
		}

		comment = current
		if current.Content == content {
			return nil
		}

		editedAt := now(s.clock)
		if editedAt.Before(current.PostedAt) {
			editedAt = current.PostedAt
		}
		if err := comments.UpdateContent(ctx, commentID, content, editedAt); err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}
		comment.Content = content
		comment.EditedAt = &editedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateThread(ctx, comment.Target())
	logging.For(ctx, s.logger).Info("Comment edited",
		zap.Int64("comment_id", commentID),
		zap.String("editor", editor))
	return comment, nil
}

// Thread returns every comment of target ordered by posting time, removed
// comments included.
func (s *CommentStore) Thread(ctx context.Context, target models.PolymorphicRef) (comments []models.Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "comments.thread")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := target.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalid, Message: "invalid target", Cause: err}
	}

	// The generation is read before the query so a list loaded before a
	// concurrent invalidation lands under a key nobody reads anymore.
	key, cacheable := s.threadKey(ctx, target)
	if cacheable {
		if cached, ok := s.cachedThread(ctx, target, key); ok {
			return cached, nil
		}
	}

	comments, err = s.comments.ListByTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if cacheable {
		s.storeThread(ctx, target, key, comments)
	}
	return comments, nil
}

// Get returns a comment by id, removed comments included
func (s *CommentStore) Get(ctx context.Context, commentID int64) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return nil, newError(KindNotFound, "comment %d not found", commentID)
	}
	return comment, nil
}

// GetByURLHash resolves a permalink hash
func (s *CommentStore) GetByURLHash(ctx context.Context, hash string) (*models.Comment, error) {
	comment, err := s.comments.GetByURLHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return nil, newError(KindNotFound, "comment %q not found", hash)
	}
	return comment, nil
}

// Remove hides a comment. Removing twice is a no-op.
func (s *CommentStore) Remove(ctx context.Context, commentID int64) (comment *models.Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "comments.remove")
	defer func() { telemetry.EndSpan(span, err) }()

	unlock, err := s.locker.Acquire(ctx, lock.Key("comment", commentID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock comment %d: %w", commentID, err)
	}
	defer unlock()

	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		comment, err = s.setRemoved(ctx, tx, commentID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidateThread(ctx, comment.Target())
	return comment, nil
}

// setRemoved hides or restores a comment inside tx
func (s *CommentStore) setRemoved(ctx context.Context, tx *db.Repository, commentID int64, removed bool) (*models.Comment, error) {
	comments := db.NewCommentRepository(tx)

	comment, err := comments.GetByIDForUpdate(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return nil, newError(KindNotFound, "comment %d not found", commentID)
	}
	if comment.IsRemoved() == removed {
		return comment, nil
	}

	var removedAt *time.Time
	if removed {
		at := now(s.clock)
		removedAt = &at
	}
	if err := comments.SetRemoved(ctx, commentID, removedAt); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.RemovedAt = removedAt
	return comment, nil
}

// cleanContent strips markup and stores the remaining plain text unescaped.
// Rendered output goes through the UGC policy in the API objects.
func (s *CommentStore) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(content)))
	if content == "" {
		return "", newError(KindInvalid, "content is empty")
	}
	if s.cfg.MaxContentLength > 0 && utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return "", newError(KindInvalid, "content exceeds %d characters", s.cfg.MaxContentLength)
	}
	return content, nil
}

func validateAuthor(author models.Author) error {
	if author.Identity() == "" {
		return newError(KindInvalid, "author needs a username or an email")
	}
	if author.IsAnonymous() && !strings.Contains(author.Email, "@") {
		return newError(KindInvalid, "invalid author email %q", author.Email)
	}
	return nil
}

func threadGenerationKey(target models.PolymorphicRef) string {
	return "thread_gen:" + cache.HashKey(target.EntityType, target.EntityID)
}

// threadKey returns the cache key of the current thread generation. The
// thread is not cacheable when the generation cannot be read.
func (s *CommentStore) threadKey(ctx context.Context, target models.PolymorphicRef) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Counter(ctx, threadGenerationKey(target))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("Thread generation read failed", zap.String("target", target.Key()), zap.Error(err))
		}
		return "", false
	}
	return fmt.Sprintf("thread:%s:%d", cache.HashKey(target.EntityType, target.EntityID), gen), true
}

func (s *CommentStore) cachedThread(ctx context.Context, target models.PolymorphicRef, key string) ([]models.Comment, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
			s.logger.Warn("Thread cache read failed", zap.String("target", target.Key()), zap.Error(err))
		}
		s.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", false)))
		return nil, false
	}

	var comments []models.Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		s.logger.Warn("Thread cache entry is corrupt", zap.String("target", target.Key()), zap.Error(err))
		return nil, false
	}
	s.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", true)))
	return comments, true
}

func (s *CommentStore) storeThread(ctx context.Context, target models.PolymorphicRef, key string, comments []models.Comment) {
	raw, err := json.Marshal(comments)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cfg.ThreadCacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Thread cache write failed", zap.String("target", target.Key()), zap.Error(err))
	}
}

// invalidateThread moves target to a new generation; entries of older
// generations expire with their TTL.
func (s *CommentStore) invalidateThread(ctx context.Context, target models.PolymorphicRef) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, threadGenerationKey(target)); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Thread cache invalidation failed", zap.String("target", target.Key()), zap.Error(err))
	}
}
