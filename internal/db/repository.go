package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/discussion/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a database transaction. The repository passed
// to fn is bound to the transaction; fn must not use any other repository.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// forUpdate locks the selected rows until the transaction ends. Dialects
// without row locks (sqlite) ignore the clause.
func (r *Repository) forUpdate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// GetByIDForUpdate retrieves a comment by ID and locks its row
func (r *CommentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.forUpdate(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// GetByURLHash retrieves a comment by its permalink hash
func (r *CommentRepository) GetByURLHash(ctx context.Context, hash string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("url_hash = ?", hash).Order("id ASC").First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// SetURLHash stores the permalink hash of a freshly created comment
func (r *CommentRepository) SetURLHash(ctx context.Context, id int64, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("url_hash", hash).Error
}

// UpdateContent replaces the content of a comment and stamps edited_at
func (r *CommentRepository) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": editedAt,
		}).Error
}

// SetRemoved sets or clears removed_at
func (r *CommentRepository) SetRemoved(ctx context.Context, id int64, removedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("removed_at", removedAt).Error
}

// ListByTarget retrieves every comment of a target ordered by posting time
func (r *CommentRepository) ListByTarget(ctx context.Context, target models.PolymorphicRef) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", target.EntityType, target.EntityID).
		Order("posted_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
