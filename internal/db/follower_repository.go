package db

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/steemit/discussion/internal/models"
)

// FollowerRepository provides follower-related database operations
type FollowerRepository struct {
	*Repository
}

// NewFollowerRepository creates a new follower repository
func NewFollowerRepository(repo *Repository) *FollowerRepository {
	return &FollowerRepository{Repository: repo}
}

// Create inserts a follower, doing nothing if it already exists. It
// reports whether a row was inserted.
func (r *FollowerRepository) Create(ctx context.Context, follower *models.Follower) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follower)
	return res.RowsAffected > 0, res.Error
}

// Delete removes a follower. It reports whether a row was removed.
func (r *FollowerRepository) Delete(ctx context.Context, identity string, target models.PolymorphicRef) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("identity = ? AND target_type = ? AND target_id = ?", identity, target.EntityType, target.EntityID).
		Delete(&models.Follower{})
	return res.RowsAffected > 0, res.Error
}

// Exists reports whether identity follows target
func (r *FollowerRepository) Exists(ctx context.Context, identity string, target models.PolymorphicRef) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follower{}).
		Where("identity = ? AND target_type = ? AND target_id = ?", identity, target.EntityType, target.EntityID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByTarget retrieves the followers of a target ordered by identity
func (r *FollowerRepository) ListByTarget(ctx context.Context, target models.PolymorphicRef) ([]models.Follower, error) {
	var followers []models.Follower
	if err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", target.EntityType, target.EntityID).
		Order("identity ASC").
		Find(&followers).Error; err != nil {
		return nil, err
	}
	return followers, nil
}
