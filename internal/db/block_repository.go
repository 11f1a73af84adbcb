package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/discussion/internal/models"
)

// BlockRepository provides blocked-user database operations
type BlockRepository struct {
	*Repository
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(repo *Repository) *BlockRepository {
	return &BlockRepository{Repository: repo}
}

// GetByIdentity retrieves the blocked-user projection of an identity
func (r *BlockRepository) GetByIdentity(ctx context.Context, identity string) (*models.BlockedUser, error) {
	var user models.BlockedUser
	if err := r.db.WithContext(ctx).Where("user_identity = ?", identity).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// IsBlocked reports whether any of the identities is currently blocked
func (r *BlockRepository) IsBlocked(ctx context.Context, identities ...string) (bool, error) {
	if len(identities) == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BlockedUser{}).
		Where("user_identity IN ? AND blocked = ?", identities, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetOrCreateForUpdate returns the locked projection of identity, creating
// an unblocked one when the identity has never been blocked.
func (r *BlockRepository) GetOrCreateForUpdate(ctx context.Context, identity, email string, now time.Time) (*models.BlockedUser, error) {
	fresh := &models.BlockedUser{
		UserIdentity: identity,
		Email:        email,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	var user models.BlockedUser
	if err := r.forUpdate(ctx).Where("user_identity = ?", identity).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Save updates the projection
func (r *BlockRepository) Save(ctx context.Context, user *models.BlockedUser) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// AppendHistory appends an audit row
func (r *BlockRepository) AppendHistory(ctx context.Context, entry *models.BlockedUserHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// History retrieves the audit trail of a blocked user, oldest first
func (r *BlockRepository) History(ctx context.Context, blockedUserID int64) ([]models.BlockedUserHistory, error) {
	var entries []models.BlockedUserHistory
	if err := r.db.WithContext(ctx).
		Where("blocked_user_id = ?", blockedUserID).
		Order("occurred_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListBlocked retrieves currently blocked users, most recent first
func (r *BlockRepository) ListBlocked(ctx context.Context, limit int) ([]models.BlockedUser, error) {
	var users []models.BlockedUser
	if err := r.db.WithContext(ctx).
		Where("blocked = ?", true).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
