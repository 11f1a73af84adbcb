package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/discussion/internal/models"
)

// FlagRepository provides flag-related database operations
type FlagRepository struct {
	*Repository
}

// NewFlagRepository creates a new flag repository
func NewFlagRepository(repo *Repository) *FlagRepository {
	return &FlagRepository{Repository: repo}
}

// GetByComment retrieves the flag of a comment
func (r *FlagRepository) GetByComment(ctx context.Context, commentID int64) (*models.Flag, error) {
	var flag models.Flag
	if err := r.db.WithContext(ctx).Where("comment_id = ?", commentID).First(&flag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

// GetByCommentForUpdate retrieves the flag of a comment and locks its row
func (r *FlagRepository) GetByCommentForUpdate(ctx context.Context, commentID int64) (*models.Flag, error) {
	var flag models.Flag
	if err := r.forUpdate(ctx).Where("comment_id = ?", commentID).First(&flag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

// GetOrCreateForUpdate returns the locked flag of a comment, creating an
// unflagged one first when the comment has none.
func (r *FlagRepository) GetOrCreateForUpdate(ctx context.Context, commentID int64, now time.Time) (*models.Flag, error) {
	fresh := &models.Flag{
		CommentID: commentID,
		State:     models.FlagUnflagged,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	flag, err := r.GetByCommentForUpdate(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return flag, nil
}

// Save updates a flag
func (r *FlagRepository) Save(ctx context.Context, flag *models.Flag) error {
	return r.db.WithContext(ctx).Save(flag).Error
}

// HasReport reports whether reporter already has an instance in the cycle
func (r *FlagRepository) HasReport(ctx context.Context, flagID int64, cycle int, reporter string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FlagInstance{}).
		Where("flag_id = ? AND cycle = ? AND reporter = ?", flagID, cycle, reporter).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountReports counts the instances of a flag cycle
func (r *FlagRepository) CountReports(ctx context.Context, flagID int64, cycle int) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FlagInstance{}).
		Where("flag_id = ? AND cycle = ?", flagID, cycle).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AddInstance appends a report
func (r *FlagRepository) AddInstance(ctx context.Context, instance *models.FlagInstance) error {
	return r.db.WithContext(ctx).Create(instance).Error
}

// ListInstances retrieves the reports of a flag, oldest first. A nil cycle
// returns the reports of every cycle.
func (r *FlagRepository) ListInstances(ctx context.Context, flagID int64, cycle *int) ([]models.FlagInstance, error) {
	query := r.db.WithContext(ctx).Where("flag_id = ?", flagID)
	if cycle != nil {
		query = query.Where("cycle = ?", *cycle)
	}

	var instances []models.FlagInstance
	if err := query.Order("flagged_at ASC, id ASC").Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

// ListByState retrieves flags in a state, most recently updated first
func (r *FlagRepository) ListByState(ctx context.Context, state models.FlagState, limit int) ([]models.Flag, error) {
	var flags []models.Flag
	if err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&flags).Error; err != nil {
		return nil, err
	}
	return flags, nil
}
