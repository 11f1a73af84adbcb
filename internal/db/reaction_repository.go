package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/discussion/internal/models"
)

// ReactionRepository provides reaction-related database operations
type ReactionRepository struct {
	*Repository
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(repo *Repository) *ReactionRepository {
	return &ReactionRepository{Repository: repo}
}

// Get retrieves the reaction of identity on a comment
func (r *ReactionRepository) Get(ctx context.Context, commentID int64, identity string) (*models.ReactionInstance, error) {
	var reaction models.ReactionInstance
	if err := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_identity = ?", commentID, identity).
		First(&reaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// Upsert inserts the reaction or replaces the kind of the existing one
func (r *ReactionRepository) Upsert(ctx context.Context, reaction *models.ReactionInstance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_identity"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "reacted_at"}),
		}).
		Create(reaction).Error
}

// Delete removes the reaction of identity on a comment
func (r *ReactionRepository) Delete(ctx context.Context, commentID int64, identity string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_identity = ?", commentID, identity).
		Delete(&models.ReactionInstance{})
	return res.RowsAffected, res.Error
}

type tallyRow struct {
	CommentID int64
	Kind      models.ReactionKind
	Total     int64
}

// Tally counts live reactions of a comment by kind
func (r *ReactionRepository) Tally(ctx context.Context, commentID int64) (models.Tally, error) {
	tallies, err := r.Tallies(ctx, []int64{commentID})
	if err != nil {
		return models.Tally{}, err
	}
	return tallies[commentID], nil
}

// Tallies counts live reactions of several comments by kind. Comments
// without reactions are absent from the result.
func (r *ReactionRepository) Tallies(ctx context.Context, commentIDs []int64) (map[int64]models.Tally, error) {
	result := make(map[int64]models.Tally, len(commentIDs))
	if len(commentIDs) == 0 {
		return result, nil
	}

	var rows []tallyRow
	if err := r.db.WithContext(ctx).
		Model(&models.ReactionInstance{}).
		Select("comment_id, kind, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id, kind").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		t := result[row.CommentID]
		switch row.Kind {
		case models.ReactionLike:
			t.Likes = row.Total
		case models.ReactionDislike:
			t.Dislikes = row.Total
		}
		result[row.CommentID] = t
	}
	return result, nil
}

// ListByComment retrieves every reaction of a comment, oldest first
func (r *ReactionRepository) ListByComment(ctx context.Context, commentID int64) ([]models.ReactionInstance, error) {
	var reactions []models.ReactionInstance
	if err := r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("reacted_at ASC, id ASC").
		Find(&reactions).Error; err != nil {
		return nil, err
	}
	return reactions, nil
}
