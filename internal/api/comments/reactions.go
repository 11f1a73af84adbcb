package comments

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/logging"
)

// ReactionAPI provides reaction methods
type ReactionAPI struct {
	reactions *discussion.ReactionEngine
	logger    *zap.Logger
}

// NewReactionAPI creates a new reaction API
func NewReactionAPI(svc *discussion.Service) *ReactionAPI {
	return &ReactionAPI{
		reactions: svc.Reactions,
		logger:    logging.WithComponent("reactions-api"),
	}
}

type reactParams struct {
	CommentID int64  `json:"comment_id" binding:"required"`
	User      string `json:"user" binding:"required"`
	Kind      string `json:"kind" binding:"required,oneof=like dislike"`
}

// TallyResult is the result of every reaction method
type TallyResult struct {
	CommentID int64        `json:"comment_id"`
	Tally     models.Tally `json:"tally"`
}

// React handles reactions.react
func (a *ReactionAPI) React(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p reactParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	tally, err := a.reactions.React(c.Request.Context(), p.CommentID, p.User, models.ReactionKind(p.Kind))
	if err != nil {
		return nil, err
	}
	return TallyResult{CommentID: p.CommentID, Tally: tally}, nil
}

type unreactParams struct {
	CommentID int64  `json:"comment_id" binding:"required"`
	User      string `json:"user" binding:"required"`
}

// Unreact handles reactions.unreact
func (a *ReactionAPI) Unreact(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p unreactParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	tally, err := a.reactions.Unreact(c.Request.Context(), p.CommentID, p.User)
	if err != nil {
		return nil, err
	}
	return TallyResult{CommentID: p.CommentID, Tally: tally}, nil
}

type commentParams struct {
	CommentID int64 `json:"comment_id" binding:"required"`
}

// GetTally handles reactions.get_tally
func (a *ReactionAPI) GetTally(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	tally, err := a.reactions.Tally(c.Request.Context(), p.CommentID)
	if err != nil {
		return nil, err
	}
	return TallyResult{CommentID: p.CommentID, Tally: tally}, nil
}

// List handles reactions.list
func (a *ReactionAPI) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p commentParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.reactions.Reactions(c.Request.Context(), p.CommentID)
}
