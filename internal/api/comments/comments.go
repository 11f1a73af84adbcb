// Package comments exposes comment and reaction methods over JSON-RPC.
package comments

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api/objects"
	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/logging"
)

// CommentAPI provides comment methods
type CommentAPI struct {
	comments  *discussion.CommentStore
	reactions *discussion.ReactionEngine
	builder   *objects.Builder
	logger    *zap.Logger
}

// NewCommentAPI creates a new comment API
func NewCommentAPI(svc *discussion.Service, builder *objects.Builder) *CommentAPI {
	return &CommentAPI{
		comments:  svc.Comments,
		reactions: svc.Reactions,
		builder:   builder,
		logger:    logging.WithComponent("comments-api"),
	}
}

type authorParams struct {
	UserID      *int64 `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" binding:"omitempty,email"`
}

type postParams struct {
	Target   params.Target `json:"target"`
	Author   authorParams  `json:"author"`
	Content  string        `json:"content" binding:"required"`
	ParentID *int64        `json:"parent_id"`
}

// Post handles comments.post
func (a *CommentAPI) Post(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p postParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	author := models.Author{
		UserID:      p.Author.UserID,
		Username:    p.Author.Username,
		DisplayName: p.Author.DisplayName,
		Email:       p.Author.Email,
	}
	comment, err := a.comments.Post(c.Request.Context(), p.Target.Ref(), author, p.Content, p.ParentID)
	if err != nil {
		return nil, err
	}
	return a.builder.Build(*comment, models.Tally{}), nil
}

type editParams struct {
	CommentID int64  `json:"comment_id" binding:"required"`
	Editor    string `json:"editor" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// Edit handles comments.edit
func (a *CommentAPI) Edit(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p editParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	comment, err := a.comments.Edit(ctx, p.CommentID, p.Editor, p.Content)
	if err != nil {
		return nil, err
	}
	tally, err := a.reactions.Tally(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	return a.builder.Build(*comment, tally), nil
}

type threadParams struct {
	Target params.Target `json:"target"`
	Tree   bool          `json:"tree"`
}

// ThreadResult is the result of comments.get_thread
type ThreadResult struct {
	Target    models.PolymorphicRef `json:"target"`
	TargetURL string                `json:"target_url,omitempty"`
	Count     int                   `json:"count"`
	Comments  []*objects.Comment    `json:"comments"`
}

// GetThread handles comments.get_thread. Count excludes removed comments.
func (a *CommentAPI) GetThread(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p threadParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	target := p.Target.Ref()
	thread, err := a.comments.Thread(ctx, target)
	if err != nil {
		return nil, err
	}
	tallies, err := a.reactions.Tallies(ctx, objects.CommentIDs(thread))
	if err != nil {
		return nil, err
	}

	flat := a.builder.BuildThread(thread, tallies)
	count := 0
	for _, obj := range flat {
		if !obj.IsRemoved {
			count++
		}
	}

	result := ThreadResult{
		Target:   target,
		Count:    count,
		Comments: flat,
	}
	if len(flat) > 0 {
		result.TargetURL = flat[0].TargetURL
	}
	if p.Tree {
		result.Comments = objects.Tree(flat)
	}
	return result, nil
}

type getParams struct {
	CommentID int64  `json:"comment_id"`
	URLHash   string `json:"url_hash"`
}

// Get handles comments.get, by id or by permalink hash
func (a *CommentAPI) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p getParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	var (
		comment *models.Comment
		err     error
	)
	switch {
	case p.URLHash != "":
		comment, err = a.comments.GetByURLHash(ctx, p.URLHash)
	case p.CommentID != 0:
		comment, err = a.comments.Get(ctx, p.CommentID)
	default:
		return nil, params.Required("comment_id or url_hash")
	}
	if err != nil {
		return nil, err
	}

	tallies, err := a.reactions.Tallies(ctx, []int64{comment.ID})
	if err != nil {
		return nil, err
	}
	return a.builder.Build(*comment, tallies[comment.ID]), nil
}
