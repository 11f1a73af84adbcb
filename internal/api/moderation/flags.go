// Package moderation exposes the flag workflow and the block registry over
// JSON-RPC.
package moderation

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/logging"
)

// FlagAPI provides flag methods
type FlagAPI struct {
	flags  *discussion.FlagWorkflow
	logger *zap.Logger
}

// NewFlagAPI creates a new flag API
func NewFlagAPI(svc *discussion.Service) *FlagAPI {
	return &FlagAPI{
		flags:  svc.Flags,
		logger: logging.WithComponent("flags-api"),
	}
}

type reportParams struct {
	CommentID int64  `json:"comment_id" binding:"required"`
	Reporter  string `json:"reporter" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Info      string `json:"info"`
}

// Report handles flags.report
func (a *FlagAPI) Report(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p reportParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.flags.Report(c.Request.Context(), p.CommentID, p.Reporter, p.Reason, p.Info)
}

type resolveParams struct {
	CommentID int64  `json:"comment_id" binding:"required"`
	Moderator string `json:"moderator" binding:"required"`
	Outcome   string `json:"outcome" binding:"required,oneof=resolved rejected"`
	Reason    string `json:"reason"`
}

// Resolve handles flags.resolve
func (a *FlagAPI) Resolve(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p resolveParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.flags.Resolve(c.Request.Context(), p.CommentID, p.Moderator, models.FlagOutcome(p.Outcome), p.Reason)
}

type reopenParams struct {
	CommentID int64  `json:"comment_id" binding:"required"`
	Moderator string `json:"moderator" binding:"required"`
}

// Reopen handles flags.reopen
func (a *FlagAPI) Reopen(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p reopenParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.flags.Reopen(c.Request.Context(), p.CommentID, p.Moderator)
}

type getFlagParams struct {
	CommentID int64 `json:"comment_id" binding:"required"`
	AllCycles bool  `json:"all_cycles"`
}

// FlagResult is the result of flags.get
type FlagResult struct {
	Flag      *models.Flag          `json:"flag"`
	Author    string                `json:"comment_author"`
	Instances []models.FlagInstance `json:"instances"`
}

// Get handles flags.get
func (a *FlagAPI) Get(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p getFlagParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	flag, err := a.flags.Get(ctx, p.CommentID)
	if err != nil {
		return nil, err
	}
	author, err := a.flags.CommentAuthor(ctx, p.CommentID)
	if err != nil {
		return nil, err
	}
	instances, err := a.flags.Instances(ctx, p.CommentID, p.AllCycles)
	if err != nil {
		return nil, err
	}
	return FlagResult{Flag: flag, Author: author, Instances: instances}, nil
}

type listFlagsParams struct {
	State string `json:"state" binding:"omitempty,oneof=unflagged flagged flagged_and_rejected flagged_and_resolved"`
	Limit int    `json:"limit"`
}

// List handles flags.list. The default state is flagged, the moderation
// queue.
func (a *FlagAPI) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p listFlagsParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	state := models.FlagFlagged
	if p.State != "" {
		state = models.FlagState(p.State)
	}
	return a.flags.List(c.Request.Context(), state, params.Limit(p.Limit, 20, discussion.DefaultListLimit))
}

// Reasons handles flags.reasons
func (a *FlagAPI) Reasons(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	return a.flags.Reasons(), nil
}
