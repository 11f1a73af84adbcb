package moderation

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/pkg/logging"
)

// BlockAPI provides block methods
type BlockAPI struct {
	blocks *discussion.BlockRegistry
	logger *zap.Logger
}

// NewBlockAPI creates a new block API
func NewBlockAPI(svc *discussion.Service) *BlockAPI {
	return &BlockAPI{
		blocks: svc.Blocks,
		logger: logging.WithComponent("blocks-api"),
	}
}

type blockParams struct {
	User    string `json:"user" binding:"required"`
	Blocker string `json:"blocker" binding:"required"`
	Reason  string `json:"reason"`
}

// Block handles blocks.block
func (a *BlockAPI) Block(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p blockParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.blocks.Block(c.Request.Context(), p.User, p.Blocker, p.Reason)
}

// Unblock handles blocks.unblock
func (a *BlockAPI) Unblock(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p blockParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.blocks.Unblock(c.Request.Context(), p.User, p.Blocker, p.Reason)
}

type userParams struct {
	User string `json:"user" binding:"required"`
}

// IsBlocked handles blocks.is_blocked
func (a *BlockAPI) IsBlocked(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	blocked, err := a.blocks.IsBlocked(c.Request.Context(), p.User)
	if err != nil {
		return nil, err
	}
	return gin.H{"user": p.User, "blocked": blocked}, nil
}

// History handles blocks.history
func (a *BlockAPI) History(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p userParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.blocks.History(c.Request.Context(), p.User)
}

type listBlockedParams struct {
	Limit int `json:"limit"`
}

// List handles blocks.list
func (a *BlockAPI) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p listBlockedParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.blocks.Blocked(c.Request.Context(), params.Limit(p.Limit, 20, discussion.DefaultListLimit))
}
