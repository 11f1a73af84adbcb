// Package follows exposes follower subscriptions over JSON-RPC.
package follows

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/pkg/logging"
)

// FollowAPI provides follow methods
type FollowAPI struct {
	follows *discussion.FollowRegistry
	logger  *zap.Logger
}

// NewFollowAPI creates a new follow API
func NewFollowAPI(svc *discussion.Service) *FollowAPI {
	return &FollowAPI{
		follows: svc.Follows,
		logger:  logging.WithComponent("follows-api"),
	}
}

type followParams struct {
	User   string        `json:"user" binding:"required"`
	Target params.Target `json:"target"`
}

// FollowResult reports the subscription state after a call
type FollowResult struct {
	User      string `json:"user"`
	Following bool   `json:"following"`
}

// Follow handles follows.follow
func (a *FollowAPI) Follow(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p followParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	if err := a.follows.Follow(c.Request.Context(), p.User, p.Target.Ref()); err != nil {
		return nil, err
	}
	return FollowResult{User: p.User, Following: true}, nil
}

// Unfollow handles follows.unfollow
func (a *FollowAPI) Unfollow(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p followParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	if err := a.follows.Unfollow(c.Request.Context(), p.User, p.Target.Ref()); err != nil {
		return nil, err
	}
	return FollowResult{User: p.User, Following: false}, nil
}

// IsFollowing handles follows.is_following
func (a *FollowAPI) IsFollowing(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p followParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	following, err := a.follows.IsFollowing(c.Request.Context(), p.User, p.Target.Ref())
	if err != nil {
		return nil, err
	}
	return FollowResult{User: p.User, Following: following}, nil
}

type targetParams struct {
	Target params.Target `json:"target"`
}

// FollowersOf handles follows.get_followers
func (a *FollowAPI) FollowersOf(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p targetParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.follows.FollowersOf(c.Request.Context(), p.Target.Ref())
}

type listParams struct {
	Moderator string        `json:"moderator" binding:"required"`
	Target    params.Target `json:"target"`
}

// List handles follows.list, the moderator view of a target's followers
func (a *FollowAPI) List(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p listParams
	if err := params.Bind(raw, &p); err != nil {
		return nil, err
	}
	return a.follows.Followers(c.Request.Context(), p.Moderator, p.Target.Ref())
}
