package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steemit/discussion/internal/api/comments"
	"github.com/steemit/discussion/internal/api/objects"
	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/cache"
	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/db/dbtest"
	"github.com/steemit/discussion/internal/discussion"
	"github.com/steemit/discussion/internal/lock"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/config"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *JSONRPCError   `json:"error"`
}

func setupEngine(t *testing.T) (*gin.Engine, *discussion.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := dbtest.New(t)
	store := cache.NewLocal(32, time.Minute)
	svc := discussion.New(discussion.Deps{
		Repo:       db.NewRepository(database.DB),
		Locker:     lock.NewLocal(),
		Cache:      store,
		Authorizer: discussion.NewStaticAuthorizer([]string{"mod"}),
		Comments:   config.CommentsConfig{MaxContentLength: 3000, URLHashSalt: "test", AutoFollow: true, ThreadCacheTTL: time.Minute},
		Flags:      config.FlagsConfig{Threshold: 2, Reasons: []string{"spam", "other"}},
	})
	t.Cleanup(svc.Comments.Wait)

	engine := gin.New()
	links := objects.NewLinkRegistry(map[string]string{"article": "https://example.com/articles/{id}"})
	NewRouter(database, store, svc, links).SetupRoutes(engine)
	return engine, svc
}

func doRaw(t *testing.T, engine *gin.Engine, body string) rpcResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func call(t *testing.T, engine *gin.Engine, method string, params interface{}) rpcResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)
	return doRaw(t, engine, string(raw))
}

func mustResult(t *testing.T, resp rpcResponse, dst interface{}) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, dst))
}

var articleTarget = map[string]string{"entity_type": "article", "entity_id": "9"}

func TestHealth(t *testing.T) {
	engine, _ := setupEngine(t)

	for _, path := range []string{"/health", "/.well-known/healthcheck.json"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"OK"`)
	}
}

func TestJSONRPC_Envelope(t *testing.T) {
	engine, _ := setupEngine(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{not json`, ErrParseError},
		{"bad version", `{"jsonrpc":"1.0","id":1,"method":"comments.get"}`, ErrInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"nope"}`, ErrMethodNotFound},
		{"positional params", `{"jsonrpc":"2.0","id":1,"method":"comments.get","params":[1]}`, ErrInvalidParams},
		{"unknown field", `{"jsonrpc":"2.0","id":1,"method":"comments.get","params":{"id":1}}`, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRaw(t, engine, tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestComments(t *testing.T) {
	engine, svc := setupEngine(t)

	var root objects.Comment
	mustResult(t, call(t, engine, "comments.post", map[string]interface{}{
		"target":  articleTarget,
		"author":  map[string]interface{}{"username": "alice", "email": "alice@example.com"},
		"content": "**first**",
	}), &root)
	assert.Equal(t, "**first**", root.Content)
	assert.Contains(t, root.ContentHTML, "<strong>first</strong>")
	assert.Equal(t, "https://example.com/articles/9", root.TargetURL)
	assert.Equal(t, discussion.URLHash("test", root.ID), root.URLHash)

	var reply objects.Comment
	mustResult(t, call(t, engine, "comments.post", map[string]interface{}{
		"target":    articleTarget,
		"author":    map[string]interface{}{"email": "anon@example.com", "display_name": "Guest"},
		"content":   "reply",
		"parent_id": root.ID,
	}), &reply)
	assert.True(t, reply.Author.Anonymous)
	svc.Comments.Wait()

	resp := call(t, engine, "comments.post", map[string]interface{}{
		"target":  articleTarget,
		"author":  map[string]interface{}{"username": "bob"},
		"content": "",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidParams, resp.Error.Code)

	var tally comments.TallyResult
	mustResult(t, call(t, engine, "reactions.react", map[string]interface{}{
		"comment_id": root.ID, "user": "bob", "kind": "like",
	}), &tally)
	assert.Equal(t, models.Tally{Likes: 1}, tally.Tally)

	var thread comments.ThreadResult
	mustResult(t, call(t, engine, "comments.get_thread", map[string]interface{}{
		"target": articleTarget, "tree": true,
	}), &thread)
	assert.Equal(t, 2, thread.Count)
	require.Len(t, thread.Comments, 1)
	assert.True(t, thread.Comments[0].HasReplies)
	assert.Equal(t, int64(1), thread.Comments[0].Tally.Likes)
	require.Len(t, thread.Comments[0].Replies, 1)
	assert.Equal(t, reply.ID, thread.Comments[0].Replies[0].ID)

	var byHash objects.Comment
	mustResult(t, call(t, engine, "comments.get", map[string]interface{}{"url_hash": root.URLHash}), &byHash)
	assert.Equal(t, root.ID, byHash.ID)

	resp = call(t, engine, "comments.edit", map[string]interface{}{
		"comment_id": root.ID, "editor": "bob", "content": "hijack",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrForbidden, resp.Error.Code)
	assert.Equal(t, discussion.KindForbidden.UserMessage(), resp.Error.Message)

	resp = call(t, engine, "comments.get", map[string]interface{}{"comment_id": 9999})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrNotFound, resp.Error.Code)

	var following []string
	mustResult(t, call(t, engine, "follows.get_followers", map[string]interface{}{"target": articleTarget}), &following)
	assert.Equal(t, []string{"alice", "anon@example.com"}, following)

	var rows []models.Follower
	mustResult(t, call(t, engine, "follows.list", map[string]interface{}{"moderator": "mod", "target": articleTarget}), &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "anon@example.com", rows[1].Email)

	resp = call(t, engine, "follows.list", map[string]interface{}{"moderator": "alice", "target": articleTarget})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrForbidden, resp.Error.Code)
}

func TestModeration(t *testing.T) {
	engine, _ := setupEngine(t)

	var c objects.Comment
	mustResult(t, call(t, engine, "comments.post", map[string]interface{}{
		"target":  articleTarget,
		"author":  map[string]interface{}{"username": "troll"},
		"content": "buy now",
	}), &c)

	for _, reporter := range []string{"r1", "r2"} {
		resp := call(t, engine, "flags.report", map[string]interface{}{
			"comment_id": c.ID, "reporter": reporter, "reason": "spam",
		})
		require.Nil(t, resp.Error)
	}
	resp := call(t, engine, "flags.report", map[string]interface{}{
		"comment_id": c.ID, "reporter": "r1", "reason": "spam",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrDuplicateReport, resp.Error.Code)

	var queue []models.Flag
	mustResult(t, call(t, engine, "flags.list", map[string]interface{}{}), &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, models.FlagFlagged, queue[0].State)

	resp = call(t, engine, "flags.resolve", map[string]interface{}{
		"comment_id": c.ID, "moderator": "mod", "outcome": "resolved", "reason": "spam",
	})
	require.Nil(t, resp.Error)

	var detail struct {
		Flag      models.Flag           `json:"flag"`
		Author    string                `json:"comment_author"`
		Instances []models.FlagInstance `json:"instances"`
	}
	mustResult(t, call(t, engine, "flags.get", map[string]interface{}{"comment_id": c.ID}), &detail)
	assert.Equal(t, models.FlagFlaggedAndResolved, detail.Flag.State)
	assert.Equal(t, "troll", detail.Author)
	assert.Len(t, detail.Instances, 2)

	resp = call(t, engine, "blocks.block", map[string]interface{}{"user": "troll", "blocker": "r1"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrForbidden, resp.Error.Code)

	resp = call(t, engine, "blocks.block", map[string]interface{}{"user": "troll", "blocker": "mod", "reason": "spam"})
	require.Nil(t, resp.Error)

	resp = call(t, engine, "comments.post", map[string]interface{}{
		"target":  articleTarget,
		"author":  map[string]interface{}{"username": "troll"},
		"content": "again",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrBlocked, resp.Error.Code)

	var history []models.BlockedUserHistory
	mustResult(t, call(t, engine, "blocks.history", map[string]interface{}{"user": "troll"}), &history)
	require.Len(t, history, 1)

	resp = call(t, engine, "blocks.unblock", map[string]interface{}{"user": "nobody", "blocker": "mod"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrNotBlocked, resp.Error.Code)

	var reasons []string
	mustResult(t, call(t, engine, "flags.reasons", nil), &reasons)
	assert.Equal(t, []string{"spam", "other"}, reasons)
}

func TestToRPCError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		internal bool
	}{
		{"params error", params.Required("target"), ErrInvalidParams, false},
		{"domain error", discussion.ErrNotFlagged, ErrNotFlagged, false},
		{"other", assert.AnError, ErrServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpcErr, internal := toRPCError(tt.err)
			if rpcErr.Code != tt.code {
				t.Errorf("toRPCError() code = %v, want %v", rpcErr.Code, tt.code)
			}
			if internal != tt.internal {
				t.Errorf("toRPCError() internal = %v, want %v", internal, tt.internal)
			}
		})
	}
}
