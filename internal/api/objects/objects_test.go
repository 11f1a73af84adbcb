package objects

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steemit/discussion/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func TestRenderContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		contains string
		excludes string
	}{
		{"emphasis", "*hi*", "<em>hi</em>", ""},
		{"autolink", "see https://example.com", `href="https://example.com"`, ""},
		{"nofollow", "[x](https://example.com)", `rel="nofollow`, ""},
		{"script stripped", "<script>alert(1)</script>", "", "<script>"},
		{"blockquote", "I agree\n\n> quoted", "<blockquote>", ""},
		{"plain punctuation escaped once", "2 < 3 & 4", "2 &lt; 3 &amp; 4", "&amp;amp;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderContent(tt.content)
			if tt.contains != "" && !strings.Contains(got, tt.contains) {
				t.Errorf("RenderContent(%q) = %q, want it to contain %q", tt.content, got, tt.contains)
			}
			if tt.excludes != "" && strings.Contains(got, tt.excludes) {
				t.Errorf("RenderContent(%q) = %q, must not contain %q", tt.content, got, tt.excludes)
			}
		})
	}
}

func TestLinkRegistry(t *testing.T) {
	links := NewLinkRegistry(map[string]string{"Article": "https://example.com/a/{id}"})

	article := models.PolymorphicRef{EntityType: "article", EntityID: "hello world"}
	assert.Equal(t, "https://example.com/a/hello%20world", links.URL(article))
	assert.Equal(t, "https://example.com/a/hello%20world#cABC", links.Permalink(article, "ABC"))
	assert.Empty(t, links.URL(models.PolymorphicRef{EntityType: "event", EntityID: "1"}))

	var none *LinkRegistry
	assert.Empty(t, none.URL(article))
}

func TestAvatarHash(t *testing.T) {
	assert.Equal(t, AvatarHash("Alice@Example.com "), AvatarHash("alice@example.com"))
	assert.NotEqual(t, AvatarHash("alice@example.com"), AvatarHash("bob@example.com"))
	assert.Len(t, AvatarHash("x"), 64)
}

func TestBuildThread(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	removed := at.Add(time.Hour)
	comments := []models.Comment{
		{ID: 1, TargetType: "article", TargetID: "1", Author: models.Author{Username: "alice", Email: "a@x.io"}, Content: "root", PostedAt: at},
		{ID: 2, TargetType: "article", TargetID: "1", ParentID: int64Ptr(1), Author: models.Author{Email: "anon@x.io"}, Content: "reply", PostedAt: at, RemovedAt: &removed},
		{ID: 3, TargetType: "article", TargetID: "1", ParentID: int64Ptr(2), Author: models.Author{Username: "bob", DisplayName: "Bob B"}, Content: "nested", PostedAt: at},
		{ID: 4, TargetType: "article", TargetID: "1", ParentID: int64Ptr(99), Author: models.Author{Username: "carol"}, Content: "orphan", PostedAt: at},
	}
	tallies := map[int64]models.Tally{1: {Likes: 2}, 2: {Dislikes: 1}}

	b := NewBuilder(NewLinkRegistry(map[string]string{"article": "/a/{id}"}))
	flat := b.BuildThread(comments, tallies)
	require.Len(t, flat, 4)

	assert.True(t, flat[0].HasReplies)
	assert.Equal(t, models.Tally{Likes: 2}, flat[0].Tally)
	assert.Equal(t, "/a/1", flat[0].TargetURL)
	assert.Equal(t, "alice", flat[0].Author.Name)
	assert.False(t, flat[0].Author.Anonymous)

	assert.True(t, flat[1].IsRemoved)
	assert.Equal(t, RemovedContent, flat[1].Content)
	assert.Equal(t, models.Tally{}, flat[1].Tally)
	assert.True(t, flat[1].Author.Anonymous)
	assert.Equal(t, "Anonymous", flat[1].Author.Name)
	assert.True(t, flat[1].HasReplies)

	assert.Equal(t, "Bob B", flat[2].Author.Name)
	assert.False(t, flat[2].HasReplies)

	roots := Tree(flat)
	require.Len(t, roots, 2)
	assert.Equal(t, int64(1), roots[0].ID)
	assert.Equal(t, int64(4), roots[1].ID, "orphans become roots")
	require.Len(t, roots[0].Replies, 1)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.Equal(t, int64(3), roots[0].Replies[0].Replies[0].ID)

	assert.Equal(t, []int64{1, 2, 3, 4}, CommentIDs(comments))
}
