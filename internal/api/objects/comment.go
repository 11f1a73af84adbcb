package objects

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/steemit/discussion/internal/models"
)

// RemovedContent replaces the content of removed comments
const RemovedContent = "This comment has been removed."

// Author is the public view of a comment author. Emails never leave the
// server; AvatarHash stands in for them.
type Author struct {
	Name       string `json:"name"`
	Username   string `json:"username,omitempty"`
	AvatarHash string `json:"avatar_hash"`
	Anonymous  bool   `json:"anonymous"`
}

// Comment is the API object of a comment
type Comment struct {
	ID          int64                 `json:"id"`
	URLHash     string                `json:"url_hash"`
	Target      models.PolymorphicRef `json:"target"`
	TargetURL   string                `json:"target_url,omitempty"`
	Permalink   string                `json:"permalink,omitempty"`
	ParentID    *int64                `json:"parent_id,omitempty"`
	Author      Author                `json:"author"`
	Content     string                `json:"content"`
	ContentHTML string                `json:"content_html"`
	PostedAt    time.Time             `json:"posted_at"`
	EditedAt    *time.Time            `json:"edited_at,omitempty"`
	IsRemoved   bool                  `json:"is_removed"`
	HasReplies  bool                  `json:"has_replies"`
	Tally       models.Tally          `json:"tally"`
	Replies     []*Comment            `json:"replies,omitempty"`
}

// AvatarHash hashes an email for avatar lookups without exposing it
func AvatarHash(email string) string {
	sum := blake2b.Sum256([]byte(models.NormalizeIdentity(email)))
	return hex.EncodeToString(sum[:])
}

// Builder turns stored comments into API objects
type Builder struct {
	links *LinkRegistry
}

// NewBuilder creates a builder
func NewBuilder(links *LinkRegistry) *Builder {
	return &Builder{links: links}
}

// Build converts one comment
func (b *Builder) Build(c models.Comment, tally models.Tally) *Comment {
	target := c.Target()
	name := c.Author.DisplayName
	if name == "" {
		name = c.Author.Username
	}
	if name == "" {
		name = "Anonymous"
	}

	out := &Comment{
		ID:        c.ID,
		URLHash:   c.URLHash,
		Target:    target,
		TargetURL: b.links.URL(target),
		Permalink: b.links.Permalink(target, c.URLHash),
		ParentID:  c.ParentID,
		Author: Author{
			Name:       name,
			Username:   c.Author.Username,
			AvatarHash: AvatarHash(c.Author.Email),
			Anonymous:  c.Author.IsAnonymous(),
		},
		PostedAt:  c.PostedAt,
		EditedAt:  c.EditedAt,
		IsRemoved: c.IsRemoved(),
		Tally:     tally,
	}
	if out.IsRemoved {
		out.Content = RemovedContent
		out.ContentHTML = "<p>" + RemovedContent + "</p>"
		out.Tally = models.Tally{}
	} else {
		out.Content = c.Content
		out.ContentHTML = RenderContent(c.Content)
	}
	return out
}

// BuildThread converts a flat thread, keeping its order and marking
// comments that have replies.
func (b *Builder) BuildThread(comments []models.Comment, tallies map[int64]models.Tally) []*Comment {
	parents := make(map[int64]bool)
	for _, c := range comments {
		if c.ParentID != nil {
			parents[*c.ParentID] = true
		}
	}

	out := make([]*Comment, 0, len(comments))
	for _, c := range comments {
		obj := b.Build(c, tallies[c.ID])
		obj.HasReplies = parents[c.ID]
		out = append(out, obj)
	}
	return out
}

// Tree nests a flat thread under its roots. Replies whose parent is not in
// the thread are treated as roots.
func Tree(flat []*Comment) []*Comment {
	byID := make(map[int64]*Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}

	roots := make([]*Comment, 0)
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

// CommentIDs returns the ids of a thread
func CommentIDs(comments []models.Comment) []int64 {
	ids := make([]int64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	return ids
}
