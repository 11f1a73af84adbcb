package objects

import (
	"net/url"
	"strings"

	"github.com/steemit/discussion/internal/models"
)

// LinkRegistry maps entity types to URL templates such as
// "https://example.com/articles/{id}". Entity types without a template
// have no URL.
type LinkRegistry struct {
	templates map[string]string
}

// NewLinkRegistry creates a registry from entity type to template
func NewLinkRegistry(templates map[string]string) *LinkRegistry {
	copied := make(map[string]string, len(templates))
	for k, v := range templates {
		copied[strings.ToLower(k)] = v
	}
	return &LinkRegistry{templates: copied}
}

// URL returns the URL of the target, or "" when its type is unregistered
func (r *LinkRegistry) URL(target models.PolymorphicRef) string {
	if r == nil {
		return ""
	}
	tmpl, ok := r.templates[target.EntityType]
	if !ok {
		return ""
	}
	return strings.ReplaceAll(tmpl, "{id}", url.PathEscape(target.EntityID))
}

// Permalink returns the URL of a comment under its target
func (r *LinkRegistry) Permalink(target models.PolymorphicRef, urlHash string) string {
	base := r.URL(target)
	if base == "" || urlHash == "" {
		return ""
	}
	return base + "#c" + urlHash
}
