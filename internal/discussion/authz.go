package discussion

import (
	"context"

	"github.com/steemit/discussion/internal/models"
)

// Authorizer answers whether an identity holds moderator capability.
// Authentication happens elsewhere; the core only consumes the answer.
type Authorizer interface {
	IsModerator(ctx context.Context, identity string) (bool, error)
}

// StaticAuthorizer grants moderator capability to a fixed set of identities
type StaticAuthorizer struct {
	moderators map[string]struct{}
}

// NewStaticAuthorizer creates an authorizer from a list of identities
func NewStaticAuthorizer(moderators []string) *StaticAuthorizer {
	set := make(map[string]struct{}, len(moderators))
	for _, m := range moderators {
		if m = models.NormalizeIdentity(m); m != "" {
			set[m] = struct{}{}
		}
	}
	return &StaticAuthorizer{moderators: set}
}

// IsModerator implements Authorizer
func (a *StaticAuthorizer) IsModerator(_ context.Context, identity string) (bool, error) {
	_, ok := a.moderators[models.NormalizeIdentity(identity)]
	return ok, nil
}

func requireModerator(ctx context.Context, authz Authorizer, identity string) error {
	ok, err := authz.IsModerator(ctx, identity)
	if err != nil {
		return &Error{Kind: KindForbidden, Message: "moderator check failed", Cause: err}
	}
	if !ok {
		return newError(KindForbidden, "%s is not a moderator", identity)
	}
	return nil
}
