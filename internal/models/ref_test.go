package models

import (
	"strings"
	"testing"
)

func TestPolymorphicRef_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ref     PolymorphicRef
		wantErr bool
	}{
		{"valid", PolymorphicRef{EntityType: "article", EntityID: "42"}, false},
		{"underscore type", PolymorphicRef{EntityType: "blog_post", EntityID: "a-b"}, false},
		{"empty type", PolymorphicRef{EntityID: "1"}, true},
		{"uppercase type", PolymorphicRef{EntityType: "Article", EntityID: "1"}, true},
		{"empty id", PolymorphicRef{EntityType: "article"}, true},
		{"long id", PolymorphicRef{EntityType: "article", EntityID: strings.Repeat("x", 129)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolymorphicRef_Key(t *testing.T) {
	ref := PolymorphicRef{EntityType: "event", EntityID: "7"}
	if got := ref.Key(); got != "event:7" {
		t.Errorf("Key() = %v, want %v", got, "event:7")
	}
}

func TestAuthor_Identity(t *testing.T) {
	id := int64(3)
	tests := []struct {
		name      string
		author    Author
		identity  string
		anonymous bool
	}{
		{"registered", Author{UserID: &id, Username: "Alice", Email: "a@x.io"}, "alice", false},
		{"username only", Author{Username: " Bob "}, "bob", false},
		{"anonymous", Author{Email: "Guest@X.io"}, "guest@x.io", true},
		{"nobody", Author{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.author.Identity(); got != tt.identity {
				t.Errorf("Identity() = %v, want %v", got, tt.identity)
			}
			if got := tt.author.IsAnonymous(); got != tt.anonymous {
				t.Errorf("IsAnonymous() = %v, want %v", got, tt.anonymous)
			}
		})
	}
}

func TestFlagState_IsTerminal(t *testing.T) {
	tests := []struct {
		state FlagState
		want  bool
	}{
		{FlagUnflagged, false},
		{FlagFlagged, false},
		{FlagFlaggedAndRejected, true},
		{FlagFlaggedAndResolved, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.want {
			t.Errorf("%v.IsTerminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestReactionKind_Valid(t *testing.T) {
	for _, k := range []ReactionKind{ReactionLike, ReactionDislike} {
		if !k.Valid() {
			t.Errorf("%v.Valid() = false, want true", k)
		}
	}
	if ReactionKind("love").Valid() {
		t.Errorf("love.Valid() = true, want false")
	}
}
