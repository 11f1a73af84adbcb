package params

import (
	"encoding/json"
	"errors"
	"testing"
)

type sample struct {
	Name   string `json:"name" binding:"required"`
	Kind   string `json:"kind" binding:"omitempty,oneof=like dislike"`
	Target Target `json:"target"`
}

func TestBind(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"name":"a","kind":"like","target":{"entity_type":"article","entity_id":"1"}}`, false},
		{"missing required", `{"target":{"entity_type":"article","entity_id":"1"}}`, true},
		{"bad enum", `{"name":"a","kind":"love","target":{"entity_type":"article","entity_id":"1"}}`, true},
		{"missing nested", `{"name":"a","target":{"entity_type":"article"}}`, true},
		{"unknown field", `{"name":"a","extra":1,"target":{"entity_type":"article","entity_id":"1"}}`, true},
		{"array", `["a"]`, true},
		{"null", `null`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s sample
			err := Bind(json.RawMessage(tt.raw), &s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Bind() error = %v, wantErr %v", err, tt.wantErr)
			}
			var perr *Error
			if err != nil && !errors.As(err, &perr) {
				t.Errorf("Bind() error type = %T, want *Error", err)
			}
		})
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, 20},
		{-1, 20},
		{5, 5},
		{500, 100},
	}
	for _, tt := range tests {
		if got := Limit(tt.limit, 20, 100); got != tt.want {
			t.Errorf("Limit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}
