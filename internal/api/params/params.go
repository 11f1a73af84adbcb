// Package params decodes and validates JSON-RPC method parameters.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin/binding"

	"github.com/steemit/discussion/internal/models"
)

// InvalidParamsCode is the JSON-RPC code for invalid method parameters
const InvalidParamsCode = -32602

// Error reports malformed parameters
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "invalid params: " + e.Message
}

// Bind decodes a named-parameter object into dst and runs its binding
// validations.
func Bind(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if raw[0] != '{' {
		return &Error{Message: "params must be an object"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &Error{Message: err.Error()}
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return &Error{Message: err.Error()}
	}
	return nil
}

// Target is the polymorphic reference accepted by every method
type Target struct {
	EntityType string `json:"entity_type" binding:"required"`
	EntityID   string `json:"entity_id" binding:"required"`
}

// Ref converts the parameter to a reference
func (t Target) Ref() models.PolymorphicRef {
	return models.PolymorphicRef{EntityType: t.EntityType, EntityID: t.EntityID}
}

// Limit clamps a list limit into [1, max], defaulting to def
func Limit(limit, def, max int) int {
	if limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Required reports a missing parameter
func Required(name string) error {
	return &Error{Message: fmt.Sprintf("missing required parameter: %s", name)}
}
