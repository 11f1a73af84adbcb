package discussion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/discussion/internal/models"
)

// CommentPostedEvent announces a new comment and who follows its target
type CommentPostedEvent struct {
	Comment   models.Comment        `json:"comment"`
	Target    models.PolymorphicRef `json:"target"`
	Followers []string              `json:"followers"`
}

// FlagEscalatedEvent announces a flag crossing the report threshold
type FlagEscalatedEvent struct {
	CommentID   int64     `json:"comment_id"`
	Count       int       `json:"count"`
	Threshold   int       `json:"threshold"`
	EscalatedAt time.Time `json:"escalated_at"`
}

// Notifier hands events to an external delivery system. Implementations
// must not deliver notifications themselves.
type Notifier interface {
	CommentPosted(ctx context.Context, event CommentPostedEvent) error
	FlagEscalated(ctx context.Context, event FlagEscalatedEvent) error
}

// LogNotifier records events in the log only
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs events
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// CommentPosted implements Notifier
func (n *LogNotifier) CommentPosted(_ context.Context, event CommentPostedEvent) error {
	n.logger.Info("[NOTIFY] comment posted",
		zap.Int64("comment_id", event.Comment.ID),
		zap.String("target", event.Target.Key()),
		zap.Int("followers", len(event.Followers)))
	return nil
}

// FlagEscalated implements Notifier
func (n *LogNotifier) FlagEscalated(_ context.Context, event FlagEscalatedEvent) error {
	n.logger.Info("[NOTIFY] flag escalated",
		zap.Int64("comment_id", event.CommentID),
		zap.Int("count", event.Count))
	return nil
}
