package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/steemit/discussion/internal/db"
	"github.com/steemit/discussion/internal/lock"
	"github.com/steemit/discussion/internal/models"
	"github.com/steemit/discussion/pkg/config"
	"github.com/steemit/discussion/pkg/logging"
	"github.com/steemit/discussion/pkg/telemetry"
)

// ReasonOther is the report reason that requires free-text info
const ReasonOther = "other"

// FlagWorkflow runs the report and moderation state machine of comments:
//
//	unflagged --(count reaches threshold)--> flagged
//	flagged --resolve(resolved)--> flagged_and_resolved (comment removed)
//	flagged --resolve(rejected)--> flagged_and_rejected (cycle closed)
//	flagged_and_rejected --report--> unflagged (new cycle)
//	terminal --reopen--> unflagged (new cycle)
type FlagWorkflow struct {
	repo      *db.Repository
	flags     *db.FlagRepository
	comments  *CommentStore
	locker    lock.Locker
	authz     Authorizer
	notifier  Notifier
	cfg       config.FlagsConfig
	clock     func() time.Time
	logger    *zap.Logger
	reported  metric.Int64Counter
	escalated metric.Int64Counter
	resolved  metric.Int64Counter
}

// NewFlagWorkflow creates a flag workflow
func NewFlagWorkflow(deps Deps, comments *CommentStore) *FlagWorkflow {
	return &FlagWorkflow{
		repo:      deps.Repo,
		flags:     db.NewFlagRepository(deps.Repo),
		comments:  comments,
		locker:    deps.Locker,
		authz:     deps.Authorizer,
		notifier:  deps.Notifier,
		cfg:       deps.Flags,
		clock:     deps.Clock,
		logger:    logging.WithComponent("flags"),
		reported:  telemetry.Counter("discussion.flags.reported", "Reports filed against comments"),
		escalated: telemetry.Counter("discussion.flags.escalated", "Flags that reached the report threshold"),
		resolved:  telemetry.Counter("discussion.flags.resolved", "Moderator decisions on flags"),
	}
}

// Report files a report by reporter. The flag escalates to flagged exactly
// once per cycle, when the report count reaches the threshold.
func (w *FlagWorkflow) Report(ctx context.Context, commentID int64, reporter, reason, info string) (flag *models.Flag, err error) {
	ctx, span := telemetry.StartSpan(ctx, "flags.report")
	defer func() { telemetry.EndSpan(span, err) }()

	reporter = models.NormalizeIdentity(reporter)
	reason = strings.ToLower(strings.TrimSpace(reason))
	info = strings.TrimSpace(info)
	if reporter == "" {
		return nil, newError(KindInvalid, "reporter is required")
	}
	if !w.validReason(reason) {
		return nil, newError(KindInvalid, "unknown report reason %q", reason)
	}
	if reason == ReasonOther && info == "" {
		return nil, newError(KindInvalid, "reason %q requires info", ReasonOther)
	}

	unlock, err := w.locker.Acquire(ctx, lock.Key("comment", commentID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock comment %d: %w", commentID, err)
	}
	defer unlock()

	escalated := false
	err = w.repo.Transaction(ctx, func(tx *db.Repository) error {
		if err := requireLiveComment(ctx, db.NewCommentRepository(tx), commentID); err != nil {
			return err
		}
		flags := db.NewFlagRepository(tx)
		at := now(w.clock)

		current, err := flags.GetOrCreateForUpdate(ctx, commentID, at)
		if err != nil {
			return fmt.Errorf("failed to load flag: %w", err)
		}
		if current.State == models.FlagFlaggedAndRejected {
			current.State = models.FlagUnflagged
			current.Moderator = ""
			current.Reason = ""
		}

		dup, err := flags.HasReport(ctx, current.ID, current.Cycle, reporter)
		if err != nil {
			return fmt.Errorf("failed to check reports: %w", err)
		}
		if dup {
			return newError(KindDuplicateReport, "%s already reported comment %d", reporter, commentID)
		}

		if err := flags.AddInstance(ctx, &models.FlagInstance{
			FlagID:    current.ID,
			Cycle:     current.Cycle,
			Reporter:  reporter,
			Reason:    reason,
			Info:      info,
			FlaggedAt: at,
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(KindDuplicateReport, "%s already reported comment %d", reporter, commentID)
			}
			return fmt.Errorf("failed to add report: %w", err)
		}

		count, err := flags.CountReports(ctx, current.ID, current.Cycle)
		if err != nil {
			return fmt.Errorf("failed to count reports: %w", err)
		}
		current.Count = int(count)
		if current.State == models.FlagUnflagged && current.Count >= w.cfg.Threshold {
			current.State = models.FlagFlagged
			escalated = true
		}
		current.UpdatedAt = at
		if err := flags.Save(ctx, current); err != nil {
			return fmt.Errorf("failed to save flag: %w", err)
		}
		flag = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.reported.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	if escalated {
		w.onEscalated(ctx, flag)
	}
	return flag, nil
}

func (w *FlagWorkflow) onEscalated(ctx context.Context, flag *models.Flag) {
	w.escalated.Add(ctx, 1)
	logging.For(ctx, w.logger).Warn("Comment flagged for moderation",
		zap.Int64("comment_id", flag.CommentID),
		zap.Int("count", flag.Count),
		zap.Int("threshold", w.cfg.Threshold))

	if err := w.notifier.FlagEscalated(ctx, FlagEscalatedEvent{
		CommentID:   flag.CommentID,
		Count:       flag.Count,
		Threshold:   w.cfg.Threshold,
		EscalatedAt: flag.UpdatedAt,
	}); err != nil {
		logging.For(ctx, w.logger).Error("Failed to publish flag escalation",
			zap.Int64("comment_id", flag.CommentID),
			zap.Error(err))
	}
}

// Resolve records a moderator decision on a flagged comment. A resolved
// flag removes the comment; a rejected one closes the report cycle.
func (w *FlagWorkflow) Resolve(ctx context.Context, commentID int64, moderator string, outcome models.FlagOutcome, reason string) (flag *models.Flag, err error) {
	ctx, span := telemetry.StartSpan(ctx, "flags.resolve")
	defer func() { telemetry.EndSpan(span, err) }()

	moderator = models.NormalizeIdentity(moderator)
	if outcome != models.OutcomeResolved && outcome != models.OutcomeRejected {
		return nil, newError(KindInvalid, "unknown outcome %q", outcome)
	}
	if err := requireModerator(ctx, w.authz, moderator); err != nil {
		return nil, err
	}

	unlock, err := w.locker.Acquire(ctx, lock.Key("comment", commentID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock comment %d: %w", commentID, err)
	}
	defer unlock()

	var comment *models.Comment
	err = w.repo.Transaction(ctx, func(tx *db.Repository) error {
		flags := db.NewFlagRepository(tx)

		current, err := flags.GetByCommentForUpdate(ctx, commentID)
		if err != nil {
			return fmt.Errorf("failed to load flag: %w", err)
		}
		if current == nil || current.State != models.FlagFlagged {
			return newError(KindNotFlagged, "comment %d is not flagged", commentID)
		}

		current.Moderator = moderator
		current.Reason = strings.TrimSpace(reason)
		current.UpdatedAt = now(w.clock)

		switch outcome {
		case models.OutcomeResolved:
			current.State = models.FlagFlaggedAndResolved
			if comment, err = w.comments.setRemoved(ctx, tx, commentID, true); err != nil {
				return err
			}
		case models.OutcomeRejected:
			current.State = models.FlagFlaggedAndRejected
			current.Cycle++
			current.Count = 0
		}

		if err := flags.Save(ctx, current); err != nil {
			return fmt.Errorf("failed to save flag: %w", err)
		}
		flag = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if comment != nil {
		w.comments.invalidateThread(ctx, comment.Target())
	}
	w.resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	logging.For(ctx, w.logger).Info("Flag resolved",
		zap.Int64("comment_id", commentID),
		zap.String("moderator", moderator),
		zap.String("outcome", string(outcome)))
	return flag, nil
}

// Reopen returns a terminal flag to unflagged with a fresh report cycle and
// restores the comment if the flag had removed it.
func (w *FlagWorkflow) Reopen(ctx context.Context, commentID int64, moderator string) (flag *models.Flag, err error) {
	ctx, span := telemetry.StartSpan(ctx, "flags.reopen")
	defer func() { telemetry.EndSpan(span, err) }()

	moderator = models.NormalizeIdentity(moderator)
	if err := requireModerator(ctx, w.authz, moderator); err != nil {
		return nil, err
	}

	unlock, err := w.locker.Acquire(ctx, lock.Key("comment", commentID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock comment %d: %w", commentID, err)
	}
	defer unlock()

	var comment *models.Comment
	err = w.repo.Transaction(ctx, func(tx *db.Repository) error {
		flags := db.NewFlagRepository(tx)

		current, err := flags.GetByCommentForUpdate(ctx, commentID)
		if err != nil {
			return fmt.Errorf("failed to load flag: %w", err)
		}
		if current == nil || current.State == models.FlagUnflagged {
			return newError(KindNotFlagged, "comment %d is not flagged", commentID)
		}
		if !current.State.IsTerminal() {
			return newError(KindInvalid, "flag of comment %d awaits a decision", commentID)
		}

		if current.State == models.FlagFlaggedAndResolved {
			if comment, err = w.comments.setRemoved(ctx, tx, commentID, false); err != nil {
				return err
			}
		}

		current.State = models.FlagUnflagged
		current.Cycle++
		current.Count = 0
		current.Moderator = ""
		current.Reason = ""
		current.UpdatedAt = now(w.clock)
		if err := flags.Save(ctx, current); err != nil {
			return fmt.Errorf("failed to save flag: %w", err)
		}
		flag = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if comment != nil {
		w.comments.invalidateThread(ctx, comment.Target())
	}
	logging.For(ctx, w.logger).Info("Flag reopened",
		zap.Int64("comment_id", commentID),
		zap.String("moderator", moderator))
	return flag, nil
}

// CommentAuthor returns the identity of the author of a comment
func (w *FlagWorkflow) CommentAuthor(ctx context.Context, commentID int64) (string, error) {
	comment, err := w.comments.Get(ctx, commentID)
	if err != nil {
		return "", err
	}
	return comment.Author.Identity(), nil
}

// Get returns the flag of a comment. A comment never reported has an
// unflagged flag with no reports.
func (w *FlagWorkflow) Get(ctx context.Context, commentID int64) (*models.Flag, error) {
	if _, err := w.comments.Get(ctx, commentID); err != nil {
		return nil, err
	}
	flag, err := w.flags.GetByComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flag: %w", err)
	}
	if flag == nil {
		return &models.Flag{CommentID: commentID, State: models.FlagUnflagged}, nil
	}
	return flag, nil
}

// Instances lists the reports of a comment, oldest first: those of the
// current cycle, or of every cycle when allCycles is set.
func (w *FlagWorkflow) Instances(ctx context.Context, commentID int64, allCycles bool) ([]models.FlagInstance, error) {
	flag, err := w.flags.GetByComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flag: %w", err)
	}
	if flag == nil {
		return []models.FlagInstance{}, nil
	}

	var cycle *int
	if !allCycles {
		cycle = &flag.Cycle
	}
	instances, err := w.flags.ListInstances(ctx, flag.ID, cycle)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return instances, nil
}

// List returns flags in state, most recently updated first
func (w *FlagWorkflow) List(ctx context.Context, state models.FlagState, limit int) ([]models.Flag, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	flags, err := w.flags.ListByState(ctx, state, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, nil
}

// Reasons returns the accepted report reasons
func (w *FlagWorkflow) Reasons() []string {
	return w.cfg.Reasons
}

func (w *FlagWorkflow) validReason(reason string) bool {
	for _, r := range w.cfg.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}
