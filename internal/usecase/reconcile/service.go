package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	"github.com/johnquangdev/meeting-agent/internal/domain/repositories"
	"github.com/johnquangdev/meeting-agent/pkg/slack"
)

// Event is one normalized button interaction. ActionType is the action id
// with the correlation suffix stripped; Target is the button's value, the
// correlation id of the item to mutate.
type Event struct {
	ActionType   string
	Target       string
	InvokingUser string
}

// DedupStore suppresses repeated confirmation messages for replayed events.
// A lookup failure reads as "unseen"; replay protection is best effort and
// correctness never depends on it.
type DedupStore interface {
	Seen(ctx context.Context, key string) bool
}

// Service applies inbound button interactions to the store. Every mutation
// is one guarded statement, so replays and stale buttons collapse into
// harmless no-ops.
type Service interface {
	HandleEvent(ctx context.Context, event Event) error
}

type reconcileService struct {
	repo   repositories.ActionRepository
	client *slack.Client
	dedup  DedupStore
	logger *zap.Logger
}

// NewReconcileService creates a callback reconciler. dedup may be nil.
func NewReconcileService(repo repositories.ActionRepository, client *slack.Client, dedup DedupStore, logger *zap.Logger) Service {
	return &reconcileService{
		repo:   repo,
		client: client,
		dedup:  dedup,
		logger: logger,
	}
}

// statusFor maps a button action to its target status. "pending" is not
// reachable from any button.
func statusFor(actionType string) (entities.ActionStatus, bool) {
	switch {
	case strings.HasPrefix(actionType, "mark_done"):
		return entities.ActionStatusCompleted, true
	case strings.HasPrefix(actionType, "snooze"):
		return entities.ActionStatusSnoozed, true
	case strings.HasPrefix(actionType, "delete"):
		return entities.ActionStatusDeleted, true
	}
	return "", false
}

func (s *reconcileService) HandleEvent(ctx context.Context, event Event) error {
	status, ok := statusFor(event.ActionType)
	if !ok {
		s.logger.Warn("ignoring unrecognized action",
			zap.String("action_type", event.ActionType),
			zap.String("target", event.Target),
		)
		return nil
	}
	if event.Target == "" {
		s.logger.Warn("interaction carried no target", zap.String("action_type", event.ActionType))
		return nil
	}

	// A replayed event would apply the same transition again, which the
	// guarded update absorbs; the dedup check only keeps the user from
	// receiving the same confirmation twice.
	duplicate := s.dedup != nil && s.dedup.Seen(ctx, event.ActionType+":"+event.Target)

	applied, err := s.repo.ApplyStatus(ctx, event.Target, status, time.Now().UTC())
	if err != nil {
		if errors.Is(err, entities.ErrInvalidStatus) {
			s.logger.Warn("transition rejected",
				zap.String("target", event.Target),
				zap.String("status", string(status)),
			)
			return nil
		}
		return err
	}

	s.logger.Info("callback reconciled",
		zap.String("target", event.Target),
		zap.String("status", string(status)),
		zap.Bool("applied", applied),
		zap.Bool("duplicate", duplicate),
	)

	if duplicate {
		return nil
	}
	s.confirm(ctx, event, status, applied)
	return nil
}

// confirm notifies the invoking user about the outcome. Delivery is best
// effort; the store already reflects the transition.
func (s *reconcileService) confirm(ctx context.Context, event Event, status entities.ActionStatus, applied bool) {
	if event.InvokingUser == "" || s.client == nil {
		return
	}

	text := confirmationText(status, applied)

	dm, err := s.client.OpenDirectChannel(ctx, event.InvokingUser)
	if err != nil {
		s.logger.Warn("failed to open confirmation DM",
			zap.String("user", event.InvokingUser),
			zap.Error(err),
		)
		return
	}
	if _, err := s.client.PostMessage(ctx, dm, text, nil); err != nil {
		s.logger.Warn("failed to deliver confirmation",
			zap.String("user", event.InvokingUser),
			zap.Error(err),
		)
	}
}

func confirmationText(status entities.ActionStatus, applied bool) string {
	if !applied {
		return "That task no longer exists or was already deleted."
	}
	switch status {
	case entities.ActionStatusCompleted:
		return "Task marked done ✅"
	case entities.ActionStatusSnoozed:
		return "Task snoozed for 1 day ⏰"
	case entities.ActionStatusDeleted:
		return "Task deleted 🗑️"
	}
	return "Task updated."
}
