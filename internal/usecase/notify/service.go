package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	"github.com/johnquangdev/meeting-agent/internal/domain/repositories"
	"github.com/johnquangdev/meeting-agent/pkg/config"
	"github.com/johnquangdev/meeting-agent/pkg/slack"
)

const summaryFallbackLimit = 240

// Service dispatches interactive notification cards for action items.
type Service interface {
	// SendActionCard delivers a per-item card to the owner's DM. Returns
	// false when the item has no deliverable owner or delivery failed;
	// neither case is an error for the caller.
	SendActionCard(ctx context.Context, item *entities.ActionItem, meetingTitle string) bool
	// SendBulkActionCards sends one card per item and reports how many
	// were delivered.
	SendBulkActionCards(ctx context.Context, items []*entities.ActionItem, meetingTitle string) int
	// SendSummaryCard posts a meeting summary with quick-complete buttons
	// to the configured broadcast channel.
	SendSummaryCard(ctx context.Context, minutes string, items []*entities.ActionItem, meetingTitle, meetingDate string) error
}

type notifyService struct {
	repo     repositories.ActionRepository
	resolver *Resolver
	client   *slack.Client
	cfg      *config.Config
	logger   *zap.Logger
}

// NewNotifyService creates a card dispatcher
func NewNotifyService(repo repositories.ActionRepository, resolver *Resolver, client *slack.Client, cfg *config.Config, logger *zap.Logger) Service {
	return &notifyService{
		repo:     repo,
		resolver: resolver,
		client:   client,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *notifyService) SendActionCard(ctx context.Context, item *entities.ActionItem, meetingTitle string) bool {
	email := item.OwnerEmail
	if email == "" {
		email = item.Owner
	}
	if email == "" || !strings.Contains(email, "@") {
		s.logger.Info("action has no deliverable owner, skipping card",
			zap.String("action_id", item.ID),
			zap.String("owner", item.Owner),
		)
		return false
	}

	dm, err := s.resolver.ResolveUserDM(ctx, email)
	if err != nil {
		s.logger.Info("owner not reachable, skipping card",
			zap.String("action_id", item.ID),
			zap.String("email", email),
		)
		return false
	}

	// A button must never carry an identifier the store cannot look up,
	// so the correlation id is persisted before the payload is built.
	if err := s.ensureCorrelation(ctx, item, meetingTitle); err != nil {
		s.logger.Error("failed to persist correlation id",
			zap.String("action_id", item.ID),
			zap.Error(err),
		)
		return false
	}

	blocks := buildActionBlocks(item, meetingTitle)
	ts, err := s.postWithRetry(ctx, dm, "Action: "+item.Task, blocks)
	if err != nil {
		s.logger.Warn("action card delivery failed",
			zap.String("action_id", item.ID),
			zap.String("channel", dm),
			zap.Error(err),
		)
		return false
	}

	if err := s.repo.RecordDelivery(ctx, item.CorrelationID, ts); err != nil {
		s.logger.Warn("failed to record delivery ref",
			zap.String("action_id", item.ID),
			zap.Error(err),
		)
	}
	return true
}

func (s *notifyService) SendBulkActionCards(ctx context.Context, items []*entities.ActionItem, meetingTitle string) int {
	sent := 0
	for _, item := range items {
		if s.SendActionCard(ctx, item, meetingTitle) {
			sent++
		}
	}
	s.logger.Info("bulk action cards dispatched",
		zap.Int("sent", sent),
		zap.Int("total", len(items)),
	)
	return sent
}

func (s *notifyService) SendSummaryCard(ctx context.Context, minutes string, items []*entities.ActionItem, meetingTitle, meetingDate string) error {
	channelID, err := s.resolver.ResolveChannel(ctx, s.cfg.Slack.DefaultChannel)
	if err != nil {
		return fmt.Errorf("resolving summary channel: %w", err)
	}

	// Quick-complete buttons reference stored identities, so any items
	// that have not been persisted yet go through the store first.
	if needsPersist(items) {
		saved, err := s.repo.UpsertBatch(ctx, items, meetingTitle)
		if err != nil {
			return fmt.Errorf("persisting summary actions: %w", err)
		}
		items = saved
	}

	blocks := s.buildSummaryBlocks(minutes, items, meetingTitle, meetingDate)

	fallback := fmt.Sprintf("MOM: %s (%s)", meetingTitle, meetingDate)
	if minutes != "" {
		text := minutes
		if len(text) > summaryFallbackLimit {
			text = text[:summaryFallbackLimit]
		}
		fallback = fallback + " " + text
	}

	ts, err := s.postWithRetry(ctx, channelID, fallback, blocks)
	if err != nil {
		return fmt.Errorf("posting summary card: %w", err)
	}

	// Quick actions live on the summary message itself; the delivery ref
	// lands on the first referenced item, best effort.
	if n := s.maxSummaryButtons(); n > 0 && len(items) > 0 {
		if err := s.repo.RecordDelivery(ctx, items[0].CorrelationID, ts); err != nil {
			s.logger.Warn("failed to record summary delivery ref", zap.Error(err))
		}
	}

	s.logger.Info("summary card posted",
		zap.String("channel", channelID),
		zap.String("meeting", meetingTitle),
		zap.Int("actions", len(items)),
	)
	return nil
}

func (s *notifyService) ensureCorrelation(ctx context.Context, item *entities.ActionItem, meetingTitle string) error {
	if item.CorrelationID != "" {
		return nil
	}
	if item.ID == "" {
		meetingID := item.MeetingID
		if meetingID == "" {
			meetingID = meetingTitle
		}
		saved, err := s.repo.UpsertBatch(ctx, []*entities.ActionItem{item}, meetingID)
		if err != nil {
			return err
		}
		*item = *saved[0]
		return nil
	}
	corr := uuid.New().String()
	if err := s.repo.SetCorrelationID(ctx, item.ID, corr); err != nil {
		return err
	}
	item.CorrelationID = corr
	return nil
}

func (s *notifyService) buildSummaryBlocks(minutes string, items []*entities.ActionItem, meetingTitle, meetingDate string) []slack.Block {
	blocks := []slack.Block{
		slack.Section(fmt.Sprintf("*%s* — %s", meetingTitle, meetingDate)),
	}
	if minutes != "" {
		blocks = append(blocks, slack.Section(minutes))
	}
	if len(items) == 0 {
		return blocks
	}

	var lines []string
	for _, item := range items {
		line := "• " + item.Task
		if item.Owner != "" {
			line += " — " + item.Owner
		}
		if item.DueDate != "" {
			line += " (due " + item.DueDate + ")"
		}
		lines = append(lines, line)
	}
	blocks = append(blocks, slack.Section("*Actions*\n"+strings.Join(lines, "\n")))

	var buttons []slack.Button
	for i, item := range items {
		if i >= s.maxSummaryButtons() {
			break
		}
		label := fmt.Sprintf("Mark %s Done", shortID(item.CorrelationID))
		buttons = append(buttons, slack.NewButton(label, "mark_done_"+item.CorrelationID, item.CorrelationID, "primary"))
	}
	if len(buttons) > 0 {
		blocks = append(blocks, slack.Actions(buttons...))
	}
	return blocks
}

func buildActionBlocks(item *entities.ActionItem, meetingTitle string) []slack.Block {
	corr := item.CorrelationID

	var meta []string
	if item.Owner != "" {
		meta = append(meta, "Owner: "+item.Owner)
	}
	if item.DueDate != "" {
		meta = append(meta, "Due: "+item.DueDate)
	}
	if item.Priority != "" {
		meta = append(meta, "Priority: "+item.Priority)
	}

	blocks := []slack.Block{
		slack.Section(fmt.Sprintf("*Action from %s*\n%s", meetingTitle, item.Task)),
	}
	if len(meta) > 0 {
		blocks = append(blocks, slack.Context(strings.Join(meta, "  |  ")))
	}
	blocks = append(blocks, slack.Actions(
		slack.NewButton("✅ Mark Complete", "mark_done_"+corr, corr, "primary"),
		slack.NewButton("⏰ Snooze 1d", "snooze_1d_"+corr, corr, ""),
		slack.NewButton("🗑️ Delete", "delete_"+corr, corr, "danger"),
	))
	return blocks
}

func (s *notifyService) postWithRetry(ctx context.Context, channel, text string, blocks []slack.Block) (string, error) {
	var ts string
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		var err error
		ts, err = s.client.PostMessage(ctx, channel, text, blocks)
		return err
	}, backoff.WithContext(policy, ctx))
	return ts, err
}

func (s *notifyService) maxSummaryButtons() int {
	if s.cfg == nil || s.cfg.Notify.MaxSummaryButtons <= 0 {
		return 3
	}
	return s.cfg.Notify.MaxSummaryButtons
}

func needsPersist(items []*entities.ActionItem) bool {
	for _, item := range items {
		if item.ID == "" || item.CorrelationID == "" {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
