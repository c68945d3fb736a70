package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/johnquangdev/meeting-agent/errors"
	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	"github.com/johnquangdev/meeting-agent/internal/domain/repositories"
	"github.com/johnquangdev/meeting-agent/internal/usecase/notify"
	"github.com/johnquangdev/meeting-agent/pkg/ai"
)

const transcriptLimit = 3500
const extractionRetries = 2

const systemInstruction = `SYSTEM INSTRUCTION: You are a meeting-minutes assistant. Output ONLY valid JSON (no markdown, no explanations, no extra text). Return an object exactly matching this schema:
{
  "mom": "2-3 paragraph summary",
  "actions": [
    {
      "task": "specific action",
      "owner": "Name or UNASSIGNED",
      "deadline": "YYYY-MM-DD or null",
      "priority": "high/medium/low"
    }
  ]
}
Rules:
- If a speaker says "I'll ..." assign that action to that speaker (use full name if present).
- If a speaker says a weekday like "Friday", convert to the next calendar Friday date (relative to meeting date) in YYYY-MM-DD format.
- If there are no actions, return "actions": [].
- If you cannot output valid JSON, return exactly {"error":"invalid_response"}.`

const strictSuffix = "\nIMPORTANT: Output ONLY raw JSON. DO NOT include any text outside the JSON."

// ProcessRequest carries one transcript through extraction, persistence and
// notification.
type ProcessRequest struct {
	Title      string
	Date       string
	Transcript string
	Attendees  []Attendee
}

// ImportRequest persists pre-extracted action items without running the model.
type ImportRequest struct {
	MeetingID string
	Title     string
	Items     []*entities.ActionItem
	Notify    bool
}

// ProcessResult reports what a transcript run produced.
type ProcessResult struct {
	MeetingID  string                 `json:"meeting_id"`
	Minutes    string                 `json:"minutes"`
	Actions    []*entities.ActionItem `json:"actions"`
	CardsSent  int                    `json:"cards_sent"`
	ArchiveURL string                 `json:"archive_url,omitempty"`
}

// Archiver stores a summary document durably and returns its location.
type Archiver interface {
	ArchiveSummary(ctx context.Context, meetingID string, doc []byte) (string, error)
}

// Service runs the meeting import pipeline.
type Service interface {
	ProcessTranscript(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
	ImportActions(ctx context.Context, req ImportRequest) (*ProcessResult, error)
	GetSummary(ctx context.Context, meetingID string) (*entities.MeetingSummary, []*entities.ActionItem, error)
}

type meetingService struct {
	gemini    *ai.GeminiClient
	actions   repositories.ActionRepository
	summaries repositories.SummaryRepository
	notifier  notify.Service
	archiver  Archiver
	logger    *zap.Logger
}

// NewMeetingService creates the import pipeline. archiver may be nil when no
// object store is configured.
func NewMeetingService(
	gemini *ai.GeminiClient,
	actions repositories.ActionRepository,
	summaries repositories.SummaryRepository,
	notifier notify.Service,
	archiver Archiver,
	logger *zap.Logger,
) Service {
	return &meetingService{
		gemini:    gemini,
		actions:   actions,
		summaries: summaries,
		notifier:  notifier,
		archiver:  archiver,
		logger:    logger,
	}
}

func (s *meetingService) ProcessTranscript(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	if !s.gemini.Configured() {
		return nil, apperrors.ErrNotConfigured("extraction model is not configured")
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, apperrors.ErrInvalidArgument("transcript is empty")
	}
	meetingID := meetingIdentity(req.Title, req.Date)

	extraction, err := s.extract(ctx, req)
	if err != nil {
		return nil, err
	}

	saved, err := s.actions.UpsertBatch(ctx, extraction.Actions, meetingID)
	if err != nil {
		return nil, fmt.Errorf("persisting actions: %w", err)
	}

	archiveURL := s.saveSummary(ctx, meetingID, req, extraction, saved)

	if err := s.notifier.SendSummaryCard(ctx, extraction.Minutes, saved, req.Title, req.Date); err != nil {
		s.logger.Warn("summary card delivery failed",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
	}
	sent := s.notifier.SendBulkActionCards(ctx, saved, req.Title)

	return &ProcessResult{
		MeetingID:  meetingID,
		Minutes:    extraction.Minutes,
		Actions:    saved,
		CardsSent:  sent,
		ArchiveURL: archiveURL,
	}, nil
}

func (s *meetingService) ImportActions(ctx context.Context, req ImportRequest) (*ProcessResult, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.ErrInvalidArgument("no items to import")
	}
	meetingID := req.MeetingID
	if meetingID == "" {
		meetingID = meetingIdentity(req.Title, "")
	}

	saved, err := s.actions.UpsertBatch(ctx, req.Items, meetingID)
	if err != nil {
		return nil, fmt.Errorf("persisting actions: %w", err)
	}

	sent := 0
	if req.Notify {
		title := req.Title
		if title == "" {
			title = meetingID
		}
		sent = s.notifier.SendBulkActionCards(ctx, saved, title)
	}

	return &ProcessResult{MeetingID: meetingID, Actions: saved, CardsSent: sent}, nil
}

func (s *meetingService) GetSummary(ctx context.Context, meetingID string) (*entities.MeetingSummary, []*entities.ActionItem, error) {
	summary, err := s.summaries.GetByMeetingID(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.actions.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	return summary, items, nil
}

// extract calls the model, retrying with a stricter instruction when the
// output does not decode.
func (s *meetingService) extract(ctx context.Context, req ProcessRequest) (*Extraction, error) {
	var names []string
	for _, a := range req.Attendees {
		names = append(names, a.Name)
	}
	transcript := req.Transcript
	if len(transcript) > transcriptLimit {
		transcript = transcript[:transcriptLimit]
	}
	userPrompt := fmt.Sprintf("Meeting Date: %s\nAttendees: %s\n\nTranscript:\n%s",
		req.Date, strings.Join(names, ", "), transcript)

	system := systemInstruction
	for attempt := 0; attempt <= extractionRetries; attempt++ {
		generated, err := s.generate(ctx, system, userPrompt)
		if err != nil {
			return nil, apperrors.ErrProcessingFailed(err)
		}

		extraction, err := parseExtraction(generated, req.Attendees, req.Date)
		if err == nil {
			return extraction, nil
		}
		if !errors.Is(err, ErrUnparseable) {
			return nil, err
		}
		s.logger.Warn("model output unparseable, retrying",
			zap.Int("attempt", attempt+1),
			zap.String("meeting_title", req.Title),
		)
		system = systemInstruction + strictSuffix
	}
	return nil, apperrors.ErrProcessingFailed(ErrUnparseable)
}

// generate wraps the model call with exponential backoff for transport
// failures.
func (s *meetingService) generate(ctx context.Context, system, user string) (string, error) {
	var out string
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 45 * time.Second
	err := backoff.Retry(func() error {
		var err error
		out, err = s.gemini.GenerateContent(ctx, system, user)
		return err
	}, backoff.WithContext(policy, ctx))
	return out, err
}

// saveSummary records the minutes row and archives the full document when an
// object store is configured. Failures degrade to log lines; the pipeline
// continues.
func (s *meetingService) saveSummary(ctx context.Context, meetingID string, req ProcessRequest, extraction *Extraction, saved []*entities.ActionItem) string {
	doc := map[string]interface{}{
		"meeting_id": meetingID,
		"title":      req.Title,
		"date":       req.Date,
		"mom":        extraction.Minutes,
		"actions":    saved,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		payload = []byte("{}")
	}

	archiveURL := ""
	if s.archiver != nil {
		archiveURL, err = s.archiver.ArchiveSummary(ctx, meetingID, payload)
		if err != nil {
			s.logger.Warn("summary archive failed",
				zap.String("meeting_id", meetingID),
				zap.Error(err),
			)
			archiveURL = ""
		}
	}

	summary := entities.NewMeetingSummary(meetingID, req.Title, req.Date, extraction.Minutes)
	summary.RawPayload = datatypes.JSON(payload)
	summary.ArchiveURL = archiveURL
	if err := s.summaries.Save(ctx, summary); err != nil {
		s.logger.Warn("failed to save summary row",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
	}
	return archiveURL
}

// meetingIdentity derives a stable meeting id from title and date, matching
// how re-imported transcripts find their earlier rows.
func meetingIdentity(title, date string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "-")
	if slug == "" {
		slug = "meeting"
	}
	if date != "" {
		return slug + "-" + date
	}
	return slug
}
