package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	repo "github.com/johnquangdev/meeting-agent/internal/domain/repositories"
)

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a meeting summary repository backed by GORM
func NewSummaryRepository(db *gorm.DB) repo.SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) Save(ctx context.Context, s *entities.MeetingSummary) error {
	// Upsert by meeting_id; re-processing a meeting refreshes the minutes
	// without changing the row identity.
	raw := string(s.RawPayload)
	if raw == "" {
		raw = "{}"
	}

	q := `INSERT INTO meeting_summaries (id, meeting_id, title, meeting_date, minutes, raw_payload, archive_url, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (meeting_id) DO UPDATE SET
            title = EXCLUDED.title,
            meeting_date = EXCLUDED.meeting_date,
            minutes = EXCLUDED.minutes,
            raw_payload = EXCLUDED.raw_payload,
            archive_url = EXCLUDED.archive_url`

	return r.db.WithContext(ctx).Exec(q,
		s.ID, s.MeetingID, s.Title, s.MeetingDate, s.Minutes,
		raw, s.ArchiveURL, time.Now().UTC(),
	).Error
}

func (r *summaryRepository) GetByMeetingID(ctx context.Context, meetingID string) (*entities.MeetingSummary, error) {
	var s entities.MeetingSummary
	err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrSummaryNotFound
		}
		return nil, err
	}
	return &s, nil
}
