package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingSummary holds the minutes generated for a meeting. One row per
// meeting; re-processing a meeting overwrites the minutes but not the id.
type MeetingSummary struct {
	ID          string `json:"id" gorm:"type:varchar(64);primary_key"`
	MeetingID   string `json:"meeting_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	Title       string `json:"title" gorm:"type:varchar(255)"`
	MeetingDate string `json:"meeting_date" gorm:"type:varchar(32)"`
	Minutes     string `json:"minutes" gorm:"type:text"`

	// RawPayload keeps the extractor's original JSON for debugging/replay.
	RawPayload datatypes.JSON `json:"raw_payload,omitempty" gorm:"type:jsonb"`

	// ArchiveURL points at the archived summary document in object storage.
	ArchiveURL string `json:"archive_url,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the GORM table name
func (MeetingSummary) TableName() string {
	return "meeting_summaries"
}

// NewMeetingSummary creates a summary row for a meeting.
func NewMeetingSummary(meetingID, title, meetingDate, minutes string) *MeetingSummary {
	return &MeetingSummary{
		ID:          uuid.New().String(),
		MeetingID:   meetingID,
		Title:       title,
		MeetingDate: meetingDate,
		Minutes:     minutes,
		CreatedAt:   time.Now().UTC(),
	}
}
