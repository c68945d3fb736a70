package repositories

import (
	"context"
	"time"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
)

// ActionRepository is the durable store for action items. It owns identity
// assignment, idempotent upsert-merge and guarded status transitions.
//
// Every mutation executes as a single atomic conditional statement; the two
// invocation paths (import/dispatch and inbound callbacks) share no memory
// and coordinate only through this store.
type ActionRepository interface {
	// UpsertBatch persists items for a meeting. An item arriving with an id
	// keeps it, otherwise a new identifier is generated and used as both id
	// and correlation id. Existing rows keep their status and status
	// timestamps; only descriptive fields are refreshed. Returns the items
	// with resolved id/correlation id.
	UpsertBatch(ctx context.Context, items []*entities.ActionItem, meetingID string) ([]*entities.ActionItem, error)

	// Find looks up a row by correlation id or primary id.
	// Returns entities.ErrActionNotFound when no row matches.
	Find(ctx context.Context, target string) (*entities.ActionItem, error)

	// RecordDelivery sets the delivered-message pointer on the matched row.
	// A miss is a no-op, not an error.
	RecordDelivery(ctx context.Context, target, deliveryRef string) error

	// SetCorrelationID persists a regenerated correlation id for a row.
	// Must happen before any message referencing the id is sent.
	SetCorrelationID(ctx context.Context, id, correlationID string) error

	// ApplyStatus performs one guarded transition: the row matched by id or
	// correlation id moves to status unless it is already deleted. Returns
	// whether an eligible row was updated. Never returns an error for a
	// miss or an ineligible row.
	ApplyStatus(ctx context.Context, target string, status entities.ActionStatus, now time.Time) (bool, error)

	// ListByMeeting returns all items imported for a meeting.
	ListByMeeting(ctx context.Context, meetingID string) ([]*entities.ActionItem, error)
}

// SummaryRepository stores generated meeting minutes, one row per meeting.
type SummaryRepository interface {
	Save(ctx context.Context, summary *entities.MeetingSummary) error
	GetByMeetingID(ctx context.Context, meetingID string) (*entities.MeetingSummary, error)
}
