package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionStatus represents the lifecycle state of an action item
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"   // Imported, not yet acted on
	ActionStatusCompleted ActionStatus = "completed" // Owner marked the task done
	ActionStatusSnoozed   ActionStatus = "snoozed"   // Deferred until snoozed_until
	ActionStatusDeleted   ActionStatus = "deleted"   // Terminal; row is kept, never resurrected
)

// IsTerminal reports whether no further transition is permitted from s.
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusDeleted
}

// IsValid reports whether s is a known status value.
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusPending, ActionStatusCompleted, ActionStatusSnoozed, ActionStatusDeleted:
		return true
	}
	return false
}

// Action item priorities
const (
	ActionPriorityHigh   = "high"
	ActionPriorityMedium = "medium"
	ActionPriorityLow    = "low"
)

// ActionItem represents a discrete task extracted from a meeting.
//
// ID is the primary identity and is immutable once assigned.
// CorrelationID is the identity embedded in message buttons; it equals ID
// unless explicitly regenerated, and must never change once a message
// referencing it has been sent. Deletion is a status value, not row removal.
type ActionItem struct {
	ID            string `json:"id" gorm:"type:varchar(64);primary_key"`
	CorrelationID string `json:"correlation_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	MeetingID     string `json:"meeting_id" gorm:"type:varchar(255);not null;index"`

	Task       string `json:"task" gorm:"type:text"`
	Owner      string `json:"owner" gorm:"type:varchar(255)"`
	OwnerEmail string `json:"owner_email" gorm:"type:varchar(255)"`
	DueDate    string `json:"due_date" gorm:"type:varchar(32)"`
	Priority   string `json:"priority" gorm:"type:varchar(16)"`

	Status ActionStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`

	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// DeliveryRef is the message ts of the most recent card posted for this
	// item, set by the dispatcher after a successful send.
	DeliveryRef string `json:"delivery_ref,omitempty" gorm:"type:varchar(64)"`
}

// TableName overrides the GORM table name
func (ActionItem) TableName() string {
	return "action_items"
}

// NewActionItem creates a pending action item with a fresh identity.
// The correlation id starts equal to the primary id.
func NewActionItem(meetingID, task string) *ActionItem {
	id := uuid.New().String()
	return &ActionItem{
		ID:            id,
		CorrelationID: id,
		MeetingID:     meetingID,
		Task:          task,
		Priority:      ActionPriorityMedium,
		Status:        ActionStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// NormalizePriority coerces free-form priority text to high/medium/low,
// defaulting to medium.
func NormalizePriority(p string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(p)); normalized {
	case ActionPriorityHigh, ActionPriorityMedium, ActionPriorityLow:
		return normalized
	default:
		return ActionPriorityMedium
	}
}
