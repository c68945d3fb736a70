package meeting

import "github.com/johnquangdev/meeting-agent/internal/domain/entities"

// ActionItemResponse is the API view of a stored action item
type ActionItemResponse struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id"`
	MeetingID     string `json:"meeting_id"`
	Task          string `json:"task"`
	Owner         string `json:"owner"`
	OwnerEmail    string `json:"owner_email,omitempty"`
	DueDate       string `json:"due_date,omitempty"`
	Priority      string `json:"priority"`
	Status        string `json:"status"`
}

// ProcessResponse reports the outcome of a transcript or import run
type ProcessResponse struct {
	MeetingID  string               `json:"meeting_id"`
	Minutes    string               `json:"minutes,omitempty"`
	Actions    []ActionItemResponse `json:"actions"`
	CardsSent  int                  `json:"cards_sent"`
	ArchiveURL string               `json:"archive_url,omitempty"`
}

// SummaryResponse returns stored minutes with their action items
type SummaryResponse struct {
	MeetingID  string               `json:"meeting_id"`
	Title      string               `json:"title,omitempty"`
	Date       string               `json:"date,omitempty"`
	Minutes    string               `json:"minutes"`
	ArchiveURL string               `json:"archive_url,omitempty"`
	Actions    []ActionItemResponse `json:"actions"`
}

// ToActionItemResponse maps a stored entity to its API shape
func ToActionItemResponse(item *entities.ActionItem) ActionItemResponse {
	return ActionItemResponse{
		ID:            item.ID,
		CorrelationID: item.CorrelationID,
		MeetingID:     item.MeetingID,
		Task:          item.Task,
		Owner:         item.Owner,
		OwnerEmail:    item.OwnerEmail,
		DueDate:       item.DueDate,
		Priority:      item.Priority,
		Status:        string(item.Status),
	}
}

// ToActionItemResponses maps a slice of stored entities
func ToActionItemResponses(items []*entities.ActionItem) []ActionItemResponse {
	out := make([]ActionItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToActionItemResponse(item))
	}
	return out
}
