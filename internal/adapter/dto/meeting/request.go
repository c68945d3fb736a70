package meeting

// AttendeeDTO is one meeting participant
type AttendeeDTO struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// ProcessRequest submits a raw transcript for extraction and dispatch
type ProcessRequest struct {
	Title      string        `json:"title" validate:"required,max=255"`
	Date       string        `json:"date" validate:"required,datetime=2006-01-02"`
	Transcript string        `json:"transcript" validate:"required"`
	Attendees  []AttendeeDTO `json:"attendees" validate:"omitempty,dive"`
}

// ImportItem is one pre-extracted action item. An id makes the import an
// idempotent refresh of the existing row.
type ImportItem struct {
	ID         string `json:"id" validate:"omitempty,max=64"`
	Task       string `json:"task" validate:"required"`
	Owner      string `json:"owner" validate:"omitempty,max=255"`
	OwnerEmail string `json:"owner_email" validate:"omitempty,email"`
	Deadline   string `json:"deadline" validate:"omitempty,max=32"`
	Priority   string `json:"priority" validate:"omitempty,oneof=high medium low"`
}

// ImportRequest persists action items that were extracted elsewhere
type ImportRequest struct {
	MeetingID string       `json:"meeting_id" validate:"omitempty,max=255"`
	Title     string       `json:"title" validate:"omitempty,max=255"`
	Notify    bool         `json:"notify"`
	Items     []ImportItem `json:"items" validate:"required,min=1,dive"`
}
