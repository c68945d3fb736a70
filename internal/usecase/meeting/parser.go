package meeting

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
)

// ErrUnparseable reports that the model output could not be decoded into the
// expected schema. The caller retries with a stricter instruction.
var ErrUnparseable = errors.New("extraction output is not valid JSON")

// Attendee is one meeting participant, used to enrich extracted actions with
// a deliverable address.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Extraction is the normalized result of one transcript extraction.
type Extraction struct {
	Minutes string
	Actions []*entities.ActionItem
}

const unassignedOwner = "UNASSIGNED"
const unassignedEmail = "unassigned@company.com"

type rawExtraction struct {
	Error   string      `json:"error"`
	Minutes string      `json:"mom"`
	Actions []rawAction `json:"actions"`
}

type rawAction struct {
	Task     string  `json:"task"`
	Owner    string  `json:"owner"`
	Deadline *string `json:"deadline"`
	Priority string  `json:"priority"`
}

// parseExtraction decodes model output and normalizes each action: owner
// email resolved from the attendee list, weekday deadlines converted to the
// next calendar date after the meeting, priority clamped to the known set.
func parseExtraction(generated string, attendees []Attendee, meetingDate string) (*Extraction, error) {
	generated = stripCodeFence(strings.TrimSpace(generated))

	var raw rawExtraction
	if err := json.Unmarshal([]byte(generated), &raw); err != nil {
		return nil, ErrUnparseable
	}
	if raw.Error != "" {
		return nil, ErrUnparseable
	}

	out := &Extraction{Minutes: raw.Minutes}
	for _, act := range raw.Actions {
		task := strings.TrimSpace(act.Task)
		if task == "" {
			continue
		}

		owner := strings.TrimSpace(act.Owner)
		if owner == "" {
			owner = unassignedOwner
		}

		deadline := ""
		if act.Deadline != nil {
			deadline = normalizeDeadline(*act.Deadline, meetingDate)
		}

		out.Actions = append(out.Actions, &entities.ActionItem{
			Task:       task,
			Owner:      owner,
			OwnerEmail: resolveOwnerEmail(owner, attendees),
			DueDate:    deadline,
			Priority:   entities.NormalizePriority(act.Priority),
		})
	}
	return out, nil
}

// resolveOwnerEmail matches an owner string against attendee names. The model
// may answer "Alice Nguyen (engineering)", so containment, not equality.
func resolveOwnerEmail(owner string, attendees []Attendee) string {
	for _, a := range attendees {
		if a.Name != "" && strings.Contains(owner, a.Name) {
			return a.Email
		}
	}
	return unassignedEmail
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// normalizeDeadline passes through anything that is not a bare weekday name.
// A weekday resolves to its next occurrence strictly after the meeting date;
// "Friday" said on a Friday means the following week.
func normalizeDeadline(deadline, meetingDate string) string {
	target, ok := weekdays[strings.ToLower(strings.TrimSpace(deadline))]
	if !ok {
		return strings.TrimSpace(deadline)
	}

	base, err := time.Parse("2006-01-02", meetingDate)
	if err != nil {
		return ""
	}
	delta := (int(target) - int(base.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return base.AddDate(0, 0, delta).Format("2006-01-02")
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "\n```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
