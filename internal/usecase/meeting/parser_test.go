package meeting

import (
	"errors"
	"testing"
)

var testAttendees = []Attendee{
	{Name: "Alice", Email: "alice@example.com"},
	{Name: "Bob", Email: "bob@example.com"},
}

func TestParseExtraction_Normalizes(t *testing.T) {
	raw := `{
		"mom": "We planned the release.",
		"actions": [
			{"task": "Update the spec", "owner": "Alice", "deadline": "Friday", "priority": "HIGH"},
			{"task": "Review the spec", "owner": "Bob (review)", "deadline": "2024-05-10", "priority": "urgent"},
			{"task": "Book the room", "owner": "", "deadline": null, "priority": "low"}
		]
	}`

	// 2024-05-01 is a Wednesday; next Friday is 2024-05-03.
	got, err := parseExtraction(raw, testAttendees, "2024-05-01")
	if err != nil {
		t.Fatalf("parseExtraction: %v", err)
	}
	if got.Minutes != "We planned the release." {
		t.Errorf("unexpected minutes %q", got.Minutes)
	}
	if len(got.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(got.Actions))
	}

	a := got.Actions[0]
	if a.OwnerEmail != "alice@example.com" {
		t.Errorf("owner email = %q", a.OwnerEmail)
	}
	if a.DueDate != "2024-05-03" {
		t.Errorf("weekday deadline = %q, want 2024-05-03", a.DueDate)
	}
	if a.Priority != "high" {
		t.Errorf("priority = %q, want high", a.Priority)
	}

	b := got.Actions[1]
	if b.OwnerEmail != "bob@example.com" {
		t.Errorf("containment match failed, owner email = %q", b.OwnerEmail)
	}
	if b.DueDate != "2024-05-10" {
		t.Errorf("explicit deadline must pass through, got %q", b.DueDate)
	}
	if b.Priority != "medium" {
		t.Errorf("unknown priority must default to medium, got %q", b.Priority)
	}

	c := got.Actions[2]
	if c.Owner != "UNASSIGNED" || c.OwnerEmail != "unassigned@company.com" {
		t.Errorf("empty owner: got owner=%q email=%q", c.Owner, c.OwnerEmail)
	}
	if c.DueDate != "" {
		t.Errorf("null deadline should stay empty, got %q", c.DueDate)
	}
}

func TestParseExtraction_SameWeekdayRollsAWeek(t *testing.T) {
	raw := `{"mom":"","actions":[{"task":"t","owner":"Alice","deadline":"Wednesday","priority":"low"}]}`

	// Meeting on a Wednesday: "Wednesday" means the following week.
	got, err := parseExtraction(raw, testAttendees, "2024-05-01")
	if err != nil {
		t.Fatalf("parseExtraction: %v", err)
	}
	if got.Actions[0].DueDate != "2024-05-08" {
		t.Errorf("deadline = %q, want 2024-05-08", got.Actions[0].DueDate)
	}
}

func TestParseExtraction_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"mom\":\"notes\",\"actions\":[]}\n```"
	got, err := parseExtraction(raw, nil, "2024-05-01")
	if err != nil {
		t.Fatalf("parseExtraction: %v", err)
	}
	if got.Minutes != "notes" || len(got.Actions) != 0 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseExtraction_SkipsEmptyTasks(t *testing.T) {
	raw := `{"mom":"m","actions":[{"task":"  "},{"task":"real one"}]}`
	got, err := parseExtraction(raw, nil, "2024-05-01")
	if err != nil {
		t.Fatalf("parseExtraction: %v", err)
	}
	if len(got.Actions) != 1 || got.Actions[0].Task != "real one" {
		t.Errorf("unexpected actions: %+v", got.Actions)
	}
}

func TestParseExtraction_Unparseable(t *testing.T) {
	for _, raw := range []string{
		"Sure! Here is the summary you asked for.",
		`{"error":"invalid_response"}`,
	} {
		if _, err := parseExtraction(raw, nil, "2024-05-01"); !errors.Is(err, ErrUnparseable) {
			t.Errorf("input %q: expected ErrUnparseable, got %v", raw, err)
		}
	}
}

func TestParseExtraction_BadMeetingDateDropsWeekday(t *testing.T) {
	raw := `{"mom":"","actions":[{"task":"t","owner":"Alice","deadline":"Friday"}]}`
	got, err := parseExtraction(raw, testAttendees, "not-a-date")
	if err != nil {
		t.Fatalf("parseExtraction: %v", err)
	}
	if got.Actions[0].DueDate != "" {
		t.Errorf("unresolvable weekday must clear the deadline, got %q", got.Actions[0].DueDate)
	}
}
