package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/meeting-agent/internal/adapter/repository"
	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	"github.com/johnquangdev/meeting-agent/internal/usecase/notify"
	"github.com/johnquangdev/meeting-agent/pkg/ai"
	"github.com/johnquangdev/meeting-agent/pkg/config"
	"github.com/johnquangdev/meeting-agent/pkg/slack"
)

// fakeGemini answers generateContent with queued outputs, one per call.
type fakeGemini struct {
	mu      sync.Mutex
	outputs []string
	calls   int
}

func (f *fakeGemini) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		out := f.outputs[0]
		if len(f.outputs) > 1 {
			f.outputs = f.outputs[1:]
		}
		f.calls++
		f.mu.Unlock()

		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": out}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
}

type fakeArchiver struct {
	docs map[string][]byte
}

func (f *fakeArchiver) ArchiveSummary(_ context.Context, meetingID string, doc []byte) (string, error) {
	if f.docs == nil {
		f.docs = make(map[string][]byte)
	}
	f.docs[meetingID] = doc
	return "minio://summaries/" + meetingID + ".json", nil
}

func newTestPipeline(t *testing.T, gemini *fakeGemini) (Service, *gorm.DB, *fakeArchiver) {
	t.Helper()

	geminiSrv := httptest.NewServer(gemini.handler())
	t.Cleanup(geminiSrv.Close)

	slackMux := http.NewServeMux()
	slackMux.HandleFunc("/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"channels":[{"id":"C1","name":"all-meeting-agent"}]}`)
	})
	slackMux.HandleFunc("/users.lookupByEmail", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "alice@example.com" {
			fmt.Fprint(w, `{"ok":true,"user":{"id":"U1"}}`)
			return
		}
		fmt.Fprint(w, `{"ok":false,"error":"users_not_found"}`)
	})
	slackMux.HandleFunc("/conversations.open", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"channel":{"id":"D1"}}`)
	})
	slackMux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"ts":"9.9"}`)
	})
	slackSrv := httptest.NewServer(slackMux)
	t.Cleanup(slackSrv.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&entities.ActionItem{}, &entities.MeetingSummary{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Slack:  config.SlackConfig{BotToken: "xoxb-test", DefaultChannel: "all-meeting-agent", BaseURL: slackSrv.URL},
		Gemini: config.GeminiConfig{APIKey: "test-key", Model: "gemini-2.5-flash", BaseURL: geminiSrv.URL},
		Notify: config.NotifyConfig{MaxSummaryButtons: 3},
	}

	actionRepo := repository.NewActionRepository(db, 0)
	summaryRepo := repository.NewSummaryRepository(db)
	slackClient := slack.NewClient(&cfg.Slack)
	resolver := notify.NewResolver(slackClient, zap.NewNop())
	notifier := notify.NewNotifyService(actionRepo, resolver, slackClient, cfg, zap.NewNop())
	archiver := &fakeArchiver{}

	svc := NewMeetingService(ai.NewGeminiClient(&cfg.Gemini), actionRepo, summaryRepo, notifier, archiver, zap.NewNop())
	return svc, db, archiver
}

func TestProcessTranscript_EndToEnd(t *testing.T) {
	gemini := &fakeGemini{outputs: []string{
		`{"mom":"Release planned.","actions":[{"task":"Update spec","owner":"Alice","deadline":"2024-05-03","priority":"high"}]}`,
	}}
	svc, db, archiver := newTestPipeline(t, gemini)

	res, err := svc.ProcessTranscript(context.Background(), ProcessRequest{
		Title:      "Sprint Planning",
		Date:       "2024-05-01",
		Transcript: "Alice: I'll update the spec by Friday.",
		Attendees:  []Attendee{{Name: "Alice", Email: "alice@example.com"}},
	})
	if err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}

	if res.MeetingID != "sprint-planning-2024-05-01" {
		t.Errorf("meeting id = %q", res.MeetingID)
	}
	if res.Minutes != "Release planned." {
		t.Errorf("minutes = %q", res.Minutes)
	}
	if len(res.Actions) != 1 || res.Actions[0].ID == "" {
		t.Fatalf("expected 1 persisted action, got %+v", res.Actions)
	}
	if res.CardsSent != 1 {
		t.Errorf("expected 1 card sent, got %d", res.CardsSent)
	}
	if !strings.HasPrefix(res.ArchiveURL, "minio://") {
		t.Errorf("archive url = %q", res.ArchiveURL)
	}
	if _, ok := archiver.docs[res.MeetingID]; !ok {
		t.Error("summary document was not archived")
	}

	var summary entities.MeetingSummary
	if err := db.Where("meeting_id = ?", res.MeetingID).First(&summary).Error; err != nil {
		t.Fatalf("summary row: %v", err)
	}
	if summary.Minutes != "Release planned." {
		t.Errorf("stored minutes = %q", summary.Minutes)
	}
}

func TestProcessTranscript_RetriesUnparseableOutput(t *testing.T) {
	gemini := &fakeGemini{outputs: []string{
		"Sure, here is the summary!",
		`{"mom":"ok","actions":[]}`,
	}}
	svc, _, _ := newTestPipeline(t, gemini)

	res, err := svc.ProcessTranscript(context.Background(), ProcessRequest{
		Title:      "Standup",
		Date:       "2024-05-01",
		Transcript: "nothing actionable",
	})
	if err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}
	if res.Minutes != "ok" {
		t.Errorf("minutes = %q", res.Minutes)
	}
	if gemini.calls < 2 {
		t.Errorf("expected a retry, got %d calls", gemini.calls)
	}
}

func TestProcessTranscript_GivesUpAfterRetries(t *testing.T) {
	gemini := &fakeGemini{outputs: []string{"not json"}}
	svc, _, _ := newTestPipeline(t, gemini)

	_, err := svc.ProcessTranscript(context.Background(), ProcessRequest{
		Title:      "Standup",
		Date:       "2024-05-01",
		Transcript: "words",
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
}

func TestProcessTranscript_EmptyTranscript(t *testing.T) {
	svc, _, _ := newTestPipeline(t, &fakeGemini{outputs: []string{"{}"}})

	if _, err := svc.ProcessTranscript(context.Background(), ProcessRequest{Title: "x", Date: "2024-05-01"}); err == nil {
		t.Fatal("expected an error for an empty transcript")
	}
}

func TestImportActions_PersistsAndPreservesStatus(t *testing.T) {
	svc, db, _ := newTestPipeline(t, &fakeGemini{outputs: []string{"{}"}})
	ctx := context.Background()

	res, err := svc.ImportActions(ctx, ImportRequest{
		MeetingID: "m1",
		Items:     []*entities.ActionItem{{Task: "Do the thing", Owner: "Bob"}},
	})
	if err != nil {
		t.Fatalf("ImportActions: %v", err)
	}
	if len(res.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(res.Actions))
	}
	id := res.Actions[0].ID

	// Complete it, then re-import: status must survive.
	db.Exec("UPDATE action_items SET status = 'completed' WHERE id = ?", id)

	res2, err := svc.ImportActions(ctx, ImportRequest{
		MeetingID: "m1",
		Items:     []*entities.ActionItem{{ID: id, Task: "Do the thing, updated", Owner: "Bob"}},
	})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	got := res2.Actions[0]
	if got.Status != entities.ActionStatusCompleted {
		t.Errorf("re-import must preserve status, got %s", got.Status)
	}
	if got.Task != "Do the thing, updated" {
		t.Errorf("descriptive fields must refresh, got %q", got.Task)
	}
}
