package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&entities.ActionItem{}, &entities.MeetingSummary{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUpsertBatch_AssignsIdentity(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, err := r.UpsertBatch(ctx, []*entities.ActionItem{
		{Task: "Ship v2", OwnerEmail: "bob@x.com", Priority: "high", DueDate: "2024-05-03"},
	}, "m1")
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved item, got %d", len(saved))
	}

	it := saved[0]
	if it.ID == "" || it.CorrelationID == "" {
		t.Fatalf("expected non-empty identities, got id=%q correlation=%q", it.ID, it.CorrelationID)
	}
	if it.ID != it.CorrelationID {
		t.Errorf("id and correlation id should match at creation: %q != %q", it.ID, it.CorrelationID)
	}
	if it.Status != entities.ActionStatusPending {
		t.Errorf("expected pending, got %s", it.Status)
	}
	if it.MeetingID != "m1" {
		t.Errorf("expected meeting m1, got %s", it.MeetingID)
	}
}

func TestUpsertBatch_PreservesStatusOnReimport(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, err := r.UpsertBatch(ctx, []*entities.ActionItem{
		{Task: "Ship v2", OwnerEmail: "bob@x.com", Priority: "high"},
	}, "m1")
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	id := saved[0].ID

	now := time.Now().UTC()
	applied, err := r.ApplyStatus(ctx, id, entities.ActionStatusCompleted, now)
	if err != nil || !applied {
		t.Fatalf("ApplyStatus completed: applied=%v err=%v", applied, err)
	}

	// Re-run the same meeting with a refreshed description.
	saved, err = r.UpsertBatch(ctx, []*entities.ActionItem{
		{ID: id, Task: "Ship v2 (revised)", OwnerEmail: "bob@x.com", Priority: "low"},
	}, "m1")
	if err != nil {
		t.Fatalf("UpsertBatch re-run: %v", err)
	}

	it := saved[0]
	if it.Status != entities.ActionStatusCompleted {
		t.Errorf("re-import must not reset status: got %s", it.Status)
	}
	if it.CompletedAt == nil || it.CompletedAt.Unix() != now.Unix() {
		t.Errorf("re-import must keep completed_at, got %v", it.CompletedAt)
	}
	if it.Task != "Ship v2 (revised)" {
		t.Errorf("descriptive fields should refresh, got %q", it.Task)
	}
	if it.Priority != entities.ActionPriorityLow {
		t.Errorf("priority should refresh, got %q", it.Priority)
	}
}

func TestApplyStatus_DeletedIsTerminal(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, _ := r.UpsertBatch(ctx, []*entities.ActionItem{{Task: "t"}}, "m1")
	id := saved[0].ID
	now := time.Now().UTC()

	if ok, err := r.ApplyStatus(ctx, id, entities.ActionStatusCompleted, now); !ok || err != nil {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}
	if ok, err := r.ApplyStatus(ctx, id, entities.ActionStatusDeleted, now); !ok || err != nil {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, err := r.ApplyStatus(ctx, id, entities.ActionStatusCompleted, now); ok || err != nil {
		t.Fatalf("complete after delete should not apply: ok=%v err=%v", ok, err)
	}
	if ok, err := r.ApplyStatus(ctx, id, entities.ActionStatusDeleted, now); ok || err != nil {
		t.Fatalf("second delete should return false: ok=%v err=%v", ok, err)
	}

	it, err := r.Find(ctx, id)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if it.Status != entities.ActionStatusDeleted {
		t.Errorf("final status should be deleted, got %s", it.Status)
	}
}

func TestApplyStatus_NonTerminalLastWriteWins(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, _ := r.UpsertBatch(ctx, []*entities.ActionItem{{Task: "t"}}, "m1")
	id := saved[0].ID
	now := time.Now().UTC()

	// Two callbacks racing in either order both succeed; the final state is
	// whichever committed last.
	if ok, _ := r.ApplyStatus(ctx, id, entities.ActionStatusCompleted, now); !ok {
		t.Fatal("complete should apply")
	}
	if ok, _ := r.ApplyStatus(ctx, id, entities.ActionStatusSnoozed, now); !ok {
		t.Fatal("snooze after complete should apply")
	}

	it, _ := r.Find(ctx, id)
	if it.Status != entities.ActionStatusSnoozed {
		t.Errorf("expected snoozed, got %s", it.Status)
	}

	// Duplicate delivery converges to the same state.
	if ok, _ := r.ApplyStatus(ctx, id, entities.ActionStatusSnoozed, now); !ok {
		t.Error("re-applying snooze should be a no-op success")
	}
}

func TestApplyStatus_SnoozeSetsDeadline(t *testing.T) {
	period := 48 * time.Hour
	r := NewActionRepository(newTestDB(t), period)
	ctx := context.Background()

	saved, _ := r.UpsertBatch(ctx, []*entities.ActionItem{{Task: "t"}}, "m1")
	now := time.Now().UTC()

	if ok, err := r.ApplyStatus(ctx, saved[0].ID, entities.ActionStatusSnoozed, now); !ok || err != nil {
		t.Fatalf("snooze: ok=%v err=%v", ok, err)
	}

	it, _ := r.Find(ctx, saved[0].ID)
	if it.SnoozedUntil == nil {
		t.Fatal("snoozed_until should be set")
	}
	if got, want := it.SnoozedUntil.Unix(), now.Add(period).Unix(); got != want {
		t.Errorf("snoozed_until = %d, want %d", got, want)
	}
}

func TestApplyStatus_RejectsPending(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, _ := r.UpsertBatch(ctx, []*entities.ActionItem{{Task: "t"}}, "m1")

	ok, err := r.ApplyStatus(ctx, saved[0].ID, entities.ActionStatusPending, time.Now().UTC())
	if ok || !errors.Is(err, entities.ErrInvalidStatus) {
		t.Fatalf("pending is not a reachable transition target: ok=%v err=%v", ok, err)
	}
}

func TestFind_ByEitherIdentity(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, _ := r.UpsertBatch(ctx, []*entities.ActionItem{{Task: "t"}}, "m1")
	id := saved[0].ID

	if err := r.SetCorrelationID(ctx, id, "corr-123"); err != nil {
		t.Fatalf("SetCorrelationID: %v", err)
	}

	byID, err := r.Find(ctx, id)
	if err != nil {
		t.Fatalf("Find by id: %v", err)
	}
	byCorr, err := r.Find(ctx, "corr-123")
	if err != nil {
		t.Fatalf("Find by correlation id: %v", err)
	}
	if byID.ID != byCorr.ID {
		t.Errorf("both lookups should hit the same row: %q vs %q", byID.ID, byCorr.ID)
	}

	if _, err := r.Find(ctx, "missing"); !errors.Is(err, entities.ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}
}

func TestRecordDelivery(t *testing.T) {
	r := NewActionRepository(newTestDB(t), 0)
	ctx := context.Background()

	saved, _ := r.UpsertBatch(ctx, []*entities.ActionItem{{Task: "t"}}, "m1")

	if err := r.RecordDelivery(ctx, saved[0].CorrelationID, "1712345678.000100"); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	it, _ := r.Find(ctx, saved[0].ID)
	if it.DeliveryRef != "1712345678.000100" {
		t.Errorf("delivery_ref = %q", it.DeliveryRef)
	}

	// A miss is a no-op, not an error.
	if err := r.RecordDelivery(ctx, "missing", "ts"); err != nil {
		t.Errorf("miss should be a no-op: %v", err)
	}
}

func TestSummaryRepository_UpsertByMeeting(t *testing.T) {
	db := newTestDB(t)
	r := NewSummaryRepository(db)
	ctx := context.Background()

	s := entities.NewMeetingSummary("m1", "Weekly Sync", "2024-05-01", "first draft")
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2 := entities.NewMeetingSummary("m1", "Weekly Sync", "2024-05-01", "revised")
	if err := r.Save(ctx, s2); err != nil {
		t.Fatalf("Save (revise): %v", err)
	}

	got, err := r.GetByMeetingID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMeetingID: %v", err)
	}
	if got.Minutes != "revised" {
		t.Errorf("minutes = %q, want revised", got.Minutes)
	}
	if got.ID != s.ID {
		t.Errorf("row identity should not change on re-save: %q vs %q", got.ID, s.ID)
	}

	if _, err := r.GetByMeetingID(ctx, "missing"); !errors.Is(err, entities.ErrSummaryNotFound) {
		t.Errorf("expected ErrSummaryNotFound, got %v", err)
	}
}
