package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-agent/internal/domain/entities"
	repo "github.com/johnquangdev/meeting-agent/internal/domain/repositories"
)

// DefaultSnoozePeriod is how long a snoozed item stays deferred.
const DefaultSnoozePeriod = 24 * time.Hour

type actionRepository struct {
	db           *gorm.DB
	snoozePeriod time.Duration
}

// NewActionRepository creates an action item repository backed by GORM.
// A non-positive snoozePeriod falls back to DefaultSnoozePeriod.
func NewActionRepository(db *gorm.DB, snoozePeriod time.Duration) repo.ActionRepository {
	if snoozePeriod <= 0 {
		snoozePeriod = DefaultSnoozePeriod
	}
	return &actionRepository{db: db, snoozePeriod: snoozePeriod}
}

func (r *actionRepository) UpsertBatch(ctx context.Context, items []*entities.ActionItem, meetingID string) ([]*entities.ActionItem, error) {
	saved := make([]*entities.ActionItem, 0, len(items))

	for _, it := range items {
		// Keep an id supplied by the caller, otherwise mint one and use it
		// as both identities.
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		if it.CorrelationID == "" {
			it.CorrelationID = it.ID
		}
		it.MeetingID = meetingID
		it.Priority = entities.NormalizePriority(it.Priority)

		// Existing rows keep status, status timestamps and correlation id;
		// only descriptive fields are refreshed. A re-imported meeting must
		// not resurrect a completed or deleted task.
		q := `INSERT INTO action_items (id, correlation_id, meeting_id, task, owner, owner_email, due_date, priority, status, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)
            ON CONFLICT (id) DO UPDATE SET
                meeting_id = EXCLUDED.meeting_id,
                task = EXCLUDED.task,
                owner = EXCLUDED.owner,
                owner_email = EXCLUDED.owner_email,
                due_date = EXCLUDED.due_date,
                priority = EXCLUDED.priority`

		if err := r.db.WithContext(ctx).Exec(q,
			it.ID, it.CorrelationID, it.MeetingID,
			it.Task, it.Owner, it.OwnerEmail, it.DueDate, it.Priority,
			time.Now().UTC(),
		).Error; err != nil {
			return nil, err
		}

		// Re-read so callers see the resolved identities and the preserved
		// status of pre-existing rows.
		row, err := r.Find(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		saved = append(saved, row)
	}

	return saved, nil
}

func (r *actionRepository) Find(ctx context.Context, target string) (*entities.ActionItem, error) {
	// External callbacks carry the correlation id, internal callers the
	// primary id; accept either.
	var item entities.ActionItem
	err := r.db.WithContext(ctx).
		Where("id = ? OR correlation_id = ?", target, target).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrActionNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *actionRepository) RecordDelivery(ctx context.Context, target, deliveryRef string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE action_items SET delivery_ref = ? WHERE id = ? OR correlation_id = ?`,
		deliveryRef, target, target,
	).Error
}

func (r *actionRepository) SetCorrelationID(ctx context.Context, id, correlationID string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE action_items SET correlation_id = ? WHERE id = ?`,
		correlationID, id,
	).Error
}

func (r *actionRepository) ApplyStatus(ctx context.Context, target string, status entities.ActionStatus, now time.Time) (bool, error) {
	// One conditional statement per transition. Guarding only on "not
	// already deleted" keeps every transition idempotent under retries and
	// resolves concurrent transitions by commit order; deleted wins once
	// committed.
	var q string
	var stamp time.Time

	switch status {
	case entities.ActionStatusCompleted:
		q = `UPDATE action_items SET status = 'completed', completed_at = ?
            WHERE (id = ? OR correlation_id = ?) AND status <> 'deleted'`
		stamp = now
	case entities.ActionStatusSnoozed:
		q = `UPDATE action_items SET status = 'snoozed', snoozed_until = ?
            WHERE (id = ? OR correlation_id = ?) AND status <> 'deleted'`
		stamp = now.Add(r.snoozePeriod)
	case entities.ActionStatusDeleted:
		q = `UPDATE action_items SET status = 'deleted', deleted_at = ?
            WHERE (id = ? OR correlation_id = ?) AND status <> 'deleted'`
		stamp = now
	default:
		return false, entities.ErrInvalidStatus
	}

	res := r.db.WithContext(ctx).Exec(q, stamp, target, target)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *actionRepository) ListByMeeting(ctx context.Context, meetingID string) ([]*entities.ActionItem, error) {
	var items []*entities.ActionItem
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
