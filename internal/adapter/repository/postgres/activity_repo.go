package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// ActivityRepository implements usecase.ActivityRepository. Rows with no
// published_at form the outbox drained by the event publisher.
type ActivityRepository struct {
	db DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, group_id, actor_membership_id, event_type, subject_id, metadata, created_at, published_at`

// Create inserts an activity row within a transaction.
func (r *ActivityRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.Activity) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}

	var actor *string
	if a.ActorMembershipID != "" {
		actor = &a.ActorMembershipID
	}

	_, err = conn(r.db, tx).Exec(ctx, `
		INSERT INTO activity_log (id, group_id, actor_membership_id, event_type, subject_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.GroupID, actor, string(a.EventType), a.SubjectID, metadata, a.CreatedAt,
	)
	return translateError(err)
}

// ListByGroup lists a group's activity, newest first.
func (r *ActivityRepository) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Activity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+activityColumns+` FROM activity_log
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		groupID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

// GetUnpublished retrieves the oldest unpublished rows.
func (r *ActivityRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.Activity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+activityColumns+` FROM activity_log
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

// MarkPublished records when a row was published.
func (r *ActivityRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE activity_log SET published_at = $2 WHERE id = $1`, id, publishedAt)
	return err
}

func collectActivities(rows pgx.Rows) ([]*domain.Activity, error) {
	defer rows.Close()

	var out []*domain.Activity
	for rows.Next() {
		var (
			a           domain.Activity
			actor       *string
			eventType   string
			metadata    []byte
			publishedAt *time.Time
		)
		if err := rows.Scan(&a.ID, &a.GroupID, &actor, &eventType, &a.SubjectID, &metadata, &a.CreatedAt, &publishedAt); err != nil {
			return nil, err
		}
		if actor != nil {
			a.ActorMembershipID = *actor
		}
		a.EventType = domain.EventType(eventType)
		a.PublishedAt = publishedAt
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode activity %s metadata: %w", a.ID, err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
