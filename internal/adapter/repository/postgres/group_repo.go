package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// GroupRepository implements usecase.GroupRepository.
type GroupRepository struct {
	db DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, name, currency, version, created_at, updated_at`

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, tx usecase.Transaction, group *domain.Group) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO groups (id, name, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		group.ID, group.Name, group.Currency, group.Version, group.CreatedAt, group.UpdatedAt,
	)
	return translateError(err)
}

// GetByID retrieves a group by ID.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	row := r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	g, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGroupNotFound
	}
	return g, err
}

// ListByUser lists the groups a user belongs to, newest first.
func (r *GroupRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Group, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.currency, g.version, g.created_at, g.updated_at
		FROM groups g
		JOIN memberships m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateName renames the group if it is still at expectedVersion.
func (r *GroupRepository) UpdateName(ctx context.Context, tx usecase.Transaction, id, name string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	var version int64
	err := conn(r.db, tx).QueryRow(ctx, `
		UPDATE groups SET name = $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3
		RETURNING version`,
		id, name, expectedVersion, updatedAt,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: group %s is not at version %d", domain.ErrVersionConflict, id, expectedVersion)
	}
	return version, err
}

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Currency, &g.Version, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
