package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// MembershipRepository implements usecase.MembershipRepository.
type MembershipRepository struct {
	db DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

const membershipColumns = `id, group_id, user_id, role, created_at`

// Create inserts a membership.
func (r *MembershipRepository) Create(ctx context.Context, tx usecase.Transaction, m *domain.Membership) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO memberships (id, group_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.GroupID, m.UserID, string(m.Role), m.CreatedAt,
	)
	return translateError(err)
}

// GetByID retrieves a membership by ID.
func (r *MembershipRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Membership, error) {
	row := conn(r.db, tx).QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id)
	return scanMembershipRow(row)
}

// GetByGroupAndUser retrieves a user's membership in a group.
func (r *MembershipRepository) GetByGroupAndUser(ctx context.Context, tx usecase.Transaction, groupID, userID string) (*domain.Membership, error) {
	row := conn(r.db, tx).QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	return scanMembershipRow(row)
}

// ListByGroup lists a group's memberships without locking them.
func (r *MembershipRepository) ListByGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Membership, error) {
	return r.list(ctx, tx, `SELECT `+membershipColumns+` FROM memberships WHERE group_id = $1 ORDER BY id`, groupID)
}

// LockByGroup lists a group's memberships with FOR UPDATE so concurrent
// role changes and removals see each other.
func (r *MembershipRepository) LockByGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Membership, error) {
	if tx == nil {
		return nil, errors.New("locking memberships requires a transaction")
	}
	return r.list(ctx, tx, `SELECT `+membershipColumns+` FROM memberships WHERE group_id = $1 ORDER BY id FOR UPDATE`, groupID)
}

func (r *MembershipRepository) list(ctx context.Context, tx usecase.Transaction, query, groupID string) ([]*domain.Membership, error) {
	rows, err := conn(r.db, tx).Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateRole changes a membership's role.
func (r *MembershipRepository) UpdateRole(ctx context.Context, tx usecase.Transaction, id string, role domain.Role) error {
	tag, err := conn(r.db, tx).Exec(ctx, `UPDATE memberships SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// Delete removes a membership. Memberships referenced by expenses or
// settlements are protected by foreign keys.
func (r *MembershipRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(r.db, tx).Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrMembershipInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// IsReferenced reports whether any expense, split or settlement names the membership.
func (r *MembershipRepository) IsReferenced(ctx context.Context, tx usecase.Transaction, id string) (bool, error) {
	var referenced bool
	err := conn(r.db, tx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM expenses WHERE paid_by = $1)
		    OR EXISTS (SELECT 1 FROM expense_splits WHERE membership_id = $1)
		    OR EXISTS (SELECT 1 FROM settlements WHERE from_membership = $1 OR to_membership = $1)`,
		id,
	).Scan(&referenced)
	return referenced, err
}

func scanMembershipRow(row pgx.Row) (*domain.Membership, error) {
	m, err := scanMembership(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	return m, err
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}
