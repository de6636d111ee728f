package usecase

import (
	"context"
	"errors"

	"github.com/iho/splitledger/internal/domain"
)

// requireMember resolves the actor's membership in a group. Callers outside
// the group get notFound so the group's existence is not revealed.
func requireMember(ctx context.Context, repo MembershipRepository, tx Transaction, groupID, userID string, notFound error) (*domain.Membership, error) {
	m, err := repo.GetByGroupAndUser(ctx, tx, groupID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return m, nil
}

func requireWriter(m *domain.Membership) error {
	if !m.Role.CanWrite() {
		return domain.ErrInsufficientRole
	}
	return nil
}

func requireOwner(m *domain.Membership) error {
	if !m.Role.CanManageMembers() {
		return domain.ErrInsufficientRole
	}
	return nil
}

// recordActivity appends to the activity log inside tx.
func recordActivity(ctx context.Context, repo ActivityRepository, tx Transaction, idGen IDGenerator, a domain.Activity) error {
	if repo == nil {
		return nil
	}
	a.ID = idGen.Generate()
	return repo.Create(ctx, tx, &a)
}
