package usecase

import (
	"context"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// GroupUseCase handles groups and their memberships.
type GroupUseCase struct {
	txManager      TransactionManager
	groupRepo      GroupRepository
	membershipRepo MembershipRepository
	userRepo       UserRepository
	activityRepo   ActivityRepository
	idGen          IDGenerator
	metrics        *metrics.Metrics
}

// NewGroupUseCase creates a new GroupUseCase.
func NewGroupUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	membershipRepo MembershipRepository,
	userRepo UserRepository,
	activityRepo ActivityRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *GroupUseCase {
	return &GroupUseCase{
		txManager:      txManager,
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		activityRepo:   activityRepo,
		idGen:          idGen,
		metrics:        metrics,
	}
}

// CreateGroupInput represents input for creating a group.
type CreateGroupInput struct {
	ActorID  string
	Name     string
	Currency string
}

// CreateGroup creates a group with the actor as its first owner.
func (uc *GroupUseCase) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error) {
	name, err := domain.NormalizeGroupName(input.Name)
	if err != nil {
		return nil, err
	}
	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:        uc.idGen.Generate(),
		Name:      name,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &domain.Membership{
		ID:        uc.idGen.Generate(),
		GroupID:   group.ID,
		UserID:    input.ActorID,
		Role:      domain.RoleOwner,
		CreatedAt: now,
	}

	err = withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if err := uc.groupRepo.Create(ctx, tx, group); err != nil {
			return err
		}
		if err := uc.membershipRepo.Create(ctx, tx, owner); err != nil {
			return err
		}
		return recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
			GroupID:           group.ID,
			ActorMembershipID: owner.ID,
			EventType:         domain.EventGroupCreated,
			SubjectID:         group.ID,
			Metadata:          domain.JSON{"name": group.Name, "currency": group.Currency},
			CreatedAt:         now,
		})
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// GetGroup returns a group the actor belongs to.
func (uc *GroupUseCase) GetGroup(ctx context.Context, actorID, groupID string) (*domain.Group, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}
	return uc.groupRepo.GetByID(ctx, groupID)
}

// ListGroups lists the groups the actor belongs to.
func (uc *GroupUseCase) ListGroups(ctx context.Context, actorID string, limit, offset int) ([]*domain.Group, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.groupRepo.ListByUser(ctx, actorID, limit, offset)
}

// RenameGroupInput represents input for renaming a group.
type RenameGroupInput struct {
	ActorID         string
	GroupID         string
	Name            string
	ExpectedVersion int64
}

// RenameGroup renames a group if its version still matches ExpectedVersion.
func (uc *GroupUseCase) RenameGroup(ctx context.Context, input RenameGroupInput) (*domain.Group, error) {
	name, err := domain.NormalizeGroupName(input.Name)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion < 1 {
		return nil, domain.ErrInvalidVersion
	}

	var group *domain.Group
	err = withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		actor, err := requireMember(ctx, uc.membershipRepo, tx, input.GroupID, input.ActorID, domain.ErrGroupNotFound)
		if err != nil {
			return err
		}
		if err := requireOwner(actor); err != nil {
			return err
		}

		group, err = uc.groupRepo.GetByID(ctx, input.GroupID)
		if err != nil {
			return err
		}
		if err := domain.CheckVersion(group.Version, input.ExpectedVersion); err != nil {
			return err
		}

		now := time.Now().UTC()
		oldName := group.Name
		version, err := uc.groupRepo.UpdateName(ctx, tx, group.ID, name, input.ExpectedVersion, now)
		if err != nil {
			return err
		}
		group.Name = name
		group.Version = version
		group.UpdatedAt = now

		return recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
			GroupID:           group.ID,
			ActorMembershipID: actor.ID,
			EventType:         domain.EventGroupRenamed,
			SubjectID:         group.ID,
			Metadata:          domain.JSON{"from": oldName, "to": name},
			CreatedAt:         now,
		})
	})
	if err != nil {
		observeFailure(uc.metrics, "group", err)
		return nil, err
	}

	return group, nil
}

// AddMemberInput represents input for adding a member. The user is
// identified by UserID or, when that is empty, by Email.
type AddMemberInput struct {
	ActorID string
	GroupID string
	UserID  string
	Email   string
	Role    domain.Role
}

// AddMember adds a user to a group. Only owners may add members.
func (uc *GroupUseCase) AddMember(ctx context.Context, input AddMemberInput) (*domain.Membership, error) {
	if input.Role == "" {
		input.Role = domain.RoleMember
	}
	if !input.Role.IsValid() {
		return nil, domain.ErrInvalidRole
	}

	user, err := uc.resolveUser(ctx, input.UserID, input.Email)
	if err != nil {
		return nil, err
	}

	var membership *domain.Membership
	err = withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		actor, err := requireMember(ctx, uc.membershipRepo, tx, input.GroupID, input.ActorID, domain.ErrGroupNotFound)
		if err != nil {
			return err
		}
		if err := requireOwner(actor); err != nil {
			return err
		}

		now := time.Now().UTC()
		membership = &domain.Membership{
			ID:        uc.idGen.Generate(),
			GroupID:   input.GroupID,
			UserID:    user.ID,
			Role:      input.Role,
			CreatedAt: now,
		}
		if err := uc.membershipRepo.Create(ctx, tx, membership); err != nil {
			return err
		}

		return recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
			GroupID:           input.GroupID,
			ActorMembershipID: actor.ID,
			EventType:         domain.EventMemberAdded,
			SubjectID:         membership.ID,
			Metadata:          domain.JSON{"user_id": user.ID, "role": string(input.Role)},
			CreatedAt:         now,
		})
	})
	if err != nil {
		return nil, err
	}

	return membership, nil
}

func (uc *GroupUseCase) resolveUser(ctx context.Context, userID, email string) (*domain.User, error) {
	if userID != "" {
		return uc.userRepo.GetByID(ctx, userID)
	}
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return uc.userRepo.GetByEmail(ctx, email)
}

// ChangeMemberRoleInput represents input for changing a member's role.
type ChangeMemberRoleInput struct {
	ActorID      string
	GroupID      string
	MembershipID string
	Role         domain.Role
}

// ChangeMemberRole updates a member's role. A group always keeps at least one owner.
func (uc *GroupUseCase) ChangeMemberRole(ctx context.Context, input ChangeMemberRoleInput) (*domain.Membership, error) {
	if !input.Role.IsValid() {
		return nil, domain.ErrInvalidRole
	}

	var target *domain.Membership
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		actor, members, err := uc.ownerAndMembers(ctx, tx, input.GroupID, input.ActorID)
		if err != nil {
			return err
		}
		target = findMembership(members, input.MembershipID)
		if target == nil {
			return domain.ErrMembershipNotFound
		}
		if target.Role == input.Role {
			return nil
		}
		if target.Role == domain.RoleOwner && countOwners(members) == 1 {
			return domain.ErrLastOwner
		}

		oldRole := target.Role
		if err := uc.membershipRepo.UpdateRole(ctx, tx, target.ID, input.Role); err != nil {
			return err
		}
		target.Role = input.Role

		return recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
			GroupID:           input.GroupID,
			ActorMembershipID: actor.ID,
			EventType:         domain.EventMemberRoleChanged,
			SubjectID:         target.ID,
			Metadata:          domain.JSON{"from": string(oldRole), "to": string(input.Role)},
			CreatedAt:         time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	return target, nil
}

// RemoveMemberInput represents input for removing a member.
type RemoveMemberInput struct {
	ActorID      string
	GroupID      string
	MembershipID string
}

// RemoveMember deletes a membership that no expense, split or settlement references.
func (uc *GroupUseCase) RemoveMember(ctx context.Context, input RemoveMemberInput) error {
	return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		actor, members, err := uc.ownerAndMembers(ctx, tx, input.GroupID, input.ActorID)
		if err != nil {
			return err
		}
		target := findMembership(members, input.MembershipID)
		if target == nil {
			return domain.ErrMembershipNotFound
		}
		if target.Role == domain.RoleOwner && countOwners(members) == 1 {
			return domain.ErrLastOwner
		}

		referenced, err := uc.membershipRepo.IsReferenced(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if referenced {
			return domain.ErrMembershipInUse
		}

		if err := recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
			GroupID:           input.GroupID,
			ActorMembershipID: actor.ID,
			EventType:         domain.EventMemberRemoved,
			SubjectID:         target.ID,
			Metadata:          domain.JSON{"user_id": target.UserID},
			CreatedAt:         time.Now().UTC(),
		}); err != nil {
			return err
		}

		return uc.membershipRepo.Delete(ctx, tx, target.ID)
	})
}

// ListMembers lists the memberships of a group the actor belongs to.
func (uc *GroupUseCase) ListMembers(ctx context.Context, actorID, groupID string) ([]*domain.Membership, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}
	return uc.membershipRepo.ListByGroup(ctx, nil, groupID)
}

// ListActivity lists a group's activity log, newest first.
func (uc *GroupUseCase) ListActivity(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Activity, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.activityRepo.ListByGroup(ctx, groupID, limit, offset)
}

func (uc *GroupUseCase) ownerAndMembers(ctx context.Context, tx Transaction, groupID, actorID string) (*domain.Membership, []*domain.Membership, error) {
	members, err := uc.membershipRepo.LockByGroup(ctx, tx, groupID)
	if err != nil {
		return nil, nil, err
	}
	var actor *domain.Membership
	for _, m := range members {
		if m.UserID == actorID {
			actor = m
			break
		}
	}
	if actor == nil {
		return nil, nil, domain.ErrGroupNotFound
	}
	if err := requireOwner(actor); err != nil {
		return nil, nil, err
	}
	return actor, members, nil
}

func findMembership(members []*domain.Membership, id string) *domain.Membership {
	for _, m := range members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func countOwners(members []*domain.Membership) int {
	n := 0
	for _, m := range members {
		if m.Role == domain.RoleOwner {
			n++
		}
	}
	return n
}
