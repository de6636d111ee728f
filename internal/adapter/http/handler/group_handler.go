package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/usecase"
)

// GroupHandler handles group, membership and activity requests.
type GroupHandler struct {
	groups GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groups GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// Create creates a group owned by the caller.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), req.ToUseCaseInput(actor))
	if err != nil {
		writeDomainError(w, "failed to create group", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.GroupFromDomain(group))
}

// List lists the caller's groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	groups, err := h.groups.ListGroups(r.Context(), actor, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list groups", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[dto.GroupResponse]{
		Data:   dto.GroupsFromDomain(groups),
		Limit:  limit,
		Offset: offset,
	})
}

// Get returns one group.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	group, err := h.groups.GetGroup(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "failed to get group", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// Rename renames a group at the expected version.
func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.RenameGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groups.RenameGroup(r.Context(), req.ToUseCaseInput(actor, chi.URLParam(r, "groupID")))
	if err != nil {
		writeDomainError(w, "failed to rename group", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GroupFromDomain(group))
}

// ListMembers lists a group's memberships.
func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	members, err := h.groups.ListMembers(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "failed to list members", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MembershipsFromDomain(members))
}

// AddMember adds a user to a group.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "invalid member", err)
		return
	}

	membership, err := h.groups.AddMember(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to add member", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MembershipFromDomain(membership))
}

// ChangeRole changes a member's role.
func (h *GroupHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actor, chi.URLParam(r, "groupID"), chi.URLParam(r, "membershipID"))
	if err != nil {
		writeDomainError(w, "invalid role", err)
		return
	}

	membership, err := h.groups.ChangeMemberRole(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to change role", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MembershipFromDomain(membership))
}

// RemoveMember removes a membership that nothing references.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	err := h.groups.RemoveMember(r.Context(), usecase.RemoveMemberInput{
		ActorID:      actor,
		GroupID:      chi.URLParam(r, "groupID"),
		MembershipID: chi.URLParam(r, "membershipID"),
	})
	if err != nil {
		writeDomainError(w, "failed to remove member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListActivity returns the group's activity feed, newest first.
func (h *GroupHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	activities, err := h.groups.ListActivity(r.Context(), actor, chi.URLParam(r, "groupID"), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[dto.ActivityResponse]{
		Data:   dto.ActivitiesFromDomain(activities),
		Limit:  limit,
		Offset: offset,
	})
}
