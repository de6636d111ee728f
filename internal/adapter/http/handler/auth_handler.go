package handler

import (
	"net/http"

	"github.com/iho/splitledger/internal/adapter/http/dto"
)

// AuthHandler handles registration, login and the current user.
type AuthHandler struct {
	users UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register creates an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to register", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromDomain(user))
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.users.Login(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "invalid credentials", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{Token: token, User: dto.UserFromDomain(user)})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "failed to get user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
