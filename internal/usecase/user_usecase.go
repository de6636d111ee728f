package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// UserUseCase handles registration and login.
type UserUseCase struct {
	userRepo UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	idGen    IDGenerator
	metrics  *metrics.Metrics
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(userRepo UserRepository, hasher PasswordHasher, tokens TokenIssuer, idGen IDGenerator, metrics *metrics.Metrics) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		idGen:    idGen,
		metrics:  metrics,
	}
}

// RegisterInput represents input for registering a user
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates a user with a hashed password.
func (uc *UserUseCase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uc.idGen.Generate(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Duplicate emails surface as ErrEmailTaken from the unique index.
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// LoginInput represents login credentials
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues an access token.
func (uc *UserUseCase) Login(ctx context.Context, input LoginInput) (string, *domain.User, error) {
	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		uc.observeAuth("rejected")
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.observeAuth("rejected")
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := uc.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		uc.observeAuth("rejected")
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := uc.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}

	uc.observeAuth("accepted")
	user.PasswordHash = ""
	return token, user, nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (uc *UserUseCase) observeAuth(outcome string) {
	if uc.metrics != nil {
		uc.metrics.AuthAttempts.WithLabelValues(outcome).Inc()
	}
}
