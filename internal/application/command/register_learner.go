// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER LEARNER COMMAND
// Creates the account and its empty progress record. A brand-new learner
// starts at level 1 with zero XP and no streak.
// ══════════════════════════════════════════════════════════════════════════════

// PasswordHasher hashes and verifies passwords. The bcrypt implementation
// lives in the infrastructure layer.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// RegisterLearnerCommand contains the sign-up data.
type RegisterLearnerCommand struct {
	// Email - sign-in identity, must be unique.
	Email string

	// Password - plain-text password, hashed before storage.
	Password string

	// DisplayName - name shown on the leaderboard.
	DisplayName string
}

// Validate validates the command.
func (c RegisterLearnerCommand) Validate() error {
	if !learner.Email(c.Email).IsValid() {
		return learner.ErrInvalidEmail
	}
	if len(c.Password) < 8 {
		return errors.New("register_learner: password must be at least 8 characters")
	}
	if c.DisplayName == "" {
		return learner.ErrInvalidDisplayName
	}
	return nil
}

// RegisterLearnerResult contains the outcome of a registration.
type RegisterLearnerResult struct {
	// LearnerID - the new account's ID.
	LearnerID string

	// Email - the registered email.
	Email string

	// DisplayName - the stored display name.
	DisplayName string

	// Level - always 1 for a new learner.
	Level int

	// RegisteredAt - when the account was created.
	RegisteredAt time.Time
}

// RegisterLearnerHandler handles the RegisterLearnerCommand.
type RegisterLearnerHandler struct {
	learnerRepo    learner.Repository
	hasher         PasswordHasher
	eventPublisher shared.EventPublisher
}

// NewRegisterLearnerHandler creates a new RegisterLearnerHandler.
func NewRegisterLearnerHandler(
	learnerRepo learner.Repository,
	hasher PasswordHasher,
	eventPublisher shared.EventPublisher,
) *RegisterLearnerHandler {
	return &RegisterLearnerHandler{
		learnerRepo:    learnerRepo,
		hasher:         hasher,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the registration.
func (h *RegisterLearnerHandler) Handle(ctx context.Context, cmd RegisterLearnerCommand) (*RegisterLearnerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("learner", "Register", shared.ErrValidation, "invalid registration", err)
	}

	if existing, err := h.learnerRepo.GetByEmail(ctx, learner.Email(cmd.Email)); err == nil && existing != nil {
		return nil, shared.ErrLearnerAlreadyExists
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_learner: hashing failed: %w", err)
	}

	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:           uuid.NewString(),
		Email:        learner.Email(cmd.Email),
		PasswordHash: hash,
		DisplayName:  cmd.DisplayName,
	})
	if err != nil {
		return nil, shared.WrapError("learner", "Register", shared.ErrValidation, "invalid learner", err)
	}

	if err := h.learnerRepo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("register_learner: create failed: %w", err)
	}

	_ = h.eventPublisher.Publish(shared.NewLearnerRegisteredEvent(l.ID, l.Email.String(), l.DisplayName))

	return &RegisterLearnerResult{
		LearnerID:    l.ID,
		Email:        l.Email.String(),
		DisplayName:  l.DisplayName,
		Level:        1,
		RegisteredAt: l.JoinedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE LEARNER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateLearnerCommand contains sign-in credentials.
type AuthenticateLearnerCommand struct {
	Email    string
	Password string
}

// AuthenticateLearnerResult identifies the signed-in learner.
type AuthenticateLearnerResult struct {
	LearnerID   string
	Email       string
	DisplayName string
}

// ErrInvalidCredentials - the email/password pair does not match.
// Deliberately the same for "no such account" and "wrong password".
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthenticateLearnerHandler handles sign-in.
type AuthenticateLearnerHandler struct {
	learnerRepo learner.Repository
	hasher      PasswordHasher
}

// NewAuthenticateLearnerHandler creates a new AuthenticateLearnerHandler.
func NewAuthenticateLearnerHandler(learnerRepo learner.Repository, hasher PasswordHasher) *AuthenticateLearnerHandler {
	return &AuthenticateLearnerHandler{learnerRepo: learnerRepo, hasher: hasher}
}

// Handle verifies the credentials.
func (h *AuthenticateLearnerHandler) Handle(ctx context.Context, cmd AuthenticateLearnerCommand) (*AuthenticateLearnerResult, error) {
	l, err := h.learnerRepo.GetByEmail(ctx, learner.Email(cmd.Email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := h.hasher.Compare(l.PasswordHash, cmd.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &AuthenticateLearnerResult{
		LearnerID:   l.ID,
		Email:       l.Email.String(),
		DisplayName: l.DisplayName,
	}, nil
}
