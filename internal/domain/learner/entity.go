// Package learner contains the domain model for EcoQuest learners:
// the learner entity itself, the progress ledger, and the streak rules.
// This is the core of the business logic - no external dependencies here.
package learner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP represents experience points accumulated by a learner.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add adds a delta to XP.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Level represents a learner's level, derived from XP.
type Level int

// xpPerLevel is the amount of XP required per level.
const xpPerLevel = 500

// CalculateLevel derives the level from total XP.
// Formula: floor(totalXP / 500) + 1. A brand-new learner is level 1.
// This is the only place the formula lives; every display and every
// level-up decision goes through it so stored and shown levels can't drift.
func CalculateLevel(xp XP) Level {
	if xp < 0 {
		return 1
	}
	return Level(xp/xpPerLevel) + 1
}

// XPIntoLevel returns how much XP has been earned within the current level.
func XPIntoLevel(xp XP) XP {
	if xp < 0 {
		return 0
	}
	return xp % xpPerLevel
}

// XPForNextLevel returns how much XP is still needed to reach the next level.
func XPForNextLevel(xp XP) XP {
	return xpPerLevel - XPIntoLevel(xp)
}

// Email represents a learner's email address.
type Email string

// IsValid performs a minimal sanity check on the email.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.Index(s, "@")
	return len(s) >= 3 && len(s) <= 254 && at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation of the email.
func (e Email) String() string {
	return string(e)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LEARNER
// ══════════════════════════════════════════════════════════════════════════════

// Learner is the account entity. Cumulative learning state lives in the
// ProgressRecord, keyed by the learner's ID.
type Learner struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// Email - sign-in identity, unique across learners.
	Email Email

	// PasswordHash - bcrypt hash of the learner's password.
	PasswordHash string

	// DisplayName - name shown on the leaderboard and profile.
	DisplayName string

	// JoinedAt - when the learner signed up.
	JoinedAt time.Time

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidEmail - malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidDisplayName - display name out of bounds.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewLearnerParams contains the parameters for creating a new learner.
type NewLearnerParams struct {
	ID           string
	Email        Email
	PasswordHash string
	DisplayName  string
}

// NewLearner creates a new learner with full field validation.
func NewLearner(params NewLearnerParams) (*Learner, error) {
	if params.ID == "" {
		return nil, errors.New("learner id is required")
	}

	if !params.Email.IsValid() {
		return nil, ErrInvalidEmail
	}

	if params.PasswordHash == "" {
		return nil, errors.New("password hash is required")
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	now := time.Now().UTC()

	return &Learner{
		ID:           params.ID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		DisplayName:  displayName,
		JoinedAt:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Rename updates the display name.
func (l *Learner) Rename(displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return ErrInvalidDisplayName
	}

	l.DisplayName = displayName
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// String returns a string representation of the learner for logging.
func (l *Learner) String() string {
	return fmt.Sprintf("Learner{ID: %s, Email: %s, Name: %s}", l.ID, l.Email, l.DisplayName)
}

// Clone creates a shallow copy of the learner.
func (l *Learner) Clone() *Learner {
	if l == nil {
		return nil
	}

	clone := *l
	return &clone
}
