// Package achievement contains achievement definitions, their unlock
// criteria, and the evaluator that decides which achievements a learner
// has newly earned.
package achievement

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA
// Each achievement has exactly one criterion. The set of criterion types is
// closed; an unknown type in storage is a configuration error, not a silent
// no-match.
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaType enumerates the supported criterion kinds.
type CriteriaType string

const (
	// CriteriaLessonsCompleted - at least N distinct lessons completed.
	CriteriaLessonsCompleted CriteriaType = "lessons_completed"

	// CriteriaStreak - current streak of at least N days.
	CriteriaStreak CriteriaType = "streak_days"

	// CriteriaCategoryCompleted - every lesson of one category completed.
	CriteriaCategoryCompleted CriteriaType = "category_completed"

	// CriteriaAllCategoriesCompleted - every lesson of every category completed.
	CriteriaAllCategoriesCompleted CriteriaType = "all_categories_completed"
)

// Criteria is one unlock condition. Count carries the threshold for the
// counting types; CategoryID carries the target for category_completed.
type Criteria struct {
	Type       CriteriaType `json:"type"`
	Count      int          `json:"count,omitempty"`
	CategoryID int          `json:"category_id,omitempty"`
}

// Criteria validation errors.
var (
	ErrUnknownCriteriaType = errors.New("unknown criteria type")
	ErrInvalidCriteria     = errors.New("invalid criteria")
)

// Validate checks the criterion for internal consistency.
func (c Criteria) Validate() error {
	switch c.Type {
	case CriteriaLessonsCompleted, CriteriaStreak:
		if c.Count < 1 {
			return fmt.Errorf("%w: %s requires count >= 1", ErrInvalidCriteria, c.Type)
		}
	case CriteriaCategoryCompleted:
		if c.CategoryID < 1 {
			return fmt.Errorf("%w: category_completed requires a category id", ErrInvalidCriteria)
		}
	case CriteriaAllCategoriesCompleted:
		// No parameters.
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCriteriaType, c.Type)
	}
	return nil
}

// ParseCriteria decodes a criterion from its stored JSON form and
// validates it.
func ParseCriteria(raw []byte) (Criteria, error) {
	var c Criteria
	if err := json.Unmarshal(raw, &c); err != nil {
		return Criteria{}, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// MarshalJSONBytes encodes the criterion to its stored JSON form.
func (c Criteria) MarshalJSONBytes() ([]byte, error) {
	return json.Marshal(c)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS & RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// Definition is one achievement as configured in storage.
type Definition struct {
	// ID - stable numeric identifier. Evaluation order follows ID.
	ID int

	// Name - display name, e.g. "Week Warrior".
	Name string

	// Description - what the learner did to earn it.
	Description string

	// Icon - emoji or icon key for the UI.
	Icon string

	// Criteria - the single unlock condition.
	Criteria Criteria

	// XPBonus - XP granted when unlocked.
	XPBonus int

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// NewDefinition creates a definition with validation.
func NewDefinition(id int, name string, criteria Criteria, xpBonus int) (*Definition, error) {
	if name == "" {
		return nil, errors.New("achievement name is required")
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if xpBonus < 0 {
		return nil, errors.New("xp bonus must be non-negative")
	}

	return &Definition{
		ID:        id,
		Name:      name,
		Criteria:  criteria,
		XPBonus:   xpBonus,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Record marks one learner's unlock of one achievement.
type Record struct {
	LearnerID     string
	AchievementID int
	EarnedAt      time.Time
}
