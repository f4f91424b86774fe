// Package catalog contains the learning content model: categories and
// lessons, plus the sequential-unlock rules that gate them.
package catalog

import (
	"errors"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty grades a lesson.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid checks that the difficulty is a known grade.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// Category groups lessons around one climate topic.
type Category struct {
	// ID - stable numeric identifier, also the display order.
	ID int

	// Name - display name, e.g. "Climate Basics".
	Name string

	// Description - one-line summary shown on the category card.
	Description string

	// Icon - emoji or icon key for the UI.
	Icon string

	// SortOrder - position on the learning path (ascending).
	SortOrder int

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// Lesson is one unit of learning content inside a category.
type Lesson struct {
	// ID - stable numeric identifier.
	ID int

	// CategoryID - owning category.
	CategoryID int

	// Title - display title.
	Title string

	// Description - short summary.
	Description string

	// Content - lesson body (markdown).
	Content string

	// Difficulty - grading for the UI.
	Difficulty Difficulty

	// XPReward - XP granted on first completion.
	XPReward int

	// DurationMinutes - estimated reading time.
	DurationMinutes int

	// SortOrder - position within the category (ascending).
	SortOrder int

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// Validation errors.
var (
	ErrInvalidLessonTitle = errors.New("invalid lesson title")
	ErrInvalidXPReward    = errors.New("invalid xp reward: must be non-negative")
	ErrInvalidDifficulty  = errors.New("invalid difficulty")
)

// NewLesson creates a lesson with field validation.
func NewLesson(id, categoryID int, title string, difficulty Difficulty, xpReward, sortOrder int) (*Lesson, error) {
	if title == "" {
		return nil, ErrInvalidLessonTitle
	}
	if !difficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}
	if xpReward < 0 {
		return nil, ErrInvalidXPReward
	}

	return &Lesson{
		ID:         id,
		CategoryID: categoryID,
		Title:      title,
		Difficulty: difficulty,
		XPReward:   xpReward,
		SortOrder:  sortOrder,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEQUENTIAL UNLOCK
// Lessons unlock in order within a category; a category unlocks once every
// lesson of the previous category is completed. The first lesson of the
// first category is always open.
// ══════════════════════════════════════════════════════════════════════════════

// Path is an ordered view over the full catalog, built once per request
// from the repository's lessons and categories.
type Path struct {
	categories []Category
	byCategory map[int][]Lesson
	lessons    map[int]Lesson
}

// NewPath builds a Path. Categories and lessons are sorted by SortOrder
// (ID as tiebreak) so unlock decisions are deterministic.
func NewPath(categories []Category, lessons []Lesson) *Path {
	p := &Path{
		categories: make([]Category, len(categories)),
		byCategory: make(map[int][]Lesson),
		lessons:    make(map[int]Lesson, len(lessons)),
	}

	copy(p.categories, categories)
	sort.Slice(p.categories, func(i, j int) bool {
		if p.categories[i].SortOrder != p.categories[j].SortOrder {
			return p.categories[i].SortOrder < p.categories[j].SortOrder
		}
		return p.categories[i].ID < p.categories[j].ID
	})

	for _, l := range lessons {
		p.byCategory[l.CategoryID] = append(p.byCategory[l.CategoryID], l)
		p.lessons[l.ID] = l
	}
	for id := range p.byCategory {
		ls := p.byCategory[id]
		sort.Slice(ls, func(i, j int) bool {
			if ls[i].SortOrder != ls[j].SortOrder {
				return ls[i].SortOrder < ls[j].SortOrder
			}
			return ls[i].ID < ls[j].ID
		})
	}

	return p
}

// Categories returns the categories in path order.
func (p *Path) Categories() []Category {
	return p.categories
}

// LessonsIn returns the lessons of a category in path order.
func (p *Path) LessonsIn(categoryID int) []Lesson {
	return p.byCategory[categoryID]
}

// Lesson looks up a lesson by ID.
func (p *Path) Lesson(id int) (Lesson, bool) {
	l, ok := p.lessons[id]
	return l, ok
}

// IsCategoryUnlocked reports whether the category is open for a learner
// with the given completed-lesson set.
func (p *Path) IsCategoryUnlocked(categoryID int, completed map[int]struct{}) bool {
	idx := -1
	for i, c := range p.categories {
		if c.ID == categoryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if idx == 0 {
		return true
	}

	// Every lesson of the previous category must be completed.
	prev := p.categories[idx-1]
	for _, l := range p.byCategory[prev.ID] {
		if _, ok := completed[l.ID]; !ok {
			return false
		}
	}
	return true
}

// IsLessonUnlocked reports whether the lesson is open for a learner with
// the given completed-lesson set. A lesson is open when its category is
// unlocked and the preceding lesson in the category is completed.
// Completed lessons stay open for revisiting.
func (p *Path) IsLessonUnlocked(lessonID int, completed map[int]struct{}) bool {
	l, ok := p.lessons[lessonID]
	if !ok {
		return false
	}
	if _, done := completed[lessonID]; done {
		return true
	}
	if !p.IsCategoryUnlocked(l.CategoryID, completed) {
		return false
	}

	siblings := p.byCategory[l.CategoryID]
	for i, s := range siblings {
		if s.ID != lessonID {
			continue
		}
		if i == 0 {
			return true
		}
		_, prevDone := completed[siblings[i-1].ID]
		return prevDone
	}
	return false
}

// IsCategoryCompleted reports whether every lesson of the category is in
// the completed set. A category with no lessons is never "completed".
func (p *Path) IsCategoryCompleted(categoryID int, completed map[int]struct{}) bool {
	ls := p.byCategory[categoryID]
	if len(ls) == 0 {
		return false
	}
	for _, l := range ls {
		if _, ok := completed[l.ID]; !ok {
			return false
		}
	}
	return true
}

// IsPathCompleted reports whether every category on the path is completed.
func (p *Path) IsPathCompleted(completed map[int]struct{}) bool {
	if len(p.categories) == 0 {
		return false
	}
	for _, c := range p.categories {
		if !p.IsCategoryCompleted(c.ID, completed) {
			return false
		}
	}
	return true
}

// LessonIDsByCategory returns a category-ID -> lesson-ID-set view, used
// by the achievement evaluator.
func (p *Path) LessonIDsByCategory() map[int][]int {
	out := make(map[int][]int, len(p.byCategory))
	for catID, ls := range p.byCategory {
		ids := make([]int, 0, len(ls))
		for _, l := range ls {
			ids = append(ids, l.ID)
		}
		out[catID] = ids
	}
	return out
}
