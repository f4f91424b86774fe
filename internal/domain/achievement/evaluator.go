package achievement

import (
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// Runs after every progress-changing action. Pure: given a snapshot of the
// learner's state and the already-earned set, it returns the definitions
// newly satisfied, in ID order. The caller grants them and re-checks the
// level afterwards, since XP bonuses can cross a level boundary.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is the learner state a criterion can see. Built by the caller
// from the progress record and the catalog path.
type Snapshot struct {
	// LessonsCompleted - count of distinct completed lessons.
	LessonsCompleted int

	// CurrentStreak - consecutive-day streak as of now.
	CurrentStreak int

	// CompletedLessonIDs - the completed-lesson set.
	CompletedLessonIDs map[int]struct{}

	// LessonIDsByCategory - category id -> all lesson ids in that category.
	LessonIDsByCategory map[int][]int
}

// Matches reports whether the criterion is satisfied by the snapshot.
func (c Criteria) Matches(snap Snapshot) bool {
	switch c.Type {
	case CriteriaLessonsCompleted:
		return snap.LessonsCompleted >= c.Count
	case CriteriaStreak:
		return snap.CurrentStreak >= c.Count
	case CriteriaCategoryCompleted:
		return snap.categoryDone(c.CategoryID)
	case CriteriaAllCategoriesCompleted:
		if len(snap.LessonIDsByCategory) == 0 {
			return false
		}
		for catID := range snap.LessonIDsByCategory {
			if !snap.categoryDone(catID) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (s Snapshot) categoryDone(categoryID int) bool {
	ids, ok := s.LessonIDsByCategory[categoryID]
	if !ok || len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, done := s.CompletedLessonIDs[id]; !done {
			return false
		}
	}
	return true
}

// Evaluator holds the full definition set and answers "what did this
// learner just earn". Definitions are kept sorted by ID so the result
// order is deterministic.
type Evaluator struct {
	definitions []Definition
}

// NewEvaluator creates an evaluator over the given definitions.
func NewEvaluator(definitions []Definition) *Evaluator {
	defs := make([]Definition, len(definitions))
	copy(defs, definitions)
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return &Evaluator{definitions: defs}
}

// Definitions returns all definitions in ID order.
func (e *Evaluator) Definitions() []Definition {
	return e.definitions
}

// Definition looks up one definition by ID.
func (e *Evaluator) Definition(id int) (Definition, bool) {
	for _, d := range e.definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Evaluate returns the definitions whose criteria the snapshot satisfies
// and that are not in the already-earned set, in ID order. Multiple
// achievements can unlock from a single action.
func (e *Evaluator) Evaluate(snap Snapshot, earned map[int]struct{}) []Definition {
	var newly []Definition
	for _, d := range e.definitions {
		if _, has := earned[d.ID]; has {
			continue
		}
		if d.Criteria.Matches(snap) {
			newly = append(newly, d)
		}
	}
	return newly
}
