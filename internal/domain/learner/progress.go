package learner

import (
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS LEDGER
// The ProgressRecord is the single source of truth for a learner's cumulative
// learning state: XP, level, streak, completed lessons, earned achievements.
// It is mutated only through its methods, and the mutations of one logical
// action are persisted atomically by the repository.
// ══════════════════════════════════════════════════════════════════════════════

// LessonStatus describes a learner's state on a single lesson.
type LessonStatus string

const (
	// LessonNotStarted - the lesson has not been opened.
	LessonNotStarted LessonStatus = "not_started"
	// LessonInProgress - the lesson has been opened but not finished.
	LessonInProgress LessonStatus = "in_progress"
	// LessonCompleted - the lesson has been finished at least once.
	LessonCompleted LessonStatus = "completed"
)

// IsValid checks that the status is one of the known values.
func (s LessonStatus) IsValid() bool {
	switch s {
	case LessonNotStarted, LessonInProgress, LessonCompleted:
		return true
	default:
		return false
	}
}

// LessonProgress is a learner's per-lesson record. Score and time are
// overwritten on every completion; the completion itself is permanent.
type LessonProgress struct {
	// LearnerID - owner of the record.
	LearnerID string

	// LessonID - the lesson this record tracks.
	LessonID int

	// Status - current state of the lesson.
	Status LessonStatus

	// Score - last reported score (0-100 by convention, not range-checked).
	Score int

	// TimeSpentSeconds - last reported time spent on the lesson.
	TimeSpentSeconds int

	// CompletedAt - first completion time (zero if never completed).
	CompletedAt time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time
}

// QuizAttempt is one recorded quiz/game attempt. Attempts are append-only
// history; every attempt may grant XP.
type QuizAttempt struct {
	// LearnerID - owner of the attempt.
	LearnerID string

	// GameMode - which game produced the attempt (quiz, carbon-calculator, ...).
	GameMode string

	// Score - final score of the attempt.
	Score int

	// TotalQuestions - number of questions asked.
	TotalQuestions int

	// CorrectAnswers - number answered correctly.
	CorrectAnswers int

	// TimeTakenSeconds - duration of the attempt.
	TimeTakenSeconds int

	// XPEarned - XP granted for this attempt.
	XPEarned XP

	// CreatedAt - when the attempt was recorded.
	CreatedAt time.Time
}

// QuizAttemptXP computes the XP granted for a quiz attempt.
// Formula: floor(score / 10). Unlike lesson rewards this is granted on
// every attempt - quiz XP is repeatable.
func QuizAttemptXP(score int) XP {
	if score < 0 {
		return 0
	}
	return XP(score / 10)
}

// EarnedAchievement marks one unlocked achievement. Created exactly once
// per (learner, achievement) pair and never removed.
type EarnedAchievement struct {
	// AchievementID - the unlocked achievement.
	AchievementID int

	// EarnedAt - when it was unlocked.
	EarnedAt time.Time
}

// ProgressRecord holds a learner's full cumulative state.
type ProgressRecord struct {
	// LearnerID - owner of the record.
	LearnerID string

	// TotalXP - lifetime XP. Monotonically non-decreasing.
	TotalXP XP

	// CurrentStreak - consecutive active days including the last activity day.
	CurrentStreak int

	// BestStreak - highest streak ever reached.
	BestStreak int

	// LastActivityDate - UTC calendar date of the most recent activity.
	LastActivityDate time.Time

	// UpdatedAt - last modification time.
	UpdatedAt time.Time

	// completions - per-lesson records keyed by lesson ID.
	completions map[int]*LessonProgress

	// earned - unlocked achievements keyed by achievement ID.
	earned map[int]time.Time

	// Pending changes accumulated since the record was loaded. The
	// repository persists these together with the record in one
	// transaction, then calls ClearPending.
	touchedLessons  map[int]bool
	newAttempts     []QuizAttempt
	newAchievements []EarnedAchievement
}

// NewProgressRecord creates a zeroed progress record for a new learner.
// A brand-new learner is level 1 with no streak and no completions.
func NewProgressRecord(learnerID string) *ProgressRecord {
	return &ProgressRecord{
		LearnerID:   learnerID,
		TotalXP:     0,
		UpdatedAt:   time.Now().UTC(),
		completions: make(map[int]*LessonProgress),
		earned:      make(map[int]time.Time),
	}
}

// RestoreProgressRecord rebuilds a record from persisted state.
// Used by the persistence layer only.
func RestoreProgressRecord(
	learnerID string,
	totalXP XP,
	currentStreak, bestStreak int,
	lastActivityDate, updatedAt time.Time,
	completions []LessonProgress,
	earned []EarnedAchievement,
) *ProgressRecord {
	rec := &ProgressRecord{
		LearnerID:        learnerID,
		TotalXP:          totalXP,
		CurrentStreak:    currentStreak,
		BestStreak:       bestStreak,
		LastActivityDate: lastActivityDate,
		UpdatedAt:        updatedAt,
		completions:      make(map[int]*LessonProgress, len(completions)),
		earned:           make(map[int]time.Time, len(earned)),
	}
	for i := range completions {
		c := completions[i]
		rec.completions[c.LessonID] = &c
	}
	for _, a := range earned {
		rec.earned[a.AchievementID] = a.EarnedAt
	}
	return rec
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived state
// ─────────────────────────────────────────────────────────────────────────────

// CurrentLevel returns the level derived from total XP.
func (r *ProgressRecord) CurrentLevel() Level {
	return CalculateLevel(r.TotalXP)
}

// LessonsCompletedCount returns how many distinct lessons are completed.
func (r *ProgressRecord) LessonsCompletedCount() int {
	count := 0
	for _, c := range r.completions {
		if c.Status == LessonCompleted {
			count++
		}
	}
	return count
}

// AchievementsEarnedCount returns how many achievements are unlocked.
func (r *ProgressRecord) AchievementsEarnedCount() int {
	return len(r.earned)
}

// HasCompletedLesson reports whether the lesson is in the completed set.
func (r *ProgressRecord) HasCompletedLesson(lessonID int) bool {
	c, ok := r.completions[lessonID]
	return ok && c.Status == LessonCompleted
}

// HasAchievement reports whether the achievement is already earned.
func (r *ProgressRecord) HasAchievement(achievementID int) bool {
	_, ok := r.earned[achievementID]
	return ok
}

// CompletedLessonIDs returns the completed lesson IDs in ascending order.
func (r *ProgressRecord) CompletedLessonIDs() []int {
	ids := make([]int, 0, len(r.completions))
	for id, c := range r.completions {
		if c.Status == LessonCompleted {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// CompletedLessonIDSet returns the completed lesson IDs as a set.
func (r *ProgressRecord) CompletedLessonIDSet() map[int]struct{} {
	set := make(map[int]struct{}, len(r.completions))
	for id, c := range r.completions {
		if c.Status == LessonCompleted {
			set[id] = struct{}{}
		}
	}
	return set
}

// EarnedAchievementIDs returns the earned achievement IDs in ascending order.
func (r *ProgressRecord) EarnedAchievementIDs() []int {
	ids := make([]int, 0, len(r.earned))
	for id := range r.earned {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LessonProgressFor returns the per-lesson record, if any.
func (r *ProgressRecord) LessonProgressFor(lessonID int) (LessonProgress, bool) {
	c, ok := r.completions[lessonID]
	if !ok {
		return LessonProgress{}, false
	}
	return *c, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// CompleteLesson records a lesson completion. The score and time fields are
// re-applied on every call (idempotent upsert), but the XP reward is granted
// only on the first completion of a given lesson.
// Returns the XP gained (zero on re-completion) and whether this was the
// first completion.
func (r *ProgressRecord) CompleteLesson(lessonID int, xpReward XP, score, timeSpentSeconds int, now time.Time) (XP, bool) {
	now = now.UTC()

	entry, exists := r.completions[lessonID]
	first := !exists || entry.Status != LessonCompleted

	if !exists {
		entry = &LessonProgress{
			LearnerID: r.LearnerID,
			LessonID:  lessonID,
		}
		r.completions[lessonID] = entry
	}

	entry.Status = LessonCompleted
	entry.Score = score
	entry.TimeSpentSeconds = timeSpentSeconds
	entry.UpdatedAt = now
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = now
	}

	r.markLessonTouched(lessonID)

	var gained XP
	if first {
		gained = xpReward
		r.TotalXP = r.TotalXP.Add(xpReward)
	}

	r.UpdatedAt = now
	return gained, first
}

// RecordQuizAttempt appends a quiz attempt and grants its XP.
// Every attempt grants XP - this is deliberately not idempotent.
func (r *ProgressRecord) RecordQuizAttempt(gameMode string, score, totalQuestions, correctAnswers, timeTakenSeconds int, now time.Time) QuizAttempt {
	now = now.UTC()
	xp := QuizAttemptXP(score)

	attempt := QuizAttempt{
		LearnerID:        r.LearnerID,
		GameMode:         gameMode,
		Score:            score,
		TotalQuestions:   totalQuestions,
		CorrectAnswers:   correctAnswers,
		TimeTakenSeconds: timeTakenSeconds,
		XPEarned:         xp,
		CreatedAt:        now,
	}

	r.newAttempts = append(r.newAttempts, attempt)
	r.TotalXP = r.TotalXP.Add(xp)
	r.UpdatedAt = now

	return attempt
}

// GrantAchievement unlocks an achievement and adds its XP bonus.
// Returns false without mutating anything when it is already earned.
func (r *ProgressRecord) GrantAchievement(achievementID int, xpBonus XP, now time.Time) bool {
	if r.HasAchievement(achievementID) {
		return false
	}

	now = now.UTC()
	r.earned[achievementID] = now
	r.newAchievements = append(r.newAchievements, EarnedAchievement{
		AchievementID: achievementID,
		EarnedAt:      now,
	})
	r.TotalXP = r.TotalXP.Add(xpBonus)
	r.UpdatedAt = now

	return true
}

// RecordActivity applies today's activity to the streak and returns the
// streak transition for event publication.
func (r *ProgressRecord) RecordActivity(now time.Time) StreakUpdate {
	update := UpdateStreak(r.LastActivityDate, now, r.CurrentStreak, r.BestStreak)

	r.CurrentStreak = update.CurrentStreak
	r.BestStreak = update.BestStreak
	r.LastActivityDate = update.LastActivityDate
	r.UpdatedAt = now.UTC()

	return update
}

// ─────────────────────────────────────────────────────────────────────────────
// Pending changes (persistence contract)
// ─────────────────────────────────────────────────────────────────────────────

func (r *ProgressRecord) markLessonTouched(lessonID int) {
	if r.touchedLessons == nil {
		r.touchedLessons = make(map[int]bool)
	}
	r.touchedLessons[lessonID] = true
}

// TouchedLessonProgress returns the per-lesson records modified since load,
// in lesson-ID order for deterministic persistence.
func (r *ProgressRecord) TouchedLessonProgress() []LessonProgress {
	ids := make([]int, 0, len(r.touchedLessons))
	for id := range r.touchedLessons {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]LessonProgress, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.completions[id]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// NewQuizAttempts returns quiz attempts recorded since load.
func (r *ProgressRecord) NewQuizAttempts() []QuizAttempt {
	return r.newAttempts
}

// NewlyEarnedAchievements returns achievements unlocked since load.
func (r *ProgressRecord) NewlyEarnedAchievements() []EarnedAchievement {
	return r.newAchievements
}

// ClearPending resets change tracking after a successful persist.
func (r *ProgressRecord) ClearPending() {
	r.touchedLessons = nil
	r.newAttempts = nil
	r.newAchievements = nil
}
