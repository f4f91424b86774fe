// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Learner events
	EventLearnerRegistered EventType = "learner.registered"

	// Progress events
	EventXPGained        EventType = "progress.xp_gained"
	EventLevelUp         EventType = "progress.level_up"
	EventLessonCompleted EventType = "progress.lesson_completed"
	EventQuizAttempted   EventType = "progress.quiz_attempted"
	EventStreakExtended  EventType = "progress.streak_extended"
	EventStreakBroken    EventType = "progress.streak_broken"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"

	// Leaderboard events
	EventLeaderboardUpdated EventType = "leaderboard.updated"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// LearnerRegisteredEvent is emitted when a new learner signs up.
type LearnerRegisteredEvent struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Payload implements Event interface.
func (e LearnerRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":        e.Email,
		"display_name": e.DisplayName,
	}
}

// NewLearnerRegisteredEvent creates a new LearnerRegisteredEvent.
func NewLearnerRegisteredEvent(learnerID, email, displayName string) LearnerRegisteredEvent {
	return LearnerRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventLearnerRegistered, learnerID),
		Email:       email,
		DisplayName: displayName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a learner gains XP.
type XPGainedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	Source    string `json:"source"` // e.g., "lesson_completion", "quiz_attempt", "achievement_bonus"
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"source":     e.Source,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(learnerID string, amount, newTotal int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, learnerID),
		LearnerID: learnerID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a learner's level increases.
type LevelUpEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(learnerID string, oldLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, learnerID),
		LearnerID: learnerID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// LessonCompletedEvent is emitted when a learner completes a lesson for the first time.
type LessonCompletedEvent struct {
	BaseEvent
	LearnerID  string `json:"learner_id"`
	LessonID   int    `json:"lesson_id"`
	CategoryID int    `json:"category_id"`
	XPEarned   int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":  e.LearnerID,
		"lesson_id":   e.LessonID,
		"category_id": e.CategoryID,
		"xp_earned":   e.XPEarned,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(learnerID string, lessonID, categoryID, xpEarned int) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:  NewBaseEvent(EventLessonCompleted, learnerID),
		LearnerID:  learnerID,
		LessonID:   lessonID,
		CategoryID: categoryID,
		XPEarned:   xpEarned,
	}
}

// QuizAttemptedEvent is emitted for every recorded quiz attempt.
type QuizAttemptedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	GameMode  string `json:"game_mode"`
	Score     int    `json:"score"`
	XPEarned  int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e QuizAttemptedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"game_mode":  e.GameMode,
		"score":      e.Score,
		"xp_earned":  e.XPEarned,
	}
}

// NewQuizAttemptedEvent creates a new QuizAttemptedEvent.
func NewQuizAttemptedEvent(learnerID, gameMode string, score, xpEarned int) QuizAttemptedEvent {
	return QuizAttemptedEvent{
		BaseEvent: NewBaseEvent(EventQuizAttempted, learnerID),
		LearnerID: learnerID,
		GameMode:  gameMode,
		Score:     score,
		XPEarned:  xpEarned,
	}
}

// StreakExtendedEvent is emitted when a learner's streak grows.
type StreakExtendedEvent struct {
	BaseEvent
	LearnerID     string `json:"learner_id"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":     e.LearnerID,
		"current_streak": e.CurrentStreak,
		"best_streak":    e.BestStreak,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(learnerID string, currentStreak, bestStreak int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:     NewBaseEvent(EventStreakExtended, learnerID),
		LearnerID:     learnerID,
		CurrentStreak: currentStreak,
		BestStreak:    bestStreak,
	}
}

// StreakBrokenEvent is emitted when a learner's streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	LearnerID      string `json:"learner_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":      e.LearnerID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(learnerID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, learnerID),
		LearnerID:      learnerID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when a learner unlocks an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	LearnerID       string `json:"learner_id"`
	AchievementID   int    `json:"achievement_id"`
	AchievementName string `json:"achievement_name"`
	XPBonus         int    `json:"xp_bonus"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":       e.LearnerID,
		"achievement_id":   e.AchievementID,
		"achievement_name": e.AchievementName,
		"xp_bonus":         e.XPBonus,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(learnerID string, achievementID int, name string, xpBonus int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:       NewBaseEvent(EventAchievementUnlocked, learnerID),
		LearnerID:       learnerID,
		AchievementID:   achievementID,
		AchievementName: name,
		XPBonus:         xpBonus,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber registers handlers for domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
