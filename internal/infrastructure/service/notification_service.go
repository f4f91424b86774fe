package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION SERVICE
// Subscribes to domain events and turns them into the short in-app toast
// messages the frontend shows ("Lesson Complete! +50 XP"). Messages are
// kept in a per-learner ring buffer and served through the API; nothing
// is persisted.
// ══════════════════════════════════════════════════════════════════════════════

// NotificationKind classifies a notification for frontend styling.
type NotificationKind string

const (
	KindLessonComplete NotificationKind = "lesson_complete"
	KindQuizComplete   NotificationKind = "quiz_complete"
	KindLevelUp        NotificationKind = "level_up"
	KindStreak         NotificationKind = "streak"
	KindAchievement    NotificationKind = "achievement"
	KindWelcome        NotificationKind = "welcome"
)

// Notification is a single in-app message for a learner.
type Notification struct {
	LearnerID string           `json:"learner_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// maxPerLearner caps the per-learner buffer; older messages are dropped.
const maxPerLearner = 50

// NotificationService builds the in-app notification feed from domain events.
type NotificationService struct {
	mu     sync.RWMutex
	feed   map[string][]Notification
	logger *logger.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(log *logger.Logger) *NotificationService {
	if log == nil {
		log = logger.Default()
	}
	return &NotificationService{
		feed:   make(map[string][]Notification),
		logger: log,
	}
}

// RegisterHandlers subscribes the service to the events it renders.
func (s *NotificationService) RegisterHandlers(bus shared.EventSubscriber) error {
	subscriptions := []shared.EventType{
		shared.EventLearnerRegistered,
		shared.EventLessonCompleted,
		shared.EventQuizAttempted,
		shared.EventLevelUp,
		shared.EventStreakExtended,
		shared.EventStreakBroken,
		shared.EventAchievementUnlocked,
	}

	for _, eventType := range subscriptions {
		if err := bus.Subscribe(eventType, s.handleEvent); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}

// PushStreakReminder queues a streak-expiry reminder. Called by the
// streak watch job rather than driven by an event.
func (s *NotificationService) PushStreakReminder(learnerID string, currentStreak int) {
	s.push(Notification{
		LearnerID: learnerID,
		Kind:      KindStreak,
		Message:   fmt.Sprintf("Your %d-day streak expires at midnight. Complete a lesson to keep it!", currentStreak),
		CreatedAt: time.Now().UTC(),
	})
}

// RecentFor returns a learner's most recent notifications, newest first.
func (s *NotificationService) RecentFor(learnerID string, limit int) []Notification {
	if limit <= 0 {
		limit = maxPerLearner
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.feed[learnerID]
	if len(buf) == 0 {
		return nil
	}

	// Buffer is append-ordered oldest first; walk backwards.
	out := make([]Notification, 0, limit)
	for i := len(buf) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, buf[i])
	}
	return out
}

// handleEvent formats one event into a notification.
func (s *NotificationService) handleEvent(event shared.Event) error {
	var (
		kind    NotificationKind
		message string
	)

	switch e := event.(type) {
	case shared.LearnerRegisteredEvent:
		kind = KindWelcome
		message = fmt.Sprintf("Welcome to EcoQuest, %s!", e.DisplayName)

	case shared.LessonCompletedEvent:
		kind = KindLessonComplete
		message = fmt.Sprintf("Lesson Complete! +%d XP", e.XPEarned)

	case shared.QuizAttemptedEvent:
		kind = KindQuizComplete
		message = fmt.Sprintf("Nice run! You scored %d and earned +%d XP", e.Score, e.XPEarned)

	case shared.LevelUpEvent:
		kind = KindLevelUp
		message = fmt.Sprintf("Level Up! You reached level %d", e.NewLevel)

	case shared.StreakExtendedEvent:
		kind = KindStreak
		message = fmt.Sprintf("%d-day streak! Keep it going", e.CurrentStreak)

	case shared.StreakBrokenEvent:
		kind = KindStreak
		message = fmt.Sprintf("Your %d-day streak ended. Start a new one today!", e.PreviousStreak)

	case shared.AchievementUnlockedEvent:
		kind = KindAchievement
		message = fmt.Sprintf("Achievement Unlocked: %s (+%d XP)", e.AchievementName, e.XPBonus)

	default:
		return nil
	}

	s.push(Notification{
		LearnerID: event.AggregateID(),
		Kind:      kind,
		Message:   message,
		CreatedAt: event.OccurredAt(),
	})

	s.logger.Debug("notification queued",
		logger.LearnerID(event.AggregateID()),
		logger.String("kind", string(kind)),
	)

	return nil
}

func (s *NotificationService) push(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.feed[n.LearnerID], n)
	if len(buf) > maxPerLearner {
		buf = buf[len(buf)-maxPerLearner:]
	}
	s.feed[n.LearnerID] = buf
}
