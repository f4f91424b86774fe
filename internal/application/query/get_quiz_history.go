package query

import (
	"context"
	"errors"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET QUIZ HISTORY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetQuizHistoryQuery contains the parameters for a history lookup.
type GetQuizHistoryQuery struct {
	// LearnerID - whose attempts to fetch.
	LearnerID string

	// Limit - number of attempts (default 20, max 100).
	Limit int
}

// Validate validates and normalizes the query.
func (q *GetQuizHistoryQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_quiz_history: learner_id is required")
	}
	if q.Limit < 0 {
		return errors.New("get_quiz_history: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// QuizAttemptDTO is one history row.
type QuizAttemptDTO struct {
	GameMode         string    `json:"game_mode"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	CorrectAnswers   int       `json:"correct_answers"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	XPEarned         int       `json:"xp_earned"`
	PlayedAt         time.Time `json:"played_at"`
}

// GetQuizHistoryResult is the history view, newest first.
type GetQuizHistoryResult struct {
	Attempts    []QuizAttemptDTO `json:"attempts"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// GetQuizHistoryHandler handles the GetQuizHistoryQuery.
type GetQuizHistoryHandler struct {
	progressRepo learner.ProgressRepository
}

// NewGetQuizHistoryHandler creates a new GetQuizHistoryHandler.
func NewGetQuizHistoryHandler(progressRepo learner.ProgressRepository) *GetQuizHistoryHandler {
	return &GetQuizHistoryHandler{progressRepo: progressRepo}
}

// Handle executes the quiz history query.
func (h *GetQuizHistoryHandler) Handle(ctx context.Context, query GetQuizHistoryQuery) (*GetQuizHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetQuizHistory", shared.ErrValidation, "invalid query", err)
	}

	attempts, err := h.progressRepo.QuizAttempts(ctx, query.LearnerID, query.Limit)
	if err != nil {
		return nil, err
	}

	result := &GetQuizHistoryResult{
		Attempts:    make([]QuizAttemptDTO, 0, len(attempts)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, a := range attempts {
		result.Attempts = append(result.Attempts, QuizAttemptDTO{
			GameMode:         a.GameMode,
			Score:            a.Score,
			TotalQuestions:   a.TotalQuestions,
			CorrectAnswers:   a.CorrectAnswers,
			TimeTakenSeconds: a.TimeTakenSeconds,
			XPEarned:         int(a.XPEarned),
			PlayedAt:         a.CreatedAt,
		})
	}

	return result, nil
}
