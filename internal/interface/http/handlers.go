package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/application/command"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/application/query"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "ecoquest-learning-hub",
		"status":  "running",
		"uptime":  s.Uptime().String(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	type componentStatus struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	components := make(map[string]componentStatus, len(s.deps.HealthTargets))
	healthy := true

	for name, target := range s.deps.HealthTargets {
		if err := target.Ping(ctx); err != nil {
			healthy = false
			components[name] = componentStatus{Status: "down", Error: err.Error()}
		} else {
			components[name] = componentStatus{Status: "up"}
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": components,
		"uptime":     s.Uptime().String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.RegisterLearnerHandler.Handle(r.Context(), command.RegisterLearnerCommand{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.AuthenticateLearnerHandler.Handle(r.Context(), command.AuthenticateLearnerCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, command.ErrInvalidCredentials) {
			writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS ENGINE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetProgressHandler.Handle(r.Context(), query.GetProgressQuery{
		LearnerID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type completeLessonRequest struct {
	Score            int `json:"score"`
	TimeSpentSeconds int `json:"time_spent_seconds"`
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, err := strconv.Atoi(r.PathValue("lessonID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_lesson_id", "Lesson ID must be an integer")
		return
	}

	var req completeLessonRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.CompleteLessonHandler.Handle(r.Context(), command.CompleteLessonCommand{
		LearnerID:        r.PathValue("id"),
		LessonID:         lessonID,
		Score:            req.Score,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Timestamp:        time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, command.ErrLessonLocked) {
			writeJSONError(w, http.StatusConflict, "lesson_locked", "Complete the previous lessons first")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type quizAttemptRequest struct {
	GameMode         string `json:"game_mode"`
	Score            int    `json:"score"`
	TotalQuestions   int    `json:"total_questions"`
	CorrectAnswers   int    `json:"correct_answers"`
	TimeTakenSeconds int    `json:"time_taken_seconds"`
}

func (s *Server) handleRecordQuizAttempt(w http.ResponseWriter, r *http.Request) {
	var req quizAttemptRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	result, err := s.deps.RecordQuizAttemptHandler.Handle(r.Context(), command.RecordQuizAttemptCommand{
		LearnerID:        r.PathValue("id"),
		GameMode:         command.GameMode(req.GameMode),
		Score:            req.Score,
		TotalQuestions:   req.TotalQuestions,
		CorrectAnswers:   req.CorrectAnswers,
		TimeTakenSeconds: req.TimeTakenSeconds,
		Timestamp:        time.Now().UTC(),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetQuizHistory(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetQuizHistoryHandler.Handle(r.Context(), query.GetQuizHistoryQuery{
		LearnerID: r.PathValue("id"),
		Limit:     getQueryParamInt(r, "limit", 20),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetAchievementsHandler.Handle(r.Context(), query.GetAchievementsQuery{
		LearnerID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")

	type rankResponse struct {
		LearnerID string `json:"learner_id"`
		Rank      int    `json:"rank"`
		Ranked    bool   `json:"ranked"`
	}

	resp := rankResponse{LearnerID: learnerID}

	if s.deps.LeaderboardCache != nil {
		if rank, err := s.deps.LeaderboardCache.GetRank(r.Context(), learnerID); err == nil {
			resp.Rank = rank
			resp.Ranked = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	limit := getQueryParamInt(r, "limit", 20)

	notifications := s.deps.Notifications.RecentFor(learnerID, limit)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"learner_id":    learnerID,
		"notifications": notifications,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Limit: getQueryParamInt(r, "limit", 20),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		s.logger.Error("request failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func decodeBody(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dest)
}
