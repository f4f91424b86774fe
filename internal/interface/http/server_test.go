package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/service"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubLeaderboardCache struct {
	ranks map[string]int
}

func (c *stubLeaderboardCache) GetTop(context.Context, int) ([]learner.LeaderboardRow, error) {
	return nil, nil
}

func (c *stubLeaderboardCache) GetRank(_ context.Context, learnerID string) (int, error) {
	rank, ok := c.ranks[learnerID]
	if !ok {
		return 0, errors.New("not ranked")
	}
	return rank, nil
}

func newTestServer(deps Dependencies) *Server {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0 // keep middleware out of the way
	return NewServer(cfg, deps)
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(Dependencies{
		HealthTargets: map[string]Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{},
		},
	})

	rec := doRequest(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
}

func TestServer_HealthDegraded(t *testing.T) {
	s := newTestServer(Dependencies{
		HealthTargets: map[string]Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{err: errors.New("connection refused")},
		},
	})

	rec := doRequest(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "degraded", data["status"])

	components := data["components"].(map[string]interface{})
	redis := components["redis"].(map[string]interface{})
	assert.Equal(t, "down", redis["status"])
	assert.Contains(t, redis["error"], "connection refused")
}

func TestServer_UnknownPathIs404(t *testing.T) {
	s := newTestServer(Dependencies{})

	rec := doRequest(s, http.MethodGet, "/api/v2/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestServer_RequestIDHeader(t *testing.T) {
	s := newTestServer(Dependencies{})

	rec := doRequest(s, http.MethodGet, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_GetRank(t *testing.T) {
	s := newTestServer(Dependencies{
		LeaderboardCache: &stubLeaderboardCache{ranks: map[string]int{"learner-1": 3}},
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/learners/learner-1/rank")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["rank"])
	assert.Equal(t, true, data["ranked"])

	// Unranked learners still get a 200 with ranked=false.
	rec = doRequest(s, http.MethodGet, "/api/v1/learners/ghost/rank")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, false, data["ranked"])
}

func TestServer_GetRankWithoutCache(t *testing.T) {
	s := newTestServer(Dependencies{})

	rec := doRequest(s, http.MethodGet, "/api/v1/learners/learner-1/rank")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, false, data["ranked"])
}

func TestServer_GetNotifications(t *testing.T) {
	notifications := service.NewNotificationService(nil)
	notifications.PushStreakReminder("learner-1", 4)

	s := newTestServer(Dependencies{Notifications: notifications})

	rec := doRequest(s, http.MethodGet, "/api/v1/learners/learner-1/notifications")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]interface{})
	list := data["notifications"].([]interface{})
	require.Len(t, list, 1)

	first := list[0].(map[string]interface{})
	assert.Equal(t, "streak", first["kind"])
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(Dependencies{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"))
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per client")
}
