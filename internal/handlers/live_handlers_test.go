package handlers

import (
	"net/http"
	"testing"

	"github.com/parolevive/backend/internal/models"
)

func TestLiveEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)
	_, memberToken := createTestUser(t, env.db, "member@test.com", "password123", models.UserRoleUser)

	t.Run("GET /api/live initializes the offline default", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/live", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["isLive"] != false {
			t.Fatalf("expected isLive=false on first read, got %v", data["isLive"])
		}
	})

	t.Run("PUT /api/live is admin only", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/live", map[string]any{
			"isLive": true,
		}, authHeaders(memberToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	})

	t.Run("PUT /api/live requires a url when going live", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/live", map[string]any{
			"isLive": true,
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "liveYoutubeUrl is required when going live")
	})

	t.Run("PUT /api/live goes live and broadcasts once", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/live", map[string]any{
			"isLive":         true,
			"liveYoutubeUrl": "https://youtube.com/watch?v=abc123",
			"liveTitle":      "Culte du dimanche",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["isLive"] != true {
			t.Fatalf("expected isLive=true, got %v", data["isLive"])
		}

		// a second update while already live must not broadcast again
		resp = performJSONRequest(t, env.app, http.MethodPut, "/api/live", map[string]any{
			"isLive":         true,
			"liveYoutubeUrl": "https://youtube.com/watch?v=abc123",
			"liveTitle":      "Culte du dimanche (suite)",
		}, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		env.flushPush()
		messages := env.sender.sent()
		if len(messages) != 1 {
			t.Fatalf("expected exactly 1 live broadcast, got %d", len(messages))
		}
		if messages[0].Data["type"] != "live" {
			t.Fatalf("expected a live notification, got %+v", messages[0].Data)
		}
	})

	t.Run("GET /api/live reflects the live state", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/live", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["isLive"] != true || data["liveYoutubeUrl"] != "https://youtube.com/watch?v=abc123" {
			t.Fatalf("unexpected live state: %+v", data)
		}
	})
}
