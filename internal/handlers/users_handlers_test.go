package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/parolevive/backend/internal/config"
	"github.com/parolevive/backend/internal/models"
)

func TestUserInvitation(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)
	_, memberToken := createTestUser(t, env.db, "member@test.com", "password123", models.UserRoleUser)

	t.Run("POST /api/users/invite creates the account and emails the link", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/invite", map[string]any{
			"email":       "pasteur@test.com",
			"displayName": "Jean Dupont",
			"role":        "pasteur",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)

		data := body["data"].(map[string]any)
		if data["userId"].(string) == "" {
			t.Fatalf("expected the created user id in the response")
		}

		var invited models.User
		if err := env.db.First(&invited, "email = ?", "pasteur@test.com").Error; err != nil {
			t.Fatalf("failed loading invited user: %v", err)
		}
		if invited.Role != models.UserRolePasteur {
			t.Fatalf("expected role pasteur, got %s", invited.Role)
		}
		if !invited.NeedsPasswordReset {
			t.Fatalf("expected needsPasswordReset=true on an invited account")
		}
		if invited.InviteToken == nil || *invited.InviteToken == "" {
			t.Fatalf("expected an invite token to be stored")
		}
		if invited.InviteTokenExpiresAt == nil {
			t.Fatalf("expected an invite token expiry to be stored")
		}

		emails := env.mail.sentEmails()
		if len(emails) != 1 {
			t.Fatalf("expected 1 invitation email, got %d", len(emails))
		}
		if emails[0].To != "pasteur@test.com" {
			t.Fatalf("expected the email sent to the invitee, got %s", emails[0].To)
		}
		if !strings.Contains(emails[0].Body, "/reset-password?token="+*invited.InviteToken) {
			t.Fatalf("expected the email body to carry the reset link")
		}
	})

	t.Run("POST /api/users/invite conflicts on duplicate email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/invite", map[string]any{
			"email":       "pasteur@test.com",
			"displayName": "Jean Dupont",
			"role":        "media",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertEnvelopeError(t, body, "user with this email already exists")
	})

	t.Run("POST /api/users/invite rejects non-invitable roles", func(t *testing.T) {
		for _, role := range []string{"admin", "user", "bishop"} {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/invite", map[string]any{
				"email":       "other@test.com",
				"displayName": "Other",
				"role":        role,
			}, authHeaders(adminToken))
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusBadRequest)
			assertEnvelopeError(t, body, "role must be pasteur or media")
		}
	})

	t.Run("POST /api/users/invite is admin only", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/invite", map[string]any{
			"email":       "sneaky@test.com",
			"displayName": "Sneaky",
			"role":        "media",
		}, authHeaders(memberToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	})

	t.Run("email failure under the continue policy still creates the account", func(t *testing.T) {
		env.mail.setFail(true)
		defer env.mail.setFail(false)

		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/invite", map[string]any{
			"email":       "deferred@test.com",
			"displayName": "Deferred",
			"role":        "media",
		}, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusCreated)
		resp.Body.Close()

		var count int64
		env.db.Model(&models.User{}).Where("email = ?", "deferred@test.com").Count(&count)
		if count != 1 {
			t.Fatalf("expected the account to survive the email failure")
		}
	})

	t.Run("POST /api/users/:id/resend-invite rotates the token", func(t *testing.T) {
		var invited models.User
		if err := env.db.First(&invited, "email = ?", "pasteur@test.com").Error; err != nil {
			t.Fatalf("failed loading invited user: %v", err)
		}
		oldToken := *invited.InviteToken

		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/"+invited.ID.String()+"/resend-invite", nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		var reloaded models.User
		if err := env.db.First(&reloaded, "id = ?", invited.ID).Error; err != nil {
			t.Fatalf("failed reloading invited user: %v", err)
		}
		if *reloaded.InviteToken == oldToken {
			t.Fatalf("expected a fresh invite token after resend")
		}

		// the superseded token no longer matches any account
		resp = performJSONRequest(t, env.app, http.MethodPost, "/api/auth/reset-password", map[string]any{
			"token":       oldToken,
			"newPassword": "brand-new-password",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "invalid or already used token")
	})

	t.Run("POST /api/users/:id/resend-invite rejects activated accounts", func(t *testing.T) {
		activated, _ := createTestUser(t, env.db, "activated@test.com", "password123", models.UserRoleMedia)

		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/"+activated.ID.String()+"/resend-invite", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "user has already activated their account")
	})
}

func TestUserInvitationRollbackPolicy(t *testing.T) {
	env := newTestEnv(t, testEnvOptions{invitePolicy: config.InvitePolicyRollback})
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)

	env.mail.setFail(true)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/users/invite", map[string]any{
		"email":       "rolledback@test.com",
		"displayName": "Rolled Back",
		"role":        "media",
	}, authHeaders(adminToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusBadGateway)
	assertEnvelopeError(t, body, "failed sending invitation email")

	var count int64
	env.db.Model(&models.User{}).Where("email = ?", "rolledback@test.com").Count(&count)
	if count != 0 {
		t.Fatalf("expected the account to be rolled back after the email failure")
	}
}

func TestUserManagement(t *testing.T) {
	env := setupTestEnv(t)
	admin, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)
	target, _ := createTestUser(t, env.db, "target@test.com", "password123", models.UserRoleUser)

	t.Run("GET /api/users/:id returns the user", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/"+target.ID.String(), nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["email"] != "target@test.com" {
			t.Fatalf("expected target user, got %v", data["email"])
		}
	})

	t.Run("GET /api/users/ filters by role", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/?role=admin", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected exactly the admin, got %d users", len(data))
		}
	})

	t.Run("GET /api/users/ searches by display name and email", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/?search=TARGET", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected 1 match, got %d", len(data))
		}
	})

	t.Run("PUT /api/users/:id/role changes the role", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/users/"+target.ID.String()+"/role", map[string]any{
			"role": "media",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["role"] != "media" {
			t.Fatalf("expected role media, got %v", data["role"])
		}
	})

	t.Run("PUT /api/users/:id/role is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			resp := performJSONRequest(t, env.app, http.MethodPut, "/api/users/"+target.ID.String()+"/role", map[string]any{
				"role": "media",
			}, authHeaders(adminToken))
			assertStatus(t, resp, http.StatusOK)
			resp.Body.Close()
		}

		var reloaded models.User
		if err := env.db.First(&reloaded, "id = ?", target.ID).Error; err != nil {
			t.Fatalf("failed reloading user: %v", err)
		}
		if reloaded.Role != models.UserRoleMedia {
			t.Fatalf("expected role media after repeated updates, got %s", reloaded.Role)
		}
	})

	t.Run("PUT /api/users/:id/role rejects unknown roles", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/users/"+target.ID.String()+"/role", map[string]any{
			"role": "superadmin",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "invalid role")
	})

	t.Run("DELETE /api/users/:id refuses self-deletion", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/users/"+admin.ID.String(), nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "cannot delete your own account")
	})

	t.Run("DELETE /api/users/:id removes the account", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/users/"+target.ID.String(), nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		var count int64
		env.db.Model(&models.User{}).Where("id = ?", target.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected the user row to be gone")
		}
	})
}

func TestUserListPagination(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)

	for i := 0; i < 24; i++ {
		createTestUser(t, env.db, fmt.Sprintf("member-%02d@test.com", i), "password123", models.UserRoleUser)
	}

	collectIDs := func(t *testing.T, path string, expectedLen int) map[string]bool {
		t.Helper()
		resp := performRequest(t, env.app, http.MethodGet, path, nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := body["data"].([]any)
		if len(data) != expectedLen {
			t.Fatalf("expected %d users on %s, got %d", expectedLen, path, len(data))
		}

		pagination := body["pagination"].(map[string]any)
		if total := pagination["total"].(float64); total != 25 {
			t.Fatalf("expected total 25, got %v", total)
		}

		ids := map[string]bool{}
		for _, entry := range data {
			ids[entry.(map[string]any)["id"].(string)] = true
		}
		return ids
	}

	firstPage := collectIDs(t, "/api/users/", 20)
	secondPage := collectIDs(t, "/api/users/?page=2", 5)

	for id := range secondPage {
		if firstPage[id] {
			t.Fatalf("user %s appeared on both pages", id)
		}
	}
}
