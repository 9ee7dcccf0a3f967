package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB   *gorm.DB
	Push *services.PushService
}

func NewAuthHandler(db *gorm.DB, push *services.PushService) *AuthHandler {
	return &AuthHandler{DB: db, Push: push}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed", map[string]interface{}{
			"email": email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "login_success", map[string]interface{}{
		"role": user.Role,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  user,
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword completes an invitation: it matches the opaque invite
// token against the single profile still flagged needsPasswordReset,
// rewrites the credential and clears the token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	token := strings.TrimSpace(req.Token)
	if token == "" || req.NewPassword == "" {
		return utils.Error(c, fiber.StatusBadRequest, "token and newPassword are required")
	}
	if len(req.NewPassword) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	var user models.User
	if err := h.DB.First(&user, "invite_token = ? AND needs_password_reset = ?", token, true).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "invalid or already used token")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if user.InviteTokenExpiresAt != nil && time.Now().After(*user.InviteTokenExpiresAt) {
		return utils.Error(c, fiber.StatusBadRequest, "invite token expired")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	updates := map[string]interface{}{
		"password_hash":           hash,
		"invite_token":            nil,
		"invite_token_expires_at": nil,
		"needs_password_reset":    false,
	}
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating password")
	}

	logger.InfoWithUser(user.ID.String(), "password_reset_completed", map[string]interface{}{
		"email": user.Email,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "password updated"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, currentUser)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.NewPassword) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	if !utils.CheckPassword(req.CurrentPassword, currentUser.PasswordHash) {
		return utils.Error(c, fiber.StatusUnauthorized, "current password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("password_hash", hash).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating password")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "password updated"})
}

type fcmTokenRequest struct {
	Token string `json:"token"`
}

// UpdateFCMToken persists the caller's device token and subscribes it
// to the broadcast topic.
func (h *AuthHandler) UpdateFCMToken(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req fcmTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		return utils.Error(c, fiber.StatusBadRequest, "token is required")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("fcm_token", token).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving token")
	}

	// Topic subscription is best effort; the token is stored either way.
	_ = h.Push.SubscribeToken(c.Context(), token)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "token registered"})
}
