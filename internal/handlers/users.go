package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/config"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB     *gorm.DB
	Mail   *services.MailService
	InviteCfg config.InviteConfig
}

func NewUsersHandler(db *gorm.DB, mail *services.MailService, invite config.InviteConfig) *UsersHandler {
	return &UsersHandler{DB: db, Mail: mail, InviteCfg: invite}
}

type inviteRequest struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

// Invite creates an account in the invited state (random temporary
// credential, opaque token, needsPasswordReset=true) and emails the
// reset deep link. What happens when the email fails is governed by
// the configured invite policy.
func (h *UsersHandler) Invite(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req inviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	displayName := strings.TrimSpace(req.DisplayName)
	if email == "" || !strings.Contains(email, "@") {
		return utils.Error(c, fiber.StatusBadRequest, "a valid email is required")
	}
	if displayName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "displayName is required")
	}

	role := models.UserRole(strings.TrimSpace(req.Role))
	if role != models.UserRolePasteur && role != models.UserRoleMedia {
		return utils.Error(c, fiber.StatusBadRequest, "role must be pasteur or media")
	}

	var existing int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking email")
	}
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "user with this email already exists")
	}

	tempPassword, err := utils.GenerateOpaqueToken(16)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating credentials")
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating credentials")
	}

	token, err := utils.GenerateOpaqueToken(32)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating invite token")
	}
	expiresAt := time.Now().Add(h.InviteCfg.TokenTTL)

	user := models.User{
		Email:                email,
		PasswordHash:         hash,
		DisplayName:          displayName,
		Role:                 role,
		InviteToken:          &token,
		InviteTokenExpiresAt: &expiresAt,
		NeedsPasswordReset:   true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	if err := h.Mail.SendInvitation(&user, token); err != nil {
		if h.InviteCfg.EmailPolicy == config.InvitePolicyRollback {
			if delErr := h.DB.Delete(&models.User{}, "id = ?", user.ID).Error; delErr != nil {
				logger.Error("invite_rollback_failed", delErr, map[string]interface{}{
					"user_id": user.ID.String(),
				})
			}
			return utils.Error(c, fiber.StatusBadGateway, "failed sending invitation email")
		}
		// continue policy: account exists, admin can resend later
		logger.WarnWithUser(currentUser.ID.String(), "invite_email_deferred", map[string]interface{}{
			"invited_email": email,
		})
	}

	logger.InfoWithUser(currentUser.ID.String(), "user_invited", map[string]interface{}{
		"invited_email": email,
		"role":          role,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"userId": user.ID})
}

// ResendInvite regenerates the token (overwriting the previous one,
// which implicitly invalidates it) and re-sends the email.
func (h *UsersHandler) ResendInvite(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}
	if !user.NeedsPasswordReset {
		return utils.Error(c, fiber.StatusBadRequest, "user has already activated their account")
	}

	token, err := utils.GenerateOpaqueToken(32)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating invite token")
	}
	expiresAt := time.Now().Add(h.InviteCfg.TokenTTL)

	updates := map[string]interface{}{
		"invite_token":            token,
		"invite_token_expires_at": expiresAt,
	}
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving invite token")
	}

	if err := h.Mail.SendInvitation(&user, token); err != nil {
		return utils.Error(c, fiber.StatusBadGateway, "failed sending invitation email")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "invitation sent"})
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.User{})
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		if !models.ValidUserRole(role) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role filter")
		}
		query = query.Where("role = ?", role)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", searchValue, searchValue)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole is idempotent: setting the same role twice yields the same
// final state.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !models.ValidUserRole(strings.TrimSpace(req.Role)) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("role", req.Role).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating role")
	}

	user.Role = models.UserRole(req.Role)
	return utils.Success(c, fiber.StatusOK, user)
}

// Delete removes the account record. Content uploaded by the user keeps
// its uploader id; cascading cleanup is intentionally not performed.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	if userID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if err := h.DB.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	logger.InfoWithUser(currentUser.ID.String(), "user_deleted", map[string]interface{}{
		"deleted_user_id": user.ID.String(),
		"email":           user.Email,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}
