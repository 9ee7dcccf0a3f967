package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type LiveHandler struct {
	DB   *gorm.DB
	Push *services.PushService
}

func NewLiveHandler(db *gorm.DB, push *services.PushService) *LiveHandler {
	return &LiveHandler{DB: db, Push: push}
}

// loadOrInitSettings returns the singleton row, creating the default
// offline row on first read.
func (h *LiveHandler) loadOrInitSettings() (*models.LiveSetting, error) {
	var settings models.LiveSetting
	err := h.DB.Order("created_at ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	settings = models.LiveSetting{IsLive: false}
	if err := h.DB.Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (h *LiveHandler) Get(c *fiber.Ctx) error {
	settings, err := h.loadOrInitSettings()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading live settings")
	}
	return utils.Success(c, fiber.StatusOK, settings)
}

type updateLiveRequest struct {
	IsLive         *bool   `json:"isLive"`
	LiveYoutubeURL *string `json:"liveYoutubeUrl"`
	LiveTitle      *string `json:"liveTitle"`
}

func (h *LiveHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateLiveRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.IsLive == nil && req.LiveYoutubeURL == nil && req.LiveTitle == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}
	if req.IsLive != nil && *req.IsLive {
		url := ""
		if req.LiveYoutubeURL != nil {
			url = strings.TrimSpace(*req.LiveYoutubeURL)
		}
		if url == "" {
			return utils.Error(c, fiber.StatusBadRequest, "liveYoutubeUrl is required when going live")
		}
	}

	settings, err := h.loadOrInitSettings()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading live settings")
	}

	wasLive := settings.IsLive

	updates := map[string]interface{}{"updated_by_id": currentUser.ID}
	if req.IsLive != nil {
		updates["is_live"] = *req.IsLive
	}
	if req.LiveYoutubeURL != nil {
		updates["live_youtube_url"] = strings.TrimSpace(*req.LiveYoutubeURL)
	}
	if req.LiveTitle != nil {
		updates["live_title"] = strings.TrimSpace(*req.LiveTitle)
	}

	if err := h.DB.Model(&models.LiveSetting{}).Where("id = ?", settings.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating live settings")
	}

	var updated models.LiveSetting
	if err := h.DB.First(&updated, "id = ?", settings.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading live settings")
	}

	logger.InfoWithUser(currentUser.ID.String(), "live_settings_updated", map[string]interface{}{
		"is_live": updated.IsLive,
	})

	// notify only on the offline-to-live transition
	if !wasLive && updated.IsLive {
		title := updated.LiveTitle
		if title == "" {
			title = "Culte en direct"
		}
		h.Push.BroadcastAsync(services.Broadcast{
			Title: "En direct maintenant",
			Body:  title,
			Data:  map[string]string{"type": "live", "url": updated.LiveYoutubeURL},
		})
	}

	return utils.Success(c, fiber.StatusOK, updated)
}
