package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/internal/storage"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type AudiosHandler struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	Push    *services.PushService
}

func NewAudiosHandler(db *gorm.DB, store storage.ObjectStore, push *services.PushService) *AudiosHandler {
	return &AudiosHandler{DB: db, Storage: store, Push: push}
}

func (h *AudiosHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	category := strings.TrimSpace(c.FormValue("category"))
	if !models.ValidAudioCategory(category) {
		return utils.Error(c, fiber.StatusBadRequest, "category must be emission, podcast or teaching")
	}

	audioHeader, err := c.FormFile("audio")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "audio file is required")
	}

	audioFile, ferr := storeUpload(c, h.Storage, audioHeader, "audios", maxAudioSize, []string{"audio/"})
	if ferr != nil {
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	audio := models.Audio{
		Title:        title,
		Description:  strings.TrimSpace(c.FormValue("description")),
		Category:     models.AudioCategory(category),
		AudioURL:     audioFile.URL,
		AudioPath:    audioFile.Path,
		UploadedByID: currentUser.ID,
	}

	if thumbHeader, err := c.FormFile("thumbnail"); err == nil {
		thumbFile, ferr := storeUpload(c, h.Storage, thumbHeader, "audios/thumbnails", maxImageSize, []string{"image/"})
		if ferr != nil {
			_ = h.Storage.Delete(c.Context(), audioFile.Path)
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		audio.ThumbnailURL = &thumbFile.URL
		audio.ThumbnailPath = &thumbFile.Path
	}

	if err := h.DB.Create(&audio).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), audio.AudioPath)
		if audio.ThumbnailPath != nil {
			_ = h.Storage.Delete(c.Context(), *audio.ThumbnailPath)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating audio")
	}

	logger.InfoWithUser(currentUser.ID.String(), "audio_created", map[string]interface{}{
		"audio_id": audio.ID.String(),
		"title":    audio.Title,
		"category": audio.Category,
	})

	h.Push.BroadcastAsync(services.Broadcast{
		Title: "Nouvel audio disponible",
		Body:  audio.Title,
		Data:  map[string]string{"type": "audio", "id": audio.ID.String()},
	})

	return utils.Success(c, fiber.StatusCreated, audio)
}

func (h *AudiosHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Audio{})
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		if !models.ValidAudioCategory(category) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category filter")
		}
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting audios")
	}

	var audios []models.Audio
	if err := utils.ApplyPagination(query.Preload("Uploader").Order("created_at DESC"), p).Find(&audios).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing audios")
	}

	return utils.Paginated(c, audios, p.Page, p.Limit, total)
}

func (h *AudiosHandler) Get(c *fiber.Ctx) error {
	audioID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid audio id")
	}

	var audio models.Audio
	if err := h.DB.Preload("Uploader").First(&audio, "id = ?", audioID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "audio not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audio")
	}

	return utils.Success(c, fiber.StatusOK, audio)
}

func (h *AudiosHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	audioID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid audio id")
	}

	var audio models.Audio
	if err := h.DB.First(&audio, "id = ?", audioID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "audio not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audio")
	}

	if !canMutate(currentUser, audio.UploadedByID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "audio_update",
			"target_id": audio.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the uploader or an admin can modify this audio")
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(c.FormValue("title")); title != "" {
		updates["title"] = title
	}
	if description := c.FormValue("description"); description != "" {
		updates["description"] = strings.TrimSpace(description)
	}
	if category := strings.TrimSpace(c.FormValue("category")); category != "" {
		if !models.ValidAudioCategory(category) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category")
		}
		updates["category"] = category
	}

	var replacedPaths []string
	if thumbHeader, err := c.FormFile("thumbnail"); err == nil {
		thumbFile, ferr := storeUpload(c, h.Storage, thumbHeader, "audios/thumbnails", maxImageSize, []string{"image/"})
		if ferr != nil {
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		if audio.ThumbnailPath != nil {
			replacedPaths = append(replacedPaths, *audio.ThumbnailPath)
		}
		updates["thumbnail_url"] = thumbFile.URL
		updates["thumbnail_path"] = thumbFile.Path
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Audio{}).Where("id = ?", audio.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating audio")
	}

	// replaced objects are removed best effort once the row is updated
	for _, path := range replacedPaths {
		_ = h.Storage.Delete(c.Context(), path)
	}

	var updated models.Audio
	if err := h.DB.Preload("Uploader").First(&updated, "id = ?", audio.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated audio")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *AudiosHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	audioID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid audio id")
	}

	var audio models.Audio
	if err := h.DB.First(&audio, "id = ?", audioID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "audio not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audio")
	}

	if !canMutate(currentUser, audio.UploadedByID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "audio_delete",
			"target_id": audio.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the uploader or an admin can delete this audio")
	}

	if err := h.DB.Delete(&models.Audio{}, "id = ?", audio.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting audio")
	}

	_ = h.Storage.Delete(c.Context(), audio.AudioPath)
	if audio.ThumbnailPath != nil {
		_ = h.Storage.Delete(c.Context(), *audio.ThumbnailPath)
	}

	logger.InfoWithUser(currentUser.ID.String(), "audio_deleted", map[string]interface{}{
		"audio_id": audio.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "audio deleted"})
}

// IncrementPlays is unauthenticated; the store performs the increment
// atomically so concurrent calls never lose counts.
func (h *AudiosHandler) IncrementPlays(c *fiber.Ctx) error {
	return h.incrementCounter(c, "plays")
}

func (h *AudiosHandler) IncrementDownloads(c *fiber.Ctx) error {
	return h.incrementCounter(c, "downloads")
}

func (h *AudiosHandler) incrementCounter(c *fiber.Ctx, column string) error {
	audioID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid audio id")
	}

	result := h.DB.Model(&models.Audio{}).Where("id = ?", audioID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating counter")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "audio not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": column + " incremented"})
}
