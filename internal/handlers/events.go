package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/internal/storage"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type EventsHandler struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	Push    *services.PushService
}

func NewEventsHandler(db *gorm.DB, store storage.ObjectStore, push *services.PushService) *EventsHandler {
	return &EventsHandler{DB: db, Storage: store, Push: push}
}

// parseDailySummaries decodes the dailySummaries form field, sent as a
// JSON array alongside the multipart file parts.
func parseDailySummaries(raw string) ([]models.DailySummary, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var summaries []models.DailySummary
	if err := json.Unmarshal([]byte(raw), &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (h *EventsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	startDate, err := time.Parse(time.RFC3339, c.FormValue("startDate"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "startDate must be RFC3339")
	}
	endDate, err := time.Parse(time.RFC3339, c.FormValue("endDate"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "endDate must be RFC3339")
	}
	if endDate.Before(startDate) {
		return utils.Error(c, fiber.StatusBadRequest, "endDate must not be before startDate")
	}
	summaries, err := parseDailySummaries(c.FormValue("dailySummaries"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "dailySummaries must be a JSON array")
	}

	event := models.Event{
		Title:          title,
		Description:    strings.TrimSpace(c.FormValue("description")),
		StartDate:      startDate,
		EndDate:        endDate,
		Location:       strings.TrimSpace(c.FormValue("location")),
		DailySummaries: summaries,
		CreatedByID:    currentUser.ID,
	}

	if imageHeader, err := c.FormFile("image"); err == nil {
		imageFile, ferr := storeUpload(c, h.Storage, imageHeader, "events", maxImageSize, []string{"image/"})
		if ferr != nil {
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		event.ImageURL = &imageFile.URL
		event.ImagePath = &imageFile.Path
	}

	if err := h.DB.Create(&event).Error; err != nil {
		if event.ImagePath != nil {
			_ = h.Storage.Delete(c.Context(), *event.ImagePath)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating event")
	}

	logger.InfoWithUser(currentUser.ID.String(), "event_created", map[string]interface{}{
		"event_id": event.ID.String(),
		"title":    event.Title,
	})

	h.Push.BroadcastAsync(services.Broadcast{
		Title: "Nouvel événement",
		Body:  event.Title,
		Data:  map[string]string{"type": "event", "id": event.ID.String()},
	})

	return utils.Success(c, fiber.StatusCreated, event)
}

func (h *EventsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Event{})
	if c.Query("upcoming") == "true" {
		query = query.Where("end_date >= ?", time.Now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting events")
	}

	var events []models.Event
	if err := utils.ApplyPagination(query.Preload("Creator").Order("start_date DESC"), p).Find(&events).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	return utils.Paginated(c, events, p.Page, p.Limit, total)
}

func (h *EventsHandler) Get(c *fiber.Ctx) error {
	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.Preload("Creator").First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	return utils.Success(c, fiber.StatusOK, event)
}

func (h *EventsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	if !canMutate(currentUser, event.CreatedByID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "event_update",
			"target_id": event.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the creator or an admin can modify this event")
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(c.FormValue("title")); title != "" {
		updates["title"] = title
	}
	if description := c.FormValue("description"); description != "" {
		updates["description"] = strings.TrimSpace(description)
	}
	if location := c.FormValue("location"); location != "" {
		updates["location"] = strings.TrimSpace(location)
	}
	startDateVal := event.StartDate
	if raw := c.FormValue("startDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "startDate must be RFC3339")
		}
		startDateVal = parsed
		updates["start_date"] = parsed
	}
	endDate := event.EndDate
	if raw := c.FormValue("endDate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "endDate must be RFC3339")
		}
		endDate = parsed
		updates["end_date"] = parsed
	}
	if endDate.Before(startDateVal) {
		return utils.Error(c, fiber.StatusBadRequest, "endDate must not be before startDate")
	}
	if raw := c.FormValue("dailySummaries"); raw != "" {
		summaries, err := parseDailySummaries(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "dailySummaries must be a JSON array")
		}
		encoded, _ := json.Marshal(summaries)
		updates["daily_summaries"] = string(encoded)
	}

	var replacedPaths []string
	if imageHeader, err := c.FormFile("image"); err == nil {
		imageFile, ferr := storeUpload(c, h.Storage, imageHeader, "events", maxImageSize, []string{"image/"})
		if ferr != nil {
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		if event.ImagePath != nil {
			replacedPaths = append(replacedPaths, *event.ImagePath)
		}
		updates["image_url"] = imageFile.URL
		updates["image_path"] = imageFile.Path
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Event{}).Where("id = ?", event.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating event")
	}

	for _, path := range replacedPaths {
		_ = h.Storage.Delete(c.Context(), path)
	}

	var updated models.Event
	if err := h.DB.Preload("Creator").First(&updated, "id = ?", event.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated event")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *EventsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	if !canMutate(currentUser, event.CreatedByID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "event_delete",
			"target_id": event.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the creator or an admin can delete this event")
	}

	if err := h.DB.Delete(&models.Event{}, "id = ?", event.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting event")
	}

	if event.ImagePath != nil {
		_ = h.Storage.Delete(c.Context(), *event.ImagePath)
	}

	logger.InfoWithUser(currentUser.ID.String(), "event_deleted", map[string]interface{}{
		"event_id": event.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "event deleted"})
}
