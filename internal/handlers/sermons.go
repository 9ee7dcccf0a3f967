package handlers

import (
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

type SermonsHandler struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	Push    *services.PushService
}

func NewSermonsHandler(db *gorm.DB, store storage.ObjectStore, push *services.PushService) *SermonsHandler {
	return &SermonsHandler{DB: db, Storage: store, Push: push}
}

func (h *SermonsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	date, err := time.Parse(time.RFC3339, c.FormValue("date"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "date must be RFC3339")
	}

	imageHeader, err := c.FormFile("image")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "image file is required")
	}
	pdfHeader, err := c.FormFile("pdf")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "pdf file is required")
	}

	imageFile, ferr := storeUpload(c, h.Storage, imageHeader, "sermons/images", maxImageSize, []string{"image/"})
	if ferr != nil {
		return utils.Error(c, ferr.Code, ferr.Message)
	}
	pdfFile, ferr := storeUpload(c, h.Storage, pdfHeader, "sermons/pdfs", maxPDFSize, []string{"application/pdf"})
	if ferr != nil {
		_ = h.Storage.Delete(c.Context(), imageFile.Path)
		return utils.Error(c, ferr.Code, ferr.Message)
	}

	sermon := models.Sermon{
		Title:        title,
		Date:         date,
		ImageURL:     imageFile.URL,
		ImagePath:    imageFile.Path,
		PDFURL:       pdfFile.URL,
		PDFPath:      pdfFile.Path,
		UploadedByID: currentUser.ID,
	}
	if err := h.DB.Create(&sermon).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), imageFile.Path)
		_ = h.Storage.Delete(c.Context(), pdfFile.Path)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating sermon")
	}

	logger.InfoWithUser(currentUser.ID.String(), "sermon_created", map[string]interface{}{
		"sermon_id": sermon.ID.String(),
		"title":     sermon.Title,
	})

	h.Push.BroadcastAsync(services.Broadcast{
		Title: "Nouveau sermon disponible",
		Body:  sermon.Title,
		Data:  map[string]string{"type": "sermon", "id": sermon.ID.String()},
	})

	return utils.Success(c, fiber.StatusCreated, sermon)
}

func (h *SermonsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Sermon{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting sermons")
	}

	var sermons []models.Sermon
	if err := utils.ApplyPagination(query.Preload("Uploader").Order("date DESC"), p).Find(&sermons).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing sermons")
	}

	return utils.Paginated(c, sermons, p.Page, p.Limit, total)
}

func (h *SermonsHandler) Get(c *fiber.Ctx) error {
	sermonID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid sermon id")
	}

	var sermon models.Sermon
	if err := h.DB.Preload("Uploader").First(&sermon, "id = ?", sermonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "sermon not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading sermon")
	}

	return utils.Success(c, fiber.StatusOK, sermon)
}

func (h *SermonsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	sermonID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid sermon id")
	}

	var sermon models.Sermon
	if err := h.DB.First(&sermon, "id = ?", sermonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "sermon not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading sermon")
	}

	if !canMutate(currentUser, sermon.UploadedByID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "sermon_update",
			"target_id": sermon.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the uploader or an admin can modify this sermon")
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(c.FormValue("title")); title != "" {
		updates["title"] = title
	}
	if raw := c.FormValue("date"); raw != "" {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "date must be RFC3339")
		}
		updates["date"] = date
	}

	var replacedPaths []string
	if imageHeader, err := c.FormFile("image"); err == nil {
		imageFile, ferr := storeUpload(c, h.Storage, imageHeader, "sermons/images", maxImageSize, []string{"image/"})
		if ferr != nil {
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		replacedPaths = append(replacedPaths, sermon.ImagePath)
		updates["image_url"] = imageFile.URL
		updates["image_path"] = imageFile.Path
	}
	if pdfHeader, err := c.FormFile("pdf"); err == nil {
		pdfFile, ferr := storeUpload(c, h.Storage, pdfHeader, "sermons/pdfs", maxPDFSize, []string{"application/pdf"})
		if ferr != nil {
			return utils.Error(c, ferr.Code, ferr.Message)
		}
		replacedPaths = append(replacedPaths, sermon.PDFPath)
		updates["pdf_url"] = pdfFile.URL
		updates["pdf_path"] = pdfFile.Path
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Sermon{}).Where("id = ?", sermon.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating sermon")
	}

	for _, path := range replacedPaths {
		_ = h.Storage.Delete(c.Context(), path)
	}

	var updated models.Sermon
	if err := h.DB.Preload("Uploader").First(&updated, "id = ?", sermon.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated sermon")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *SermonsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	sermonID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid sermon id")
	}

	var sermon models.Sermon
	if err := h.DB.First(&sermon, "id = ?", sermonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "sermon not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading sermon")
	}

	if !canMutate(currentUser, sermon.UploadedByID) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":    "sermon_delete",
			"target_id": sermon.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "only the uploader or an admin can delete this sermon")
	}

	if err := h.DB.Delete(&models.Sermon{}, "id = ?", sermon.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting sermon")
	}

	_ = h.Storage.Delete(c.Context(), sermon.ImagePath)
	_ = h.Storage.Delete(c.Context(), sermon.PDFPath)

	logger.InfoWithUser(currentUser.ID.String(), "sermon_deleted", map[string]interface{}{
		"sermon_id": sermon.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "sermon deleted"})
}

func (h *SermonsHandler) IncrementDownloads(c *fiber.Ctx) error {
	sermonID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid sermon id")
	}

	result := h.DB.Model(&models.Sermon{}).Where("id = ?", sermonID).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1))
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating counter")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "sermon not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "downloads incremented"})
}
