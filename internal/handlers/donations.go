package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/models"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
	"gorm.io/gorm"
)

type DonationsHandler struct {
	DB *gorm.DB
}

func NewDonationsHandler(db *gorm.DB) *DonationsHandler {
	return &DonationsHandler{DB: db}
}

type createDonationRequest struct {
	Amount        float64 `json:"amount"`
	Type          string  `json:"type"`
	PaymentMethod string  `json:"paymentMethod"`
	IsAnonymous   bool    `json:"isAnonymous"`
	Reference     string  `json:"reference"`
}

// Create records a donation. The route uses optional auth: an
// authenticated, non-anonymous donation is linked to the donor.
func (h *DonationsHandler) Create(c *fiber.Ctx) error {
	var req createDonationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Amount <= 0 {
		return utils.Error(c, fiber.StatusBadRequest, "amount must be positive")
	}
	if !models.ValidDonationType(req.Type) {
		return utils.Error(c, fiber.StatusBadRequest, "type must be oneTime or monthly")
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return utils.Error(c, fiber.StatusBadRequest, "paymentMethod must be creditCard, paypal, tmoney or flooz")
	}

	donation := models.Donation{
		Amount:        req.Amount,
		Type:          models.DonationType(req.Type),
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		IsAnonymous:   req.IsAnonymous,
		Reference:     strings.TrimSpace(req.Reference),
	}
	if currentUser := middleware.GetCurrentUser(c); currentUser != nil && !req.IsAnonymous {
		donation.UserID = &currentUser.ID
	}

	if err := h.DB.Create(&donation).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed recording donation")
	}

	logger.Info("donation_recorded", map[string]interface{}{
		"donation_id":    donation.ID.String(),
		"amount":         donation.Amount,
		"type":           donation.Type,
		"payment_method": donation.PaymentMethod,
		"anonymous":      donation.IsAnonymous,
	})

	return utils.Success(c, fiber.StatusCreated, donation)
}

// List is admin only.
func (h *DonationsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Donation{})
	if donationType := strings.TrimSpace(c.Query("type")); donationType != "" {
		if !models.ValidDonationType(donationType) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid type filter")
		}
		query = query.Where("type = ?", donationType)
	}
	if method := strings.TrimSpace(c.Query("paymentMethod")); method != "" {
		if !models.ValidPaymentMethod(method) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid paymentMethod filter")
		}
		query = query.Where("payment_method = ?", method)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting donations")
	}

	var donations []models.Donation
	if err := utils.ApplyPagination(query.Preload("Donor").Order("created_at DESC"), p).Find(&donations).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing donations")
	}

	return utils.Paginated(c, donations, p.Page, p.Limit, total)
}

type donationSummary struct {
	Total         int64            `json:"total"`
	TotalAmount   float64          `json:"totalAmount"`
	AverageAmount float64          `json:"averageAmount"`
	ByType        map[string]int64 `json:"byType"`
	ByMethod      map[string]int64 `json:"byMethod"`
}

// Summary aggregates all recorded donations. Admin only.
func (h *DonationsHandler) Summary(c *fiber.Ctx) error {
	var donations []models.Donation
	if err := h.DB.Find(&donations).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading donations")
	}

	summary := donationSummary{
		Total:    int64(len(donations)),
		ByType:   make(map[string]int64),
		ByMethod: make(map[string]int64),
	}
	for _, d := range donations {
		summary.TotalAmount += d.Amount
		summary.ByType[string(d.Type)]++
		summary.ByMethod[string(d.PaymentMethod)]++
	}
	if summary.Total > 0 {
		summary.AverageAmount = summary.TotalAmount / float64(summary.Total)
	}

	return utils.Success(c, fiber.StatusOK, summary)
}

// Delete removes a donation record. Admin only.
func (h *DonationsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid donation id")
	}

	var donation models.Donation
	if err := h.DB.First(&donation, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "donation not found")
	}

	if err := h.DB.Delete(&donation).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting donation")
	}

	logger.Info("donation_deleted", map[string]interface{}{
		"donation_id": donation.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// Mine lists the authenticated user's own non-anonymous donations.
func (h *DonationsHandler) Mine(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)
	query := h.DB.Model(&models.Donation{}).Where("user_id = ?", currentUser.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting donations")
	}

	var donations []models.Donation
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&donations).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing donations")
	}

	return utils.Paginated(c, donations, p.Page, p.Limit, total)
}
