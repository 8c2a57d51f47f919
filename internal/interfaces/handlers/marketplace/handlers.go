package marketplace

import (
	"strconv"

	mktsvc "brickvault-backend/internal/application/marketplace"
	"brickvault-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *mktsvc.Service
}

// GET /api/v1/marketplace/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	summary, err := h.Service.Summary(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Marketplace summary fetched successfully", summary, nil)
}

// GET /api/v1/marketplace/activity?days=30
func (h *Handlers) Activity(c *fiber.Ctx) error {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			return response.Error(c, "days must be between 1 and 365", 400, nil)
		}
		days = parsed
	}
	activity, err := h.Service.Activity(c.Context(), days)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Marketplace activity fetched successfully", activity, nil)
}

// GET /api/v1/marketplace/sellers/:seller_id/stats
func (h *Handlers) SellerStats(c *fiber.Ctx) error {
	sellerID, err := uuid.Parse(c.Params("seller_id"))
	if err != nil {
		return response.Error(c, "Invalid seller_id format", 400, nil)
	}
	stats, err := h.Service.SellerStats(c.Context(), sellerID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Seller stats fetched successfully", stats, nil)
}
