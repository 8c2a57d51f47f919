package holdings

import (
	"context"

	holdsvc "brickvault-backend/internal/application/holdings"
	"brickvault-backend/internal/domain"
	"brickvault-backend/internal/middleware"
	"brickvault-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *holdsvc.Service
}

// GET /api/v1/holdings/view-holdings
func (h *Handlers) ViewHoldings(c *fiber.Ctx) error {
	holderID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	holdings, err := h.Service.ViewHoldings(c.Context(), holderID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Holdings fetched successfully", holdings, nil)
}

// GET /api/v1/holdings/view-holding/:property_id
func (h *Handlers) ViewHolding(c *fiber.Ctx) error {
	holderID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	propertyID, err := uuid.Parse(c.Params("property_id"))
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	holding, err := h.Service.GetHolding(c.Context(), propertyID, holderID)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Holding fetched successfully", holding, nil)
}

// POST /api/v1/holdings/credit — admin issuance: tokens enter the system here.
func (h *Handlers) Credit(c *fiber.Ctx) error {
	var body struct {
		PropertyID string `json:"property_id"`
		HolderID   string `json:"holder_id"`
		Quantity   int64  `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	propertyID, err := uuid.Parse(body.PropertyID)
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	holderID, err := uuid.Parse(body.HolderID)
	if err != nil {
		return response.Error(c, "Invalid holder_id format", 400, nil)
	}
	if body.Quantity <= 0 {
		return response.Error(c, "Quantity must be a positive number", 400, nil)
	}

	holding, err := h.Service.Credit(c.Context(), propertyID, holderID, body.Quantity, domain.ActionCreated)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.SuccessCreated(c, "Tokens credited successfully", holding, nil)
}

// POST /api/v1/holdings/reserve
func (h *Handlers) Reserve(c *fiber.Ctx) error {
	return h.move(c, h.Service.ReserveForListing, "Tokens reserved for listing")
}

// POST /api/v1/holdings/release
func (h *Handlers) Release(c *fiber.Ctx) error {
	return h.move(c, h.Service.Release, "Tokens released from listing")
}

// POST /api/v1/holdings/settle-sale
func (h *Handlers) SettleSale(c *fiber.Ctx) error {
	return h.move(c, h.Service.SettleSale, "Sale settled")
}

func (h *Handlers) move(c *fiber.Ctx, fn func(ctx context.Context, propertyID, holderID uuid.UUID, qty int64) (*domain.Holding, error), msg string) error {
	holderID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	var body struct {
		PropertyID string `json:"property_id"`
		Quantity   int64  `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	propertyID, err := uuid.Parse(body.PropertyID)
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	if body.Quantity <= 0 {
		return response.Error(c, "Quantity must be a positive number", 400, nil)
	}

	holding, err := fn(c.Context(), propertyID, holderID, body.Quantity)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, msg, holding, nil)
}
