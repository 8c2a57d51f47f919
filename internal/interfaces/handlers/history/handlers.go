package history

import (
	histsvc "brickvault-backend/internal/application/history"
	"brickvault-backend/internal/middleware"
	"brickvault-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *histsvc.Service
}

// GET /api/v1/history/listings/:listing_id
func (h *Handlers) ByListing(c *fiber.Ctx) error {
	listingID := c.Params("listing_id")
	if listingID == "" {
		return response.Error(c, "listing_id is required", 400, nil)
	}
	entries, err := h.Service.ByListing(c.Context(), listingID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Listing history fetched successfully", entries, nil)
}

// GET /api/v1/history/holdings/:holding_id
func (h *Handlers) ByHolding(c *fiber.Ctx) error {
	holdingID, err := uuid.Parse(c.Params("holding_id"))
	if err != nil {
		return response.Error(c, "Invalid holding_id format", 400, nil)
	}
	entries, err := h.Service.ByHolding(c.Context(), holdingID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Holding history fetched successfully", entries, nil)
}

// GET /api/v1/history/mine — the caller's full holding trail
func (h *Handlers) Mine(c *fiber.Ctx) error {
	holderID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	entries, err := h.Service.ByHolder(c.Context(), holderID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Holder history fetched successfully", entries, nil)
}

// GET /api/v1/history/properties/:property_id/holdings
func (h *Handlers) HoldingsByProperty(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("property_id"))
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	entries, err := h.Service.HoldingsByProperty(c.Context(), propertyID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Property holding history fetched successfully", entries, nil)
}

// GET /api/v1/history/properties/:property_id/listings
func (h *Handlers) ListingsByProperty(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("property_id"))
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	entries, err := h.Service.ListingsByProperty(c.Context(), propertyID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Property listing history fetched successfully", entries, nil)
}

// GET /api/v1/history/listings/:listing_id/price-series
func (h *Handlers) PriceSeries(c *fiber.Ctx) error {
	listingID := c.Params("listing_id")
	if listingID == "" {
		return response.Error(c, "listing_id is required", 400, nil)
	}
	points, err := h.Service.PriceSeries(c.Context(), listingID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Price series fetched successfully", points, nil)
}

// GET /api/v1/history/holdings/:holding_id/quantity-series
func (h *Handlers) QuantitySeries(c *fiber.Ctx) error {
	holdingID, err := uuid.Parse(c.Params("holding_id"))
	if err != nil {
		return response.Error(c, "Invalid holding_id format", 400, nil)
	}
	points, err := h.Service.QuantitySeries(c.Context(), holdingID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Quantity series fetched successfully", points, nil)
}

// GET /api/v1/history/holdings/:holding_id/replay — audit reconstruction
// of a holding from its event trail.
func (h *Handlers) Replay(c *fiber.Ctx) error {
	holdingID, err := uuid.Parse(c.Params("holding_id"))
	if err != nil {
		return response.Error(c, "Invalid holding_id format", 400, nil)
	}
	replayed, err := h.Service.Replay(c.Context(), holdingID)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Holding replayed successfully", replayed, nil)
}
