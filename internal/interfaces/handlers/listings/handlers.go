package listings

import (
	"errors"

	listsvc "brickvault-backend/internal/application/listings"
	"brickvault-backend/internal/domain"
	"brickvault-backend/internal/middleware"
	"brickvault-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *listsvc.Service
}

// POST /api/v1/listings/open — 201 with the new listing
func (h *Handlers) Open(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	var body struct {
		PropertyID string `json:"property_id"`
		Quantity   int64  `json:"quantity"`
		Price      string `json:"price"`
		Currency   string `json:"currency"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	propertyID, err := uuid.Parse(body.PropertyID)
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	if body.Quantity < 1 {
		return response.Error(c, "Quantity must be at least 1", 400, nil)
	}
	price, err := decimal.NewFromString(body.Price)
	if err != nil || !price.IsPositive() {
		return response.Error(c, "Invalid price", 400, nil)
	}
	currency := domain.Currency(body.Currency)
	if !domain.ValidCurrency(currency) {
		return response.Error(c, "Unsupported currency", 400, nil)
	}

	listing, err := h.Service.Open(c.Context(), listsvc.OpenListingInput{
		SellerID:   sellerID,
		PropertyID: propertyID,
		Quantity:   body.Quantity,
		Price:      price,
		Currency:   currency,
	})
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// POST /api/v1/listings/:listing_id/fill
func (h *Handlers) Fill(c *fiber.Ctx) error {
	listingID := c.Params("listing_id")
	if listingID == "" {
		return response.Error(c, "listing_id is required", 400, nil)
	}
	var body struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.Quantity < 1 {
		return response.Error(c, "Quantity must be at least 1", 400, nil)
	}
	listing, err := h.Service.Fill(c.Context(), listingID, body.Quantity)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing filled", listing, nil)
}

// PATCH /api/v1/listings/:listing_id/reprice
func (h *Handlers) Reprice(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	listingID := c.Params("listing_id")
	var body struct {
		NewPrice string `json:"new_price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	price, err := decimal.NewFromString(body.NewPrice)
	if err != nil || !price.IsPositive() {
		return response.Error(c, "Invalid price", 400, nil)
	}
	listing, err := h.Service.Reprice(c.Context(), listingID, sellerID, price)
	if err != nil {
		if errors.Is(err, listsvc.ErrUnauthorized) {
			return response.Error(c, err.Error(), 403, nil)
		}
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing repriced", listing, nil)
}

// PATCH /api/v1/listings/:listing_id/rescale
func (h *Handlers) Rescale(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	listingID := c.Params("listing_id")
	var body struct {
		NewQuantity int64 `json:"new_quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.NewQuantity < 1 {
		return response.Error(c, "Quantity must be at least 1", 400, nil)
	}
	listing, err := h.Service.Rescale(c.Context(), listingID, sellerID, body.NewQuantity)
	if err != nil {
		if errors.Is(err, listsvc.ErrUnauthorized) {
			return response.Error(c, err.Error(), 403, nil)
		}
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing rescaled", listing, nil)
}

// POST /api/v1/listings/:listing_id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	listingID := c.Params("listing_id")
	listing, err := h.Service.Cancel(c.Context(), listingID, sellerID)
	if err != nil {
		if errors.Is(err, listsvc.ErrUnauthorized) {
			return response.Error(c, err.Error(), 403, nil)
		}
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing cancelled", listing, nil)
}

// GET /api/v1/listings/:listing_id
func (h *Handlers) GetByID(c *fiber.Ctx) error {
	listingID := c.Params("listing_id")
	if listingID == "" {
		return response.Error(c, "listing_id is required", 400, nil)
	}
	listing, err := h.Service.GetByListingID(c.Context(), listingID)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/listings/active-by-property/:property_id
func (h *Handlers) ActiveByProperty(c *fiber.Ctx) error {
	propertyID, err := uuid.Parse(c.Params("property_id"))
	if err != nil {
		return response.Error(c, "Invalid property_id format", 400, nil)
	}
	listings, err := h.Service.ActiveByProperty(c.Context(), propertyID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Active listings fetched", listings, nil)
}

// GET /api/v1/listings/my-listings
func (h *Handlers) MyListings(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	listings, err := h.Service.HolderListings(c.Context(), sellerID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Holder listings fetched successfully", listings, nil)
}

// GET /api/v1/listings/my-active-listings
func (h *Handlers) MyActiveListings(c *fiber.Ctx) error {
	sellerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	listings, err := h.Service.HolderActiveListings(c.Context(), sellerID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Active holder listings fetched successfully", listings, nil)
}
