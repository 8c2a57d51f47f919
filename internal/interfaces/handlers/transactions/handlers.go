package transactions

import (
	"errors"

	"brickvault-backend/internal/application/settlement"
	"brickvault-backend/internal/middleware"
	"brickvault-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *settlement.Service
}

// POST /api/v1/transactions/initiate — records a pending transaction,
// no ledger mutation happens until commit.
func (h *Handlers) Initiate(c *fiber.Ctx) error {
	buyerID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	var body struct {
		ListingID string `json:"listing_id"`
		Quantity  int64  `json:"quantity"`
		TokenID   string `json:"token_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if body.ListingID == "" {
		return response.Error(c, "listing_id is required", 400, nil)
	}
	if body.Quantity < 1 {
		return response.Error(c, "Quantity must be at least 1", 400, nil)
	}
	txn, err := h.Service.Initiate(c.Context(), buyerID, body.ListingID, body.Quantity, body.TokenID)
	if err != nil {
		if errors.Is(err, settlement.ErrSelfTrade) {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.LedgerError(c, err)
	}
	return response.SuccessCreated(c, "Transaction initiated", txn, nil)
}

// POST /api/v1/transactions/:tx_id/commit
func (h *Handlers) Commit(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("tx_id"))
	if err != nil {
		return response.Error(c, "Invalid tx_id format", 400, nil)
	}
	txn, err := h.Service.Commit(c.Context(), txID)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Transaction committed", txn, nil)
}

// POST /api/v1/transactions/:tx_id/abort
func (h *Handlers) Abort(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("tx_id"))
	if err != nil {
		return response.Error(c, "Invalid tx_id format", 400, nil)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)
	txn, err := h.Service.Abort(c.Context(), txID, body.Reason)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Transaction aborted", txn, nil)
}

// GET /api/v1/transactions/:tx_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("tx_id"))
	if err != nil {
		return response.Error(c, "Invalid tx_id format", 400, nil)
	}
	txn, err := h.Service.GetTransaction(c.Context(), txID)
	if err != nil {
		return response.LedgerError(c, err)
	}
	return response.Success(c, "Transaction fetched successfully", txn, nil)
}

// GET /api/v1/transactions — everything the caller bought or sold, newest first
func (h *Handlers) MyTransactions(c *fiber.Ctx) error {
	holderID, ok := middleware.GetHolderID(c)
	if !ok {
		return response.Error(c, "Invalid holder id", 400, nil)
	}
	txns, err := h.Service.ViewTransactions(c.Context(), holderID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Transactions fetched successfully", txns, nil)
}
