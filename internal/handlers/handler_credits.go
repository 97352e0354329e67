package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/dto"
	"github.com/stemtide/stemtide_backend/internal/middleware"
)

// CreditsHandler handles credit balance, purchase, and history requests.
type CreditsHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

// NewCreditsHandler creates a new CreditsHandler.
func NewCreditsHandler(ls portssvc.LedgerSvcFacade) *CreditsHandler {
	return &CreditsHandler{ledgerService: ls}
}

// RegisterCreditsRoutes sets up the credit ledger routes.
func RegisterCreditsRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := NewCreditsHandler(ledgerService)

	credits := rg.Group("/credits")
	{
		credits.GET("/balance", h.Balance)
		credits.POST("/purchase", h.Purchase)
		credits.GET("/history", h.History)
	}
}

// Balance returns the authenticated user's current credit balance.
func (h *CreditsHandler) Balance(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	balance, err := h.ledgerService.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to read balance")
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Credits: balance.String()})
}

// Purchase credits a purchased amount to the authenticated user's balance.
// Payment capture happens upstream; only the reference is recorded here.
func (h *CreditsHandler) Purchase(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	description := fmt.Sprintf("Purchased %s credits", req.Amount.String())
	txn, err := h.ledgerService.Credit(c.Request.Context(), userID, req.Amount, description, req.PaymentReference)
	if err != nil {
		respondError(c, err, "Failed to purchase credits")
		return
	}

	c.JSON(http.StatusOK, dto.PurchaseResponse{
		Message:     "Credits added",
		Credits:     txn.BalanceAfter.String(),
		AmountAdded: txn.Amount.String(),
	})
}

// History returns a newest-first page of the user's ledger entries.
func (h *CreditsHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	var params dto.HistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	txns, nextToken, err := h.ledgerService.History(c.Request.Context(), userID, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ToHistoryResponse(txns, nextToken))
}
