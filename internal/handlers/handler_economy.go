package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/dto"
	"github.com/civpoints/community_points_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// economyHandler handles HTTP requests for accounts and the ledger.
type economyHandler struct {
	accountService portssvc.AccountSvcFacade
	ledgerService  portssvc.LedgerSvc
}

// newEconomyHandler creates a new economyHandler.
func newEconomyHandler(as portssvc.AccountSvcFacade, ls portssvc.LedgerSvc) *economyHandler {
	return &economyHandler{
		accountService: as,
		ledgerService:  ls,
	}
}

// registerEconomyRoutes registers account and ledger routes.
func registerEconomyRoutes(rg *gin.RouterGroup, as portssvc.AccountSvcFacade, ls portssvc.LedgerSvc) {
	h := newEconomyHandler(as, ls)

	community := rg.Group("/communities/:communityID")
	{
		community.POST("/accounts/ensure", h.ensureCommunityAccounts)
		community.GET("/accounts", h.listAccounts)
		community.GET("/accounts/:accountID", h.getAccount)
		community.POST("/accounts/:accountID/adjust", h.adjustBalance)
		community.PUT("/accounts/:accountID/frozen", h.setFrozen)
		community.GET("/accounts/:accountID/transactions", h.listTransactions)
		community.GET("/transactions/:transactionID", h.getTransaction)
	}
}

// ensureCommunityAccounts upserts the collective accounts for all governing
// bodies and configured departments. Idempotent.
func (h *economyHandler) ensureCommunityAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")

	accounts, err := h.accountService.EnsureCommunityAccounts(c.Request.Context(), communityID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to ensure community accounts")
		return
	}

	logger.Info("Community accounts ensured",
		slog.String("community_id", communityID),
		slog.Int("count", len(accounts)))
	c.JSON(http.StatusOK, dto.ListAccountsResponse{Accounts: dto.ToListAccountResponse(accounts)})
}

func (h *economyHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	accountID := c.Param("accountID")

	// Lazy creation: looking at an account brings it into existence with a
	// zero balance rather than 404ing on fresh members.
	account, err := h.accountService.EnsureAccount(c.Request.Context(), communityID, accountID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve account")
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

func (h *economyHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListAccounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), communityID, params.Limit, params.Offset)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, dto.ListAccountsResponse{Accounts: dto.ToListAccountResponse(accounts)})
}

func (h *economyHandler) adjustBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	accountID := c.Param("accountID")

	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AdjustBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Actor user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received request to adjust balance",
		slog.String("community_id", communityID),
		slog.String("account_id", accountID),
		slog.Int64("delta", req.Delta))

	newBalance, err := h.ledgerService.Adjust(c.Request.Context(), communityID, accountID, req.Delta, req.Reason, actorID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to adjust balance")
		return
	}

	c.JSON(http.StatusOK, dto.AdjustResponse{AccountID: accountID, NewBalance: newBalance})
}

func (h *economyHandler) setFrozen(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	accountID := c.Param("accountID")

	var req dto.SetFrozenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetFrozen", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.accountService.SetFrozen(c.Request.Context(), communityID, accountID, *req.Frozen, actorID); err != nil {
		respondServiceError(c, logger, err, "Failed to update frozen flag")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *economyHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	accountID := c.Param("accountID")

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	txns, err := h.ledgerService.ListTransactions(c.Request.Context(), communityID, accountID, params.Limit, params.Offset)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns))
}

func (h *economyHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	transactionID := c.Param("transactionID")

	txn, err := h.ledgerService.GetTransaction(c.Request.Context(), communityID, transactionID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve transaction")
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}
