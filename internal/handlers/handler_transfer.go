package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/dto"
	"github.com/civpoints/community_points_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transferHandler handles HTTP requests for direct transfers and the
// pending-transfer workflow.
type transferHandler struct {
	transferService portssvc.TransferSvc
}

// newTransferHandler creates a new transferHandler.
func newTransferHandler(ts portssvc.TransferSvc) *transferHandler {
	return &transferHandler{transferService: ts}
}

// registerTransferRoutes registers transfer routes.
func registerTransferRoutes(rg *gin.RouterGroup, ts portssvc.TransferSvc) {
	h := newTransferHandler(ts)

	community := rg.Group("/communities/:communityID")
	{
		community.POST("/transfers", h.transferNow)
		community.POST("/transfers/pending", h.submitTransfer)
		community.GET("/transfers/pending/:transferID", h.getTransfer)
		community.POST("/transfers/pending/:transferID/decision", h.decideTransfer)
		community.POST("/transfers/pending/:transferID/cancel", h.cancelTransfer)
	}
}

// transferNow is the synchronous fast path: rate limit check then an
// immediate ledger transfer. The authenticated subject is the initiator.
func (h *transferHandler) transferNow(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for TransferNow", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	initiatorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received direct transfer request",
		slog.String("community_id", communityID),
		slog.String("initiator", initiatorID),
		slog.String("target", req.TargetAccountID),
		slog.Int64("amount", req.Amount))

	result, err := h.transferService.TransferNow(c.Request.Context(), communityID, initiatorID, req.TargetAccountID, req.Amount, req.Reason)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to execute transfer")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransferResponse(result))
}

func (h *transferHandler) submitTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")

	var req dto.SubmitTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitTransfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	initiatorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transfer, err := h.transferService.Submit(c.Request.Context(), communityID, initiatorID, req.TargetAccountID, req.Amount, req.Reason)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to submit transfer")
		return
	}

	logger.Info("Pending transfer submitted", slog.String("transfer_id", transfer.TransferID))
	c.JSON(http.StatusCreated, dto.ToPendingTransferResponse(transfer))
}

func (h *transferHandler) getTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transferID := c.Param("transferID")

	transfer, err := h.transferService.GetTransfer(c.Request.Context(), transferID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve transfer")
		return
	}

	c.JSON(http.StatusOK, dto.ToPendingTransferResponse(transfer))
}

func (h *transferHandler) decideTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transferID := c.Param("transferID")

	var req dto.DecideTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for DecideTransfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	deciderID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var token *portssvc.InteractionToken
	if req.TokenValue != "" && req.TokenExpiresAt != nil {
		token = &portssvc.InteractionToken{Value: req.TokenValue, ExpiresAt: *req.TokenExpiresAt}
	}

	logger.Info("Received transfer decision",
		slog.String("transfer_id", transferID),
		slog.String("decider", deciderID),
		slog.String("outcome", string(req.Outcome)))

	transfer, err := h.transferService.Decide(c.Request.Context(), transferID, req.Outcome, deciderID, token)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to decide transfer")
		return
	}

	c.JSON(http.StatusOK, dto.ToPendingTransferResponse(transfer))
}

func (h *transferHandler) cancelTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transferID := c.Param("transferID")

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transfer, err := h.transferService.Cancel(c.Request.Context(), transferID, actorID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to cancel transfer")
		return
	}

	logger.Info("Pending transfer cancelled", slog.String("transfer_id", transferID))
	c.JSON(http.StatusOK, dto.ToPendingTransferResponse(transfer))
}
