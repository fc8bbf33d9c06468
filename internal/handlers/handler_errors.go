package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondServiceError maps a typed service error onto an HTTP status. The
// error message is surfaced as-is; sentinel errors carry no internals.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := http.StatusInternalServerError
	msg := fallback

	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrSameAccount),
		errors.Is(err, apperrors.ErrInvalidPayload):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrAlreadyDecided),
		errors.Is(err, apperrors.ErrAlreadySettled),
		errors.Is(err, apperrors.ErrAlreadyVoted):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrCooldownActive),
		errors.Is(err, apperrors.ErrDailyLimitExceeded):
		status, msg = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrAccountFrozen):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrExpired),
		errors.Is(err, apperrors.ErrProposalClosed):
		status, msg = http.StatusGone, err.Error()
	case errors.Is(err, apperrors.ErrNotEligible),
		errors.Is(err, apperrors.ErrNotApproved):
		status, msg = http.StatusForbidden, err.Error()
	}

	if status == http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
	} else {
		logger.Warn(fallback, slog.String("error", err.Error()), slog.Int("status", status))
	}
	c.JSON(status, gin.H{"error": msg})
}
