package supplypaths

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/middleware"
	"github.com/FACorreiaa/fogline/internal/app/models"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) handlePathError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supply path data", "details": err.Error()})
	case errors.Is(err, models.ErrNotConnected):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "Not connected", "details": "Both users must have accepted the connection"})
	case errors.Is(err, models.ErrHomeNotClaimed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "Home not claimed", "details": "Both users need a registered home claim"})
	case errors.Is(err, models.ErrTooFarFromFriend):
		c.JSON(http.StatusConflict, gin.H{"error": "Too far", "details": "Live position is not close enough to the friend's home"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Supply path not found"})
	default:
		h.logger.Error("Supply path operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Supply path operation failed", "details": "An internal error occurred. Please try again later."})
	}
}

// TouchPath refreshes the corridor towards a friend's home.
func (h *Handler) TouchPath(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var req models.TouchPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	path, err := h.service.TouchPath(c.Request.Context(), userID, req.FriendID, req.Lat, req.Lon)
	if err != nil {
		h.handlePathError(c, err)
		return
	}

	c.JSON(http.StatusOK, path)
}

// ActivePaths lists the caller's live corridors.
func (h *Handler) ActivePaths(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	paths, err := h.service.ActivePaths(c.Request.Context(), userID)
	if err != nil {
		h.handlePathError(c, err)
		return
	}

	c.JSON(http.StatusOK, paths)
}
