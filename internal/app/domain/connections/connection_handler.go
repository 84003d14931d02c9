package connections

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

func (h *Handler) handleConnectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrSelfConnection):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot connect to self"})
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection data", "details": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Already requested", "details": "A request for this pair already exists"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Connection not found"})
	default:
		h.logger.Error("Connection operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Connection operation failed", "details": "An internal error occurred. Please try again later."})
	}
}

// RequestConnection creates a pending edge from the authenticated user.
func (h *Handler) RequestConnection(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var req models.RequestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	conn, err := h.service.RequestConnection(c.Request.Context(), userID, req.AddresseeID)
	if err != nil {
		h.handleConnectionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conn)
}

// ApproveConnection accepts a pending request addressed to the caller.
func (h *Handler) ApproveConnection(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection id"})
		return
	}

	conn, err := h.service.ApproveConnection(c.Request.Context(), connectionID, userID)
	if err != nil {
		h.handleConnectionError(c, err)
		return
	}

	c.JSON(http.StatusOK, conn)
}

// ListConnections returns every edge touching the authenticated user.
func (h *Handler) ListConnections(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	conns, err := h.service.ListConnections(c.Request.Context(), userID)
	if err != nil {
		h.handleConnectionError(c, err)
		return
	}

	c.JSON(http.StatusOK, conns)
}
