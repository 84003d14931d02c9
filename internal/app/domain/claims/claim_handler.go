package claims

import (
	"errors"
	"net/http"
	"strconv"

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

func (h *Handler) handleClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim data", "details": err.Error()})
	case errors.Is(err, models.ErrOwnerHasClaim):
		c.JSON(http.StatusConflict, gin.H{"error": "Home already claimed", "details": "You already registered a home claim"})
	case errors.Is(err, models.ErrLocationClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": "Location already claimed", "details": "Another claim exists too close to this point"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
	default:
		h.logger.Error("Claim operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Claim operation failed", "details": "An internal error occurred. Please try again later."})
	}
}

// CreateClaim registers the authenticated user's home location.
func (h *Handler) CreateClaim(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var req models.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	claim, err := h.service.CreateClaim(c.Request.Context(), userID, req.Lat, req.Lon, req.AddressLabel)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	c.JSON(http.StatusCreated, claim)
}

// GetMyClaim returns the authenticated user's home claim.
func (h *Handler) GetMyClaim(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	claim, err := h.service.GetClaimByOwner(c.Request.Context(), userID)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, claim)
}

// FindNear lists claims around a point, closest first.
func (h *Handler) FindNear(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
	radius, err3 := strconv.ParseFloat(c.DefaultQuery("radius_m", "1000"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat, lon and radius_m must be numbers"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	nearby, err := h.service.FindNear(c.Request.Context(), lat, lon, radius, limit)
	if err != nil {
		h.handleClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, nearby)
}
