package visibility

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

func (h *Handler) handleVisibilityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidBoundingBox):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bounding box", "details": "min must be strictly less than max on both axes"})
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visibility query", "details": err.Error()})
	case errors.Is(err, models.ErrHomeNotClaimed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "Home not claimed", "details": "Register a home claim before requesting visibility"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		h.logger.Error("Visibility operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Visibility operation failed", "details": "An internal error occurred. Please try again later."})
	}
}

// GetVisible returns the union of the caller's visibility sources as GeoJSON.
func (h *Handler) GetVisible(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var q models.VisibilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat, lon and radius_m are required", "details": err.Error()})
		return
	}

	result, err := h.service.ComputeVisible(c.Request.Context(), userID, q)
	if err != nil {
		h.handleVisibilityError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFog returns the reference region minus the caller's visible union. The
// bounding box is optional; omitting all four corners means the whole world.
func (h *Handler) GetFog(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user session"})
		return
	}

	var q models.VisibilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat, lon and radius_m are required", "details": err.Error()})
		return
	}

	box, err := parseBoundingBox(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bounding box corners must be numbers", "details": err.Error()})
		return
	}

	result, err := h.service.ComputeFog(c.Request.Context(), userID, q, box)
	if err != nil {
		h.handleVisibilityError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseBoundingBox reads the optional min/max corner query params. Returns
// nil when none are present; partial corners are an error.
func parseBoundingBox(c *gin.Context) (*models.BoundingBox, error) {
	keys := []string{"min_lon", "min_lat", "max_lon", "max_lat"}
	present := 0
	vals := make([]float64, len(keys))
	for i, key := range keys {
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
		present++
	}
	if present == 0 {
		return nil, nil
	}
	if present != len(keys) {
		return nil, errors.New("all four of min_lon, min_lat, max_lon, max_lat are required")
	}
	return &models.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}
