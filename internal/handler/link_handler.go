package handler

import (
	"errors"
	"net/http"

	"geogate/internal/service"
	"github.com/gin-gonic/gin"
)

// LinkHandler serves the unauthenticated visitor surface: location
// verification and public link info.
type LinkHandler struct {
	service *service.LinkService
}

// NewLinkHandler creates a new link handler instance
func NewLinkHandler(svc *service.LinkService) *LinkHandler {
	return &LinkHandler{service: svc}
}

// VerifyRequest is the request body for location verification. Pointer
// fields distinguish absent coordinates from zero values.
type VerifyRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// Response represents a generic API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Verify handles POST /api/verify/:short_code
func (h *LinkHandler) Verify(c *gin.Context) {
	shortCode := c.Param("short_code")

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: "latitude and longitude are required",
			Error:   "validation_failure",
		})
		return
	}

	meta := service.RequestMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}

	result, err := h.service.Verify(c.Request.Context(), shortCode, *req.Latitude, *req.Longitude, meta)
	if err != nil {
		status, slug := verifyErrorStatus(err)
		c.JSON(status, Response{
			Code:    status,
			Message: errorMessage(err, status),
			Error:   slug,
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code: http.StatusOK,
		Data: result,
	})
}

// PublicInfo handles GET /api/public/:short_code. No location check,
// no side effects.
func (h *LinkHandler) PublicInfo(c *gin.Context) {
	shortCode := c.Param("short_code")

	info, err := h.service.PublicInfo(c.Request.Context(), shortCode)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Code:    http.StatusNotFound,
				Message: "Short link not found",
				Error:   "not_found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, Response{
			Code:    http.StatusInternalServerError,
			Message: "Failed to load link info",
			Error:   "internal_error",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code: http.StatusOK,
		Data: info,
	})
}

// HealthCheck handles GET /health
func (h *LinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// verifyErrorStatus maps verification errors to HTTP status and a
// stable error slug. Deleted and nonexistent links produce the same
// response shape.
func verifyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCoordinate):
		return http.StatusBadRequest, "validation_failure"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrLinkBanned):
		return http.StatusForbidden, "link_banned"
	case errors.Is(err, service.ErrLinkDisabled):
		return http.StatusForbidden, "link_disabled"
	case errors.Is(err, service.ErrLinkExpired):
		return http.StatusGone, "link_expired"
	case errors.Is(err, service.ErrVisitCapReached):
		return http.StatusForbidden, "visit_limit_reached"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		// Do not leak store internals to unauthenticated callers
		return "Verification could not be recorded"
	}
	return err.Error()
}
