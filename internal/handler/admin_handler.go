package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"geogate/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves the link management surface. Authentication is
// handled upstream; the acting administrator arrives in trusted
// headers set by the gateway.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler creates a new admin handler instance
func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// CreateLinkRequest is the request body for link creation
type CreateLinkRequest struct {
	ShortCode    string     `json:"short_code"`
	Title        string     `json:"title"`
	TargetURL    string     `json:"target_url" binding:"required"`
	CenterLat    *float64   `json:"center_lat" binding:"required"`
	CenterLng    *float64   `json:"center_lng" binding:"required"`
	RadiusMeters float64    `json:"radius_meters" binding:"required"`
	LocationName string     `json:"location_name"`
	Contact      string     `json:"contact"`
	ExpireAt     *time.Time `json:"expire_at"`
	MaxVisits    int64      `json:"max_visits"`
}

// UpdateLinkRequest is the request body for a partial link update
type UpdateLinkRequest struct {
	Title        *string    `json:"title"`
	TargetURL    *string    `json:"target_url"`
	CenterLat    *float64   `json:"center_lat"`
	CenterLng    *float64   `json:"center_lng"`
	RadiusMeters *float64   `json:"radius_meters"`
	LocationName *string    `json:"location_name"`
	Contact      *string    `json:"contact"`
	ExpireAt     *time.Time `json:"expire_at"`
	MaxVisits    *int64     `json:"max_visits"`
	IsActive     *bool      `json:"is_active"`
}

// BlockIPRequest is the request body for blocking an address
type BlockIPRequest struct {
	IPAddress string `json:"ip_address" binding:"required"`
	Reason    string `json:"reason"`
}

// CreateLink handles POST /api/links
func (h *AdminHandler) CreateLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	link, err := h.service.CreateLink(c.Request.Context(), actor, service.CreateLinkParams{
		ShortCode:    req.ShortCode,
		Title:        req.Title,
		TargetURL:    req.TargetURL,
		CenterLat:    *req.CenterLat,
		CenterLng:    *req.CenterLng,
		RadiusMeters: req.RadiusMeters,
		LocationName: req.LocationName,
		Contact:      req.Contact,
		ExpireAt:     req.ExpireAt,
		MaxVisits:    req.MaxVisits,
	})
	if err != nil {
		adminError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Data: link})
}

// ListLinks handles GET /api/links
func (h *AdminHandler) ListLinks(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if size < 1 || size > 100 {
		size = 20
	}
	search := c.Query("search")
	showDeleted := c.Query("show_deleted") == "true"

	links, total, err := h.service.ListLinks(c.Request.Context(), actor, search, showDeleted, (page-1)*size, size)
	if err != nil {
		adminError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: gin.H{
		"links": links,
		"total": total,
		"page":  page,
		"size":  size,
	}})
}

// GetLink handles GET /api/links/:id
func (h *AdminHandler) GetLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := linkID(c)
	if !ok {
		return
	}

	link, err := h.service.GetLink(c.Request.Context(), actor, id)
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: link})
}

// UpdateLink handles PUT /api/links/:id
func (h *AdminHandler) UpdateLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := linkID(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	link, err := h.service.UpdateLink(c.Request.Context(), actor, id, service.UpdateLinkParams{
		Title:        req.Title,
		TargetURL:    req.TargetURL,
		CenterLat:    req.CenterLat,
		CenterLng:    req.CenterLng,
		RadiusMeters: req.RadiusMeters,
		LocationName: req.LocationName,
		Contact:      req.Contact,
		ExpireAt:     req.ExpireAt,
		MaxVisits:    req.MaxVisits,
		IsActive:     req.IsActive,
	})
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: link})
}

// DeleteLink handles DELETE /api/links/:id
func (h *AdminHandler) DeleteLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := linkID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteLink(c.Request.Context(), actor, id); err != nil {
		adminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RestoreLink handles POST /api/links/:id/restore
func (h *AdminHandler) RestoreLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := linkID(c)
	if !ok {
		return
	}

	link, err := h.service.RestoreLink(c.Request.Context(), actor, id)
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: link})
}

// LinkStats handles GET /api/links/:id/stats
func (h *AdminHandler) LinkStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := linkID(c)
	if !ok {
		return
	}

	stats, err := h.service.LinkStats(c.Request.Context(), actor, id)
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: stats})
}

// LinkAccessLogs handles GET /api/links/:id/logs
func (h *AdminHandler) LinkAccessLogs(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := linkID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "50"))
	if size < 1 || size > 200 {
		size = 50
	}

	logs, total, err := h.service.LinkAccessLogs(c.Request.Context(), actor, id, (page-1)*size, size)
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: gin.H{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  size,
	}})
}

// ListBlockedIPs handles GET /api/blocked-ips
func (h *AdminHandler) ListBlockedIPs(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	entries, err := h.service.ListBlockedIPs(c.Request.Context())
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Data: entries})
}

// BlockIP handles POST /api/blocked-ips
func (h *AdminHandler) BlockIP(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req BlockIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	entry, err := h.service.BlockIP(c.Request.Context(), actor, req.IPAddress, req.Reason)
	if err != nil {
		adminError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Data: entry})
}

// UnblockIP handles DELETE /api/blocked-ips/:ip
func (h *AdminHandler) UnblockIP(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	if err := h.service.UnblockIP(c.Request.Context(), c.Param("ip")); err != nil {
		adminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// actor extracts the acting administrator from gateway headers
func (h *AdminHandler) actor(c *gin.Context) (service.Actor, bool) {
	id, err := strconv.ParseUint(c.GetHeader("X-Actor-ID"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, Response{
			Code:    http.StatusUnauthorized,
			Message: "missing or invalid actor identity",
			Error:   "unauthorized",
		})
		return service.Actor{}, false
	}
	role := c.GetHeader("X-Actor-Role")
	if role != service.RoleSuperAdmin {
		role = service.RoleAdmin
	}
	return service.Actor{ID: uint(id), Role: role}, true
}

func linkID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "invalid link id")
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    http.StatusBadRequest,
		Message: msg,
		Error:   "bad_request",
	})
}

// adminError maps service errors to admin-facing HTTP responses
func adminError(c *gin.Context, err error) {
	var status int
	var slug string
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, slug = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrForbidden):
		status, slug = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrShortCodeTaken):
		status, slug = http.StatusConflict, "short_code_taken"
	case errors.Is(err, service.ErrNotDeleted),
		errors.Is(err, service.ErrInvalidCoordinate),
		errors.Is(err, service.ErrInvalidRadius),
		errors.Is(err, service.ErrInvalidTargetURL):
		status, slug = http.StatusBadRequest, "bad_request"
	default:
		status, slug = http.StatusInternalServerError, "internal_error"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, Response{Code: status, Message: msg, Error: slug})
}
