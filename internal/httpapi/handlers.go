package httpapi

import (
	"errors"
	"net/http"
	"time"

	"access-platform/internal/access"
	"access-platform/internal/auth"
	"access-platform/internal/badge"
	"access-platform/internal/metrics"
	"access-platform/internal/rbac"
	"access-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth   *auth.Manager
	Engine *access.Engine
	Badges *badge.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	if !rbac.IsKnown(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Accesses ---

// CheckIn registers a visitor entry, reserving the requested badge.
func (h Handlers) CheckIn(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil || actorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req access.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	a, err := h.Engine.CheckIn(c.Request.Context(), actorID, req)
	if err != nil {
		metrics.ObserveOperation("checkin", resultLabel(err))
		h.writeEngineError(c, err)
		return
	}
	metrics.ObserveOperation("checkin", metrics.ResultOK)
	c.JSON(http.StatusCreated, a)
}

// Edit applies a partial update to an open access; absent fields are kept.
func (h Handlers) Edit(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil || actorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	accessID := c.Param("id")

	var req access.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	a, err := h.Engine.Edit(c.Request.Context(), actorID, accessID, req)
	if err != nil {
		metrics.ObserveOperation("edit", resultLabel(err))
		h.writeEngineError(c, err)
		return
	}
	metrics.ObserveOperation("edit", metrics.ResultOK)
	c.JSON(http.StatusOK, a)
}

// CheckOut registers the visitor's exit and frees the bound badge.
func (h Handlers) CheckOut(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil || actorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	a, err := h.Engine.CheckOut(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		metrics.ObserveOperation("checkout", resultLabel(err))
		h.writeEngineError(c, err)
		return
	}
	metrics.ObserveOperation("checkout", metrics.ResultOK)
	c.JSON(http.StatusOK, a)
}

func (h Handlers) GetAccess(c *gin.Context) {
	a, err := h.Engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListAccesses returns open accesses, optionally scoped to one checkpoint.
func (h Handlers) ListAccesses(c *gin.Context) {
	out, err := h.Engine.ListOpen(c.Request.Context(), c.Query("checkpoint_id"))
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	if out == nil {
		out = []access.Access{}
	}
	c.JSON(http.StatusOK, gin.H{"accesses": out})
}

// --- Badges ---

func (h Handlers) ListAvailableBadges(c *gin.Context) {
	out, err := h.Badges.ListAvailable(c.Request.Context(), c.Query("checkpoint_id"))
	if err != nil {
		h.writeBadgeError(c, err)
		return
	}
	if out == nil {
		out = []badge.Badge{}
	}
	c.JSON(http.StatusOK, gin.H{"badges": out})
}

func (h Handlers) GetBadge(c *gin.Context) {
	b, err := h.Badges.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeBadgeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h Handlers) CreateBadge(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil || actorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req badge.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	b, err := h.Badges.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.writeBadgeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h Handlers) CreateBadgeRange(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil || actorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req badge.RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	badges, err := h.Badges.CreateRange(c.Request.Context(), actorID, req)
	if err != nil {
		h.writeBadgeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"badges": badges, "count": len(badges)})
}

// --- error mapping ---

// writeEngineError translates the engine's error taxonomy onto HTTP statuses.
// Unclassified errors are logged and surfaced as an opaque 500.
func (h Handlers) writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, access.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, access.ErrReferenceNotFound):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, access.ErrBadgeUnavailable):
		metrics.BadgeConflictsTotal.Inc()
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, access.ErrAlreadyClosed),
		errors.Is(err, access.ErrDuplicateIdentification):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, access.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "access not found"})
	default:
		logger.FromGin(c).Error("access operation failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h Handlers) writeBadgeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, badge.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, badge.ErrAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, badge.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "badge not found"})
	default:
		logger.FromGin(c).Error("badge operation failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, access.ErrValidation), errors.Is(err, access.ErrReferenceNotFound):
		return metrics.ResultRejected
	case errors.Is(err, access.ErrBadgeUnavailable),
		errors.Is(err, access.ErrAlreadyClosed),
		errors.Is(err, access.ErrDuplicateIdentification):
		return metrics.ResultConflict
	case errors.Is(err, access.ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
