package domain

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

// IdentityKey is the gin context key holding the caller's models.Identity.
const IdentityKey = "identity"

// PublicError is implemented by errors whose message is safe to show to the
// client as is.
type PublicError interface {
	error
	PublicMessage() string
}

type BaseHandler struct {
	Logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{Logger: logger}
}

// Identity returns the authenticated caller, if any.
func (h *BaseHandler) Identity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// RequireIdentity writes a 401 and returns false when the request is anonymous.
func (h *BaseHandler) RequireIdentity(c *gin.Context) (models.Identity, bool) {
	id, ok := h.Identity(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return models.Identity{}, false
	}
	return id, true
}

// ParamID parses a positive integer path parameter, writing a 400 on failure.
func (h *BaseHandler) ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// BindJSON decodes and validates the body, writing a 400 on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTerminalState), errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes {"error": "..."} with the status matching err.
// Internal errors are logged and replaced by a generic message.
func (h *BaseHandler) RespondError(c *gin.Context, err error) {
	status := StatusFor(err)

	var public PublicError
	msg := err.Error()
	switch {
	case errors.As(err, &public):
		msg = public.PublicMessage()
		h.Logger.Warn("Upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
	case status == http.StatusInternalServerError:
		h.Logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
