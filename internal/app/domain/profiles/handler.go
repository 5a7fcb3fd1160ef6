package profiles

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

type Handler struct {
	*domain.BaseHandler
	service Service
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{BaseHandler: domain.NewBaseHandler(logger), service: service}
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} map[string]string
// @Router /api/v1/user/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	profile, err := h.service.Profile(c.Request.Context(), identity.UserID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags profile
// @Accept json
// @Produce json
// @Param request body models.UpdateProfileParams true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} map[string]string
// @Router /api/v1/user/profile [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var params models.UpdateProfileParams
	if !h.BindJSON(c, &params) {
		return
	}
	profile, err := h.service.Update(c.Request.Context(), identity.UserID, params)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
