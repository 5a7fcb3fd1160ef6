package recommend

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

// Recommend handles POST /recommendations.
func (h *Handler) Recommend(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var req models.RecommendRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Recommend(c.Request.Context(), id.UserID, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
