package visits

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

// Visit handles POST /visit with {"place_id": 1}.
func (h *Handler) Visit(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var req models.VisitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Visit(c.Request.Context(), id.UserID, req.PlaceID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// History handles GET /user/visits.
func (h *Handler) History(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), id.UserID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": history, "count": len(history)})
}
