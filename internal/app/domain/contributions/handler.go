package contributions

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

// Submit handles POST /place-suggestions.
func (h *Handler) Submit(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var req models.CreatePlaceSuggestionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ps, err := h.service.Submit(c.Request.Context(), identity, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ps)
}

// List handles GET /place-suggestions?status=&suggested_by=.
func (h *Handler) List(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	filter := models.PlaceSuggestionFilter{Status: models.PlaceSuggestionStatus(c.Query("status"))}
	if v := c.Query("suggested_by"); v != "" {
		uid, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid suggested_by"})
			return
		}
		filter.SuggestedBy = &uid
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	out, err := h.service.List(c.Request.Context(), identity, filter)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ps, err := h.service.Get(c.Request.Context(), identity, id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *Handler) Update(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req models.UpdatePlaceSuggestionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ps, err := h.service.Update(c.Request.Context(), identity, id, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *Handler) Delete(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), identity, id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Process handles POST /place-suggestions/:id/process.
func (h *Handler) Process(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req models.ProcessPlaceSuggestionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.Process(c.Request.Context(), identity, id, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
