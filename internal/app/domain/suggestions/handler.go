package suggestions

import (
	"errors"
	"net/http"
	"strconv"

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
	return &Handler{
		BaseHandler: domain.NewBaseHandler(logger),
		service:     service,
	}
}

// GetBest handles GET /suggestions.
func (h *Handler) GetBest(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}

	us, err := h.service.BestSuggestion(c.Request.Context(), id.UserID)
	if errors.Is(err, models.ErrNoSuggestion) {
		c.JSON(http.StatusOK, gin.H{"suggestion": nil, "message": "No suggestions available right now"})
		return
	}
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": us})
}

// Act handles POST /suggestions with {"suggestion_id", "action"}.
func (h *Handler) Act(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var req models.SuggestionActionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Act(c.Request.Context(), id.UserID, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Trigger handles POST /suggestions/trigger.
func (h *Handler) Trigger(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var req models.TriggerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Trigger(c.Request.Context(), id.UserID, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ByCategory handles GET /suggest-by-category?category_id=.
func (h *Handler) ByCategory(c *gin.Context) {
	id, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	categoryID, err := strconv.ParseInt(c.Query("category_id"), 10, 64)
	if err != nil || categoryID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category_id is required"})
		return
	}

	result, err := h.service.SuggestByCategory(c.Request.Context(), id.UserID, categoryID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) AdminList(c *gin.Context) {
	filter := ListFilter{TriggerType: models.TriggerType(c.Query("trigger_type"))}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active"})
			return
		}
		filter.Active = &active
	}
	if v := c.Query("place_id"); v != "" {
		placeID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid place_id"})
			return
		}
		filter.PlaceID = &placeID
	}
	filter.Limit, _ = strconv.ParseUint(c.DefaultQuery("limit", "50"), 10, 64)
	filter.Offset, _ = strconv.ParseUint(c.DefaultQuery("offset", "0"), 10, 64)

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": list})
}

func (h *Handler) AdminCreate(c *gin.Context) {
	var req models.CreateSuggestionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) AdminUpdate(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateSuggestionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
