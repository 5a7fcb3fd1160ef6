package places

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

const maxPageSize = 200

type Handler struct {
	*domain.BaseHandler
	service Service
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{BaseHandler: domain.NewBaseHandler(logger), service: service}
}

func (h *Handler) caller(c *gin.Context) *models.Identity {
	if id, ok := h.Identity(c); ok {
		return &id
	}
	return nil
}

func queryInt(c *gin.Context, key string, dst **int) bool {
	v := c.Query(key)
	if v == "" {
		return true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return false
	}
	*dst = &n
	return true
}

func queryFloat(c *gin.Context, key string, dst **float64) bool {
	v := c.Query(key)
	if v == "" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return false
	}
	*dst = &f
	return true
}

// parseFilter reads the place list filters. Unknown keys are ignored.
func parseFilter(c *gin.Context) (models.PlaceFilter, bool) {
	f := models.PlaceFilter{
		Type: models.PlaceType(c.Query("type")),
		Name: c.Query("name"),
	}
	if f.Type != "" && !f.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
		return f, false
	}
	if v := c.Query("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return f, false
		}
		f.CategoryID = &id
	}
	ok := queryInt(c, "visits", &f.Visits) &&
		queryInt(c, "visits__gte", &f.VisitsGTE) &&
		queryInt(c, "visits__lte", &f.VisitsLTE) &&
		queryFloat(c, "coord_x", &f.CoordX) &&
		queryFloat(c, "coord_y", &f.CoordY)
	if !ok {
		return f, false
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	f.Limit = min(max(f.Limit, 0), maxPageSize)
	f.Offset = max(f.Offset, 0)
	return f, true
}

// List handles GET /places.
func (h *Handler) List(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	places, err := h.service.List(c.Request.Context(), h.caller(c), filter)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, places)
}

// Get handles GET /places/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	place, err := h.service.Get(c.Request.Context(), h.caller(c), id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

// Create handles POST /places.
func (h *Handler) Create(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	var req models.CreatePlaceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	place, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, place)
}

// Update handles PATCH /places/:id.
func (h *Handler) Update(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req models.UpdatePlaceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	place, err := h.service.Update(c.Request.Context(), identity, id, req)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

// Delete handles DELETE /places/:id.
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

// Approve handles POST /places/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	place, err := h.service.Approve(c.Request.Context(), identity, id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

func (h *Handler) Save(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Save(c.Request.Context(), identity.UserID, id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadySaved {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *Handler) Unsave(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Unsave(c.Request.Context(), identity.UserID, id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SavedPlaces handles GET /user/saved-places.
func (h *Handler) SavedPlaces(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	saved, err := h.service.SavedPlaces(c.Request.Context(), identity.UserID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved_places": saved, "count": len(saved)})
}

func (h *Handler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) Category(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	category, err := h.service.Category(c.Request.Context(), id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// CategoryPlaces handles GET /categories/:id/places.
func (h *Handler) CategoryPlaces(c *gin.Context) {
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	places, err := h.service.CategoryPlaces(c.Request.Context(), h.caller(c), id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, places)
}
