package places

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) place(args mock.Arguments) (*models.Place, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Place), args.Error(1)
}

func (m *MockService) List(ctx context.Context, caller *models.Identity, filter models.PlaceFilter) ([]models.Place, error) {
	args := m.Called(caller, filter)
	return args.Get(0).([]models.Place), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, caller *models.Identity, id int64) (*models.Place, error) {
	return m.place(m.Called(caller, id))
}

func (m *MockService) Create(ctx context.Context, caller models.Identity, req models.CreatePlaceRequest) (*models.Place, error) {
	return m.place(m.Called(caller, req))
}

func (m *MockService) Update(ctx context.Context, caller models.Identity, id int64, req models.UpdatePlaceRequest) (*models.Place, error) {
	return m.place(m.Called(caller, id, req))
}

func (m *MockService) Delete(ctx context.Context, caller models.Identity, id int64) error {
	return m.Called(caller, id).Error(0)
}

func (m *MockService) Approve(ctx context.Context, caller models.Identity, id int64) (*models.Place, error) {
	return m.place(m.Called(caller, id))
}

func (m *MockService) Categories(ctx context.Context) ([]models.Category, error) {
	args := m.Called()
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockService) Category(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockService) CategoryPlaces(ctx context.Context, caller *models.Identity, id int64) ([]models.Place, error) {
	args := m.Called(caller, id)
	return args.Get(0).([]models.Place), args.Error(1)
}

func (m *MockService) Save(ctx context.Context, userID uuid.UUID, placeID int64) (*models.SaveResult, error) {
	args := m.Called(userID, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SaveResult), args.Error(1)
}

func (m *MockService) Unsave(ctx context.Context, userID uuid.UUID, placeID int64) error {
	return m.Called(userID, placeID).Error(0)
}

func (m *MockService) SavedPlaces(ctx context.Context, userID uuid.UUID) ([]models.SavedPlace, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.SavedPlace), args.Error(1)
}

func newTestRouter(svc Service, identity *models.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if identity != nil {
		r.Use(func(c *gin.Context) {
			c.Set(domain.IdentityKey, *identity)
			c.Next()
		})
	}
	h := NewHandler(svc, zap.NewNop())
	r.GET("/places", h.List)
	r.POST("/places", h.Create)
	r.GET("/places/:id", h.Get)
	r.DELETE("/places/:id", h.Delete)
	r.POST("/places/:id/save", h.Save)
	return r
}

func TestHandler_ListParsesFilters(t *testing.T) {
	svc := new(MockService)
	gte, cat := 10, int64(2)
	svc.On("List", (*models.Identity)(nil), models.PlaceFilter{
		Type:       models.PlaceTypeOutside,
		Name:       "park",
		VisitsGTE:  &gte,
		CategoryID: &cat,
		Limit:      maxPageSize,
	}).Return([]models.Place{}, nil).Once()

	w := httptest.NewRecorder()
	newTestRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/places?type=outside&name=park&visits__gte=10&category=2&limit=5000", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_ListRejectsBadFilters(t *testing.T) {
	for _, q := range []string{"type=underground", "visits=many", "coord_x=north", "category=food"} {
		w := httptest.NewRecorder()
		newTestRouter(new(MockService), nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/places?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestHandler_Create(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}

	t.Run("created", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", *identity, mock.AnythingOfType("models.CreatePlaceRequest")).
			Return(&models.Place{ID: 1, Name: "Pond"}, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/places", bytes.NewBufferString(`{"name":"Pond","type":"outside"}`))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(svc, identity).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("bad type", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/places", bytes.NewBufferString(`{"name":"Pond","type":"sky"}`))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(new(MockService), identity).ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/places", bytes.NewBufferString(`{"name":"Pond","type":"outside"}`))
		req.Header.Set("Content-Type", "application/json")
		newTestRouter(new(MockService), nil).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandler_DeleteForbidden(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	svc := new(MockService)
	svc.On("Delete", *identity, int64(4)).Return(models.ErrForbidden).Once()

	w := httptest.NewRecorder()
	newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/places/4", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_SaveStatus(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	svc := new(MockService)
	svc.On("Save", identity.UserID, int64(4)).Return(&models.SaveResult{PlaceID: 4, Message: "Place saved"}, nil).Once()
	svc.On("Save", identity.UserID, int64(5)).Return(&models.SaveResult{PlaceID: 5, AlreadySaved: true, Message: "Place already saved"}, nil).Once()

	w := httptest.NewRecorder()
	newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/places/4/save", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/places/5/save", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Place already saved")
}
