package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) BestSuggestion(ctx context.Context, userID uuid.UUID) (*models.UserSuggestion, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSuggestion), args.Error(1)
}

func (m *MockService) Explore(ctx context.Context, userID uuid.UUID) (*models.UserSuggestion, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSuggestion), args.Error(1)
}

func (m *MockService) SuggestByCategory(ctx context.Context, userID uuid.UUID, categoryID int64) (*models.CategorySuggestions, error) {
	args := m.Called(userID, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategorySuggestions), args.Error(1)
}

func (m *MockService) Trigger(ctx context.Context, userID uuid.UUID, req models.TriggerRequest) (*models.TriggerResult, error) {
	args := m.Called(userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TriggerResult), args.Error(1)
}

func (m *MockService) Act(ctx context.Context, userID uuid.UUID, req models.SuggestionActionRequest) (*models.SuggestionActionResult, error) {
	args := m.Called(userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SuggestionActionResult), args.Error(1)
}

func (m *MockService) TriggerLevelUp(dbc dbctx.Context, userID uuid.UUID, newLevel int) ([]models.UserSuggestion, error) {
	args := m.Called(userID, newLevel)
	return args.Get(0).([]models.UserSuggestion), args.Error(1)
}

func (m *MockService) NotifyNewPlace(dbc dbctx.Context, place models.Place) (*models.Suggestion, error) {
	args := m.Called(place)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Suggestion), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, req models.CreateSuggestionRequest) (*models.Suggestion, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Suggestion), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id int64, req models.UpdateSuggestionRequest) (*models.Suggestion, error) {
	args := m.Called(id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Suggestion), args.Error(1)
}

func (m *MockService) List(ctx context.Context, filter ListFilter) ([]models.Suggestion, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.Suggestion), args.Error(1)
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
	r.GET("/suggestions", h.GetBest)
	r.POST("/suggestions", h.Act)
	r.POST("/suggestions/trigger", h.Trigger)
	r.GET("/suggest-by-category", h.ByCategory)
	return r
}

func TestHandler_GetBest(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}

	t.Run("no suggestion is a 200", func(t *testing.T) {
		svc := new(MockService)
		svc.On("BestSuggestion", identity.UserID).Return(nil, models.ErrNoSuggestion).Once()

		w := httptest.NewRecorder()
		newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suggestions", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Nil(t, body["suggestion"])
		assert.Equal(t, "No suggestions available right now", body["message"])
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestRouter(new(MockService), nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suggestions", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandler_Act(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockService)
		wantStatus int
	}{
		{
			name: "dismissed",
			body: `{"suggestion_id": 3, "action": "dismiss"}`,
			setupMock: func(s *MockService) {
				s.On("Act", identity.UserID, models.SuggestionActionRequest{SuggestionID: 3, Action: models.ActionDismiss}).
					Return(&models.SuggestionActionResult{Changed: true, Message: "Suggestion dismissed"}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "unknown user suggestion",
			body: `{"suggestion_id": 3, "action": "follow"}`,
			setupMock: func(s *MockService) {
				s.On("Act", identity.UserID, models.SuggestionActionRequest{SuggestionID: 3, Action: models.ActionFollow}).
					Return(nil, models.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "invalid action",
			body: `{"suggestion_id": 3, "action": "snooze"}`,
			setupMock: func(s *MockService) {
				s.On("Act", identity.UserID, models.SuggestionActionRequest{SuggestionID: 3, Action: "snooze"}).
					Return(nil, models.ErrValidation).Once()
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing id",
			body:       `{"action": "dismiss"}`,
			setupMock:  func(s *MockService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockService)
			tc.setupMock(svc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/suggestions", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			newTestRouter(svc, identity).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_ByCategory(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	svc := new(MockService)
	svc.On("SuggestByCategory", identity.UserID, int64(2)).
		Return(&models.CategorySuggestions{Category: models.Category{ID: 2, Name: "Food"}, Places: []models.Place{}}, nil).Once()

	w := httptest.NewRecorder()
	newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suggest-by-category?category_id=2", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suggest-by-category", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}
