package visits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Visit(ctx context.Context, userID uuid.UUID, placeID int64) (*models.VisitResult, error) {
	args := m.Called(userID, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VisitResult), args.Error(1)
}

func (m *MockService) History(ctx context.Context, userID uuid.UUID) ([]models.Visit, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Visit), args.Error(1)
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
	r.POST("/visit", h.Visit)
	r.GET("/user/visits", h.History)
	return r
}

func postVisit(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/visit", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Visit(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}

	t.Run("first visit", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Visit", identity.UserID, int64(7)).Return(&models.VisitResult{
			Place: "Library", PlaceID: 7, XP: 120, Level: 2, Visits: 3,
			Badges: []string{"scholar"}, LeveledUp: true, Message: "Place visited successfully",
		}, nil).Once()

		w := postVisit(newTestRouter(svc, identity), `{"place_id":7}`)
		require.Equal(t, http.StatusOK, w.Code)

		var got models.VisitResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 2, got.Level)
		assert.True(t, got.LeveledUp)
		assert.Equal(t, []string{"scholar"}, got.Badges)
		svc.AssertExpectations(t)
	})

	t.Run("repeat visit keeps the shape", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Visit", identity.UserID, int64(7)).Return(&models.VisitResult{
			Place: "Library", PlaceID: 7, XP: 120, Level: 2, Visits: 3, Badges: []string{"scholar"},
			AlreadyVisited: true, Message: "You have already visited this place",
		}, nil).Once()

		w := postVisit(newTestRouter(svc, identity), `{"place_id":7}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"already_visited":true`)
		assert.Contains(t, w.Body.String(), `"xp":120`)
	})

	t.Run("missing place", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Visit", identity.UserID, int64(99)).
			Return(nil, fmt.Errorf("error loading place: %w", models.ErrNotFound)).Once()

		w := postVisit(newTestRouter(svc, identity), `{"place_id":99}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"place_id":0}`, `{"place_id":"x"}`} {
			w := postVisit(newTestRouter(new(MockService), identity), body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		w := postVisit(newTestRouter(new(MockService), nil), `{"place_id":7}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandler_History(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	svc := new(MockService)
	svc.On("History", identity.UserID).Return([]models.Visit{
		{ID: 1, UserID: identity.UserID, PlaceID: 7, PlaceName: "Library"},
	}, nil).Once()

	w := httptest.NewRecorder()
	newTestRouter(svc, identity).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/visits", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), "Library")
}
