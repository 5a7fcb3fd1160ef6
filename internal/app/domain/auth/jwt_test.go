package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

const testSecret = "a-test-secret-of-enough-length"

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, zap.NewNop())
	identity := models.Identity{UserID: uuid.New(), Email: "a@campus.edu", Username: "ana", IsAdmin: true}

	token, err := svc.GenerateToken(identity)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	got, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, zap.NewNop())
	identity := models.Identity{UserID: uuid.New(), Email: "a@campus.edu"}

	other := NewTokenService("another-secret-of-enough-length", time.Hour, zap.NewNop())
	foreign, err := other.GenerateToken(identity)
	require.NoError(t, err)

	expired := NewTokenService(testSecret, time.Hour, zap.NewNop())
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.GenerateToken(identity)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: identity.UserID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClaims_IdentityRequiresUUID(t *testing.T) {
	_, err := (&Claims{UserID: "user-123"}).Identity()
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type stubEnsurer struct {
	seen []models.Identity
	err  error
}

func (s *stubEnsurer) EnsureUser(ctx context.Context, identity models.Identity) error {
	s.seen = append(s.seen, identity)
	return s.err
}

func newTestRouter(svc *TokenService, users UserEnsurer, optional bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(svc.Middleware(users, optional))
	r.GET("/me", func(c *gin.Context) {
		v, ok := c.Get(domain.IdentityKey)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": v.(models.Identity).UserID})
	})
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func request(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, zap.NewNop())
	user := models.Identity{UserID: uuid.New(), Email: "u@campus.edu"}
	admin := models.Identity{UserID: uuid.New(), Email: "root@campus.edu", IsAdmin: true}
	userToken, err := svc.GenerateToken(user)
	require.NoError(t, err)
	adminToken, err := svc.GenerateToken(admin)
	require.NoError(t, err)

	t.Run("valid token ensures the user", func(t *testing.T) {
		users := &stubEnsurer{}
		w := request(newTestRouter(svc, users, false), "/me", userToken)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.UserID.String())
		assert.Equal(t, []models.Identity{user}, users.seen)
	})

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, request(newTestRouter(svc, nil, false), "/me", "").Code)
	})

	t.Run("optional lets anonymous through", func(t *testing.T) {
		w := request(newTestRouter(svc, nil, true), "/me", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), "anonymous"))
	})

	t.Run("optional still rejects bad tokens", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, request(newTestRouter(svc, nil, true), "/me", "bogus").Code)
	})

	t.Run("user registration failure", func(t *testing.T) {
		users := &stubEnsurer{err: errors.New("db down")}
		assert.Equal(t, http.StatusInternalServerError, request(newTestRouter(svc, users, false), "/me", userToken).Code)
	})

	t.Run("admin gate", func(t *testing.T) {
		r := newTestRouter(svc, nil, false)
		assert.Equal(t, http.StatusForbidden, request(r, "/admin", userToken).Code)
		assert.Equal(t, http.StatusNoContent, request(r, "/admin", adminToken).Code)
	})
}

func TestTokenHandler_GenerateToken(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, zap.NewNop())
	h := NewTokenHandler(svc, zap.NewNop())
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/dev/token", h.GenerateToken)

	req := httptest.NewRequest(http.MethodPost, "/dev/token", strings.NewReader(`{"email":"dev@campus.edu","is_admin":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expires_in":"1h0m0s"`)

	req = httptest.NewRequest(http.MethodPost, "/dev/token", strings.NewReader(`{"email":"dev@campus.edu","user_id":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
