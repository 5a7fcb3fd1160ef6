package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

// TokenHandler mints tokens for local development. It is only routed when
// jwt_dev_tokens is set.
type TokenHandler struct {
	*domain.BaseHandler
	tokens *TokenService
}

func NewTokenHandler(tokens *TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{BaseHandler: domain.NewBaseHandler(logger), tokens: tokens}
}

type GenerateTokenRequest struct {
	UserID   string `json:"user_id" binding:"omitempty,uuid"`
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type GenerateTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expires_in"`
	UserID    string `json:"user_id"`
}

// GenerateToken handles POST /dev/token. A missing user_id gets a fresh one.
func (h *TokenHandler) GenerateToken(c *gin.Context) {
	var req GenerateTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	identity := models.Identity{Email: req.Email, Username: req.Username, IsAdmin: req.IsAdmin}
	if req.UserID != "" {
		identity.UserID = uuid.MustParse(req.UserID)
	} else {
		identity.UserID = uuid.New()
	}

	token, err := h.tokens.GenerateToken(identity)
	if err != nil {
		h.RespondError(c, err)
		return
	}

	h.Logger.Info("Development token generated",
		zap.String("user_id", identity.UserID.String()),
		zap.Bool("is_admin", identity.IsAdmin))

	c.JSON(http.StatusOK, GenerateTokenResponse{
		Token:     token,
		ExpiresIn: h.tokens.expiration.String(),
		UserID:    identity.UserID.String(),
	})
}

// VerifyToken handles GET /dev/verify and echoes the authenticated identity.
func (h *TokenHandler) VerifyToken(c *gin.Context) {
	identity, ok := h.RequireIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  identity.UserID,
		"email":    identity.Email,
		"username": identity.Username,
		"is_admin": identity.IsAdmin,
	})
}
