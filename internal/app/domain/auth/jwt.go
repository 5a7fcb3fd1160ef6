package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims represents the JWT claims issued by the identity provider.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the caller identity used by handlers.
func (c *Claims) Identity() (models.Identity, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: user_id is not a uuid", ErrInvalidToken)
	}
	return models.Identity{
		UserID:   id,
		Email:    c.Email,
		Username: c.Username,
		IsAdmin:  c.IsAdmin,
	}, nil
}

type TokenService struct {
	secret     []byte
	expiration time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewTokenService(secret string, expiration time.Duration, logger *zap.Logger) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		expiration: expiration,
		logger:     logger,
		now:        time.Now,
	}
}

// GenerateToken signs an HS256 token for identity. Production tokens come
// from the identity provider; this exists for development and tests.
func (s *TokenService) GenerateToken(identity models.Identity) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   identity.UserID.String(),
		Email:    identity.Email,
		Username: identity.Username,
		IsAdmin:  identity.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates an HS256 token.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
