package services

import (
	"context"
	"time"

	"amoura-chat/config"
	apperrors "amoura-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService verifies platform-issued access tokens. This service has no
// user store of its own: identity is minted by the user service and arrives
// here as a signed JWT.
type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, apperrors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, apperrors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, apperrors.ErrUnauthorized
	}

	return *claims, nil
}

// IssueAccessToken mints a token locally. Used by the dev seed tooling and
// tests; production tokens come from the user service with the same secret.
func (s *AuthService) IssueAccessToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type ctxKey int

const userIDKey ctxKey = iota

func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
