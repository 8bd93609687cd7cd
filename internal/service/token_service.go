package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type tokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindUsable(ctx context.Context, id, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// TokenConfig defines signing parameters for refresh tokens.
type TokenConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// TokenService issues, validates and revokes refresh tokens. Only a SHA-256
// digest of the signed token ever reaches the database.
type TokenService struct {
	repo   tokenRepository
	logger *zap.Logger
	config TokenConfig
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(repo tokenRepository, logger *zap.Logger, config TokenConfig) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Expiry <= 0 {
		config.Expiry = 168 * time.Hour
	}
	return &TokenService{repo: repo, logger: logger, config: config}
}

// Generate signs a refresh token for the user and persists its record.
func (s *TokenService) Generate(ctx context.Context, userID, userAgent, ipAddress string) (string, error) {
	tokenID := uuid.NewString()
	now := time.Now().UTC()
	expiresAt := now.Add(s.config.Expiry)

	claims := &models.RefreshClaims{
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign refresh token")
	}

	record := &models.RefreshToken{
		ID:        tokenID,
		TokenHash: hashToken(signed),
		UserID:    userID,
		ExpiresAt: expiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	return signed, nil
}

// Validate verifies a refresh token and returns its record. Every failure mode
// reports plain absence; callers cannot distinguish a forged token from a
// revoked one.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*models.RefreshToken, bool) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, false
	}

	record, err := s.repo.FindUsable(ctx, claims.TokenID, hashToken(tokenString))
	if err != nil {
		return nil, false
	}
	if record.UserID != claims.Subject {
		return nil, false
	}
	return record, true
}

// Revoke invalidates the given refresh token. Unparseable tokens are ignored.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil
	}
	if err := s.repo.Revoke(ctx, claims.TokenID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}
	return nil
}

// RevokeAll invalidates every live refresh token of a user.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh tokens")
	}
	return nil
}

func (s *TokenService) parse(tokenString string) (*models.RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*models.RefreshClaims)
	if !ok || !token.Valid || claims.TokenID == "" {
		return nil, fmt.Errorf("invalid refresh claims")
	}
	return claims, nil
}

func hashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
