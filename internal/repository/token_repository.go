package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

// TokenRepository provides database access for refresh token records.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create persists a refresh token record.
func (r *TokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, is_revoked, user_agent, ip_address, created_at) VALUES (:id, :token_hash, :user_id, :expires_at, :is_revoked, :user_agent, :ip_address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindUsable returns the token record matching id and hash, provided it is
// neither revoked nor expired.
func (r *TokenRepository) FindUsable(ctx context.Context, id, tokenHash string) (*models.RefreshToken, error) {
	const query = `SELECT id, token_hash, user_id, expires_at, is_revoked, user_agent, ip_address, created_at FROM refresh_tokens WHERE id = $1 AND token_hash = $2 AND is_revoked = FALSE AND expires_at > $3 LIMIT 1`
	var token models.RefreshToken
	if err := r.db.GetContext(ctx, &token, query, id, tokenHash, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

// Revoke marks a single token as revoked.
func (r *TokenRepository) Revoke(ctx context.Context, id string) error {
	const query = `UPDATE refresh_tokens SET is_revoked = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser marks every live token of a user as revoked.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET is_revoked = TRUE WHERE user_id = $1 AND is_revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes token records past their expiry and returns the number
// deleted.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
