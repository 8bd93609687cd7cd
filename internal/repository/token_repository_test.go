package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

func TestTokenCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.RefreshToken{
		ID:        "t1",
		TokenHash: "digest",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenFindUsable(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "token_hash", "user_id", "expires_at", "is_revoked", "user_agent", "ip_address", "created_at"}).
		AddRow("t1", "digest", "u1", now.Add(time.Hour), false, "", "", now)
	mock.ExpectQuery("SELECT id, token_hash, user_id, expires_at, is_revoked, user_agent, ip_address, created_at FROM refresh_tokens").
		WithArgs("t1", "digest", sqlmock.AnyArg()).
		WillReturnRows(rows)

	token, err := repo.FindUsable(context.Background(), "t1", "digest")
	require.NoError(t, err)
	assert.Equal(t, "u1", token.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenFindUsableNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery("SELECT id, token_hash, user_id, expires_at, is_revoked, user_agent, ip_address, created_at FROM refresh_tokens").
		WithArgs("t1", "wrong", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUsable(context.Background(), "t1", "wrong")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRevokeAllForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET is_revoked = TRUE WHERE user_id = $1 AND is_revoked = FALSE")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.RevokeAllForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
