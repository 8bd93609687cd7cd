package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

type mockTokenRepo struct {
	records map[string]*models.RefreshToken
	revoked []string
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{records: map[string]*models.RefreshToken{}}
}

func (m *mockTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	m.records[token.ID] = token
	return nil
}

func (m *mockTokenRepo) FindUsable(ctx context.Context, id, tokenHash string) (*models.RefreshToken, error) {
	record, ok := m.records[id]
	if !ok || record.IsRevoked || record.TokenHash != tokenHash {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (m *mockTokenRepo) Revoke(ctx context.Context, id string) error {
	if record, ok := m.records[id]; ok {
		record.IsRevoked = true
	}
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	for _, record := range m.records {
		if record.UserID == userID {
			record.IsRevoked = true
		}
	}
	return nil
}

func newTokenService(repo *mockTokenRepo) *TokenService {
	return NewTokenService(repo, zap.NewNop(), TokenConfig{Secret: "secret", Expiry: time.Hour})
}

func TestTokenServiceGenerateStoresHashOnly(t *testing.T) {
	repo := newMockTokenRepo()
	svc := newTokenService(repo)

	token, err := svc.Generate(context.Background(), "u1", "agent", "127.0.0.1")
	require.NoError(t, err)
	require.Len(t, repo.records, 1)
	for _, record := range repo.records {
		assert.NotEqual(t, token, record.TokenHash)
		assert.Len(t, record.TokenHash, 64)
		assert.Equal(t, "u1", record.UserID)
	}
}

func TestTokenServiceValidateRoundTrip(t *testing.T) {
	repo := newMockTokenRepo()
	svc := newTokenService(repo)

	token, err := svc.Generate(context.Background(), "u1", "", "")
	require.NoError(t, err)

	record, ok := svc.Validate(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, "u1", record.UserID)
}

func TestTokenServiceValidateRejectsForgedToken(t *testing.T) {
	repo := newMockTokenRepo()
	svc := newTokenService(repo)
	other := NewTokenService(repo, zap.NewNop(), TokenConfig{Secret: "other-secret", Expiry: time.Hour})

	token, err := other.Generate(context.Background(), "u1", "", "")
	require.NoError(t, err)

	_, ok := svc.Validate(context.Background(), token)
	assert.False(t, ok)
}

func TestTokenServiceValidateRejectsRevokedToken(t *testing.T) {
	repo := newMockTokenRepo()
	svc := newTokenService(repo)

	token, err := svc.Generate(context.Background(), "u1", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), token))

	_, ok := svc.Validate(context.Background(), token)
	assert.False(t, ok)
}

func TestTokenServiceRevokeIgnoresGarbage(t *testing.T) {
	repo := newMockTokenRepo()
	svc := newTokenService(repo)

	require.NoError(t, svc.Revoke(context.Background(), "not-a-jwt"))
	assert.Empty(t, repo.revoked)
}
