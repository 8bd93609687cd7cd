package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type mockUserRepo struct {
	users            map[string]*models.User
	lastLoginUpdated bool
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*models.User{}}
	for _, user := range users {
		m.users[user.ID] = user
	}
	return m
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = fmt.Sprintf("u-%d", len(m.users)+1)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

type mockAuthRoles struct {
	roles    []string
	assigned map[string][]string
}

func (m *mockAuthRoles) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	return m.roles, nil
}

func (m *mockAuthRoles) AssignRolesToUser(ctx context.Context, userID string, roleNames []string) error {
	if m.assigned == nil {
		m.assigned = map[string][]string{}
	}
	m.assigned[userID] = append(m.assigned[userID], roleNames...)
	return nil
}

type mockAuthTokens struct {
	record    *models.RefreshToken
	valid     bool
	revoked   []string
	revokeAll []string
}

func (m *mockAuthTokens) Generate(ctx context.Context, userID, userAgent, ipAddress string) (string, error) {
	return "refresh-" + userID, nil
}

func (m *mockAuthTokens) Validate(ctx context.Context, tokenString string) (*models.RefreshToken, bool) {
	if !m.valid {
		return nil, false
	}
	return m.record, true
}

func (m *mockAuthTokens) Revoke(ctx context.Context, tokenString string) error {
	m.revoked = append(m.revoked, tokenString)
	return nil
}

func (m *mockAuthTokens) RevokeAll(ctx context.Context, userID string) error {
	m.revokeAll = append(m.revokeAll, userID)
	return nil
}

func newAuthService(users *mockUserRepo, roles *mockAuthRoles, tokens *mockAuthTokens) *AuthService {
	return NewAuthService(users, roles, tokens, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
	})
}

func activeUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return &models.User{ID: "u1", Email: "user@example.com", PasswordHash: string(hash), IsActive: true}
}

func TestAuthServiceRegister(t *testing.T) {
	users := newMockUserRepo()
	roles := &mockAuthRoles{roles: []string{models.RoleUser}}
	tokens := &mockAuthTokens{}
	svc := newAuthService(users, roles, tokens)

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "New@Example.com",
		Password:  "password123",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Jane Doe", res.User.DisplayName)

	created, err := users.FindByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", created.PasswordHash)
	assert.Equal(t, []string{models.RoleUser}, roles.assigned[created.ID])
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := newMockUserRepo(activeUser("password123"))
	svc := newAuthService(users, &mockAuthRoles{}, &mockAuthTokens{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "user@example.com", Password: "password123"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "email already registered", appErr.Message)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	users := newMockUserRepo(activeUser("password123"))
	roles := &mockAuthRoles{roles: []string{models.RoleSales}}
	svc := newAuthService(users, roles, &mockAuthTokens{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.True(t, users.lastLoginUpdated)

	claims, err := svc.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, models.RoleSales, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newMockUserRepo(activeUser("password123"))
	svc := newAuthService(users, &mockAuthRoles{}, &mockAuthTokens{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser("password123")
	user.IsActive = false
	svc := newAuthService(newMockUserRepo(user), &mockAuthRoles{}, &mockAuthTokens{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	users := newMockUserRepo(activeUser("password123"))
	tokens := &mockAuthTokens{valid: true, record: &models.RefreshToken{ID: "rt1", UserID: "u1"}}
	svc := newAuthService(users, &mockAuthRoles{}, tokens)

	res, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "refresh-u1", res.RefreshToken)
	assert.Equal(t, []string{"old-token"}, tokens.revoked)
}

func TestAuthServiceRefreshRejectsInvalidToken(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), &mockAuthRoles{}, &mockAuthTokens{valid: false})

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "bogus"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.Equal(t, "invalid refresh token", appErr.Message)
}

func TestAuthServiceLogoutAlwaysSucceeds(t *testing.T) {
	tokens := &mockAuthTokens{}
	svc := newAuthService(newMockUserRepo(), &mockAuthRoles{}, tokens)

	require.NoError(t, svc.Logout(context.Background(), "whatever"))
	assert.Equal(t, []string{"whatever"}, tokens.revoked)
}

func TestAuthServiceValidateAccessTokenRejectsForged(t *testing.T) {
	users := newMockUserRepo(activeUser("password123"))
	svc := newAuthService(users, &mockAuthRoles{}, &mockAuthTokens{})
	other := NewAuthService(users, &mockAuthRoles{}, &mockAuthTokens{}, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})

	res, err := other.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
