package models

import "github.com/golang-jwt/jwt/v5"

// RegisterRequest creates a new user account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"max=50"`
	LastName    string `json:"last_name" validate:"max=50"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// AuthResponse returns the issued tokens and user profile.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserProfile `json:"user"`
}

// RefreshTokenResponse returns the rotated token pair.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// JWTClaims is the access token payload. Role carries the primary role name
// (first resolved role, USER when none); Roles carries the full set.
type JWTClaims struct {
	Email string   `json:"email"`
	Role  string   `json:"role"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh token payload.
type RefreshClaims struct {
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}
