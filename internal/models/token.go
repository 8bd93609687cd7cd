package models

import "time"

// RefreshToken is the server-side record of an issued refresh token. The id is
// embedded in the signed token as the tokenId claim; token_hash stores a
// SHA-256 digest of the signed token string, never the token itself.
type RefreshToken struct {
	ID        string    `db:"id" json:"id"`
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	IsRevoked bool      `db:"is_revoked" json:"is_revoked"`
	UserAgent string    `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
