package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is a refresh token issued by the local identity provider.
// Only the SHA-256 digest of the token is persisted.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`
}

// NewRefreshToken builds the row recording token for userID.
func NewRefreshToken(userID, token string, expiresAt time.Time) RefreshToken {
	return RefreshToken{UserID: userID, TokenHash: HashRefreshToken(token), ExpiresAt: expiresAt}
}

// HashRefreshToken returns the digest under which token is stored.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
