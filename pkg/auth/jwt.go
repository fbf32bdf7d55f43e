package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenUnreadable = errors.New("token is not a readable JWT")

// TokenInfo is what the console can learn from an access token without the
// server's signing key.
type TokenInfo struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that lies before now.
// Tokens without an exp claim never count as expired.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

type consoleClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Inspect decodes the token's claims without verifying the signature. The
// result is for display only; the API remains the authority on validity.
func Inspect(token Credential) (*TokenInfo, error) {
	claims := &consoleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(string(token), claims); err != nil {
		return nil, errors.Join(ErrTokenUnreadable, err)
	}

	info := &TokenInfo{Subject: claims.Subject, Email: claims.Email}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	// The API puts the account email in sub.
	if info.Email == "" {
		info.Email = claims.Subject
	}
	return info, nil
}
