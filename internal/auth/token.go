// Package auth reads the claims of the bearer token issued by the auth
// service. The signature cannot be checked on the client, so nothing here is
// a substitute for the server's verdict.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptyToken = errors.New("token is empty")

type claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type TokenInfo struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect decodes token without verifying its signature.
func Inspect(token string) (*TokenInfo, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrEmptyToken
	}

	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	info := &TokenInfo{
		UserID: c.UserID,
		Email:  c.Email,
	}
	if info.UserID == "" {
		info.UserID = c.Subject
	}
	if c.IssuedAt != nil {
		info.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		info.ExpiresAt = c.ExpiresAt.Time
	}

	return info, nil
}

// Expired reports whether the token has expired at now. Tokens without an
// expiry never expire.
func (t *TokenInfo) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// Remaining returns the validity left at now, zero once expired.
func (t *TokenInfo) Remaining(now time.Time) time.Duration {
	if t == nil || t.ExpiresAt.IsZero() || t.Expired(now) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}
