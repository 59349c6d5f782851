// Package auth verifies Supabase access tokens and proxies signup and login
// to the Supabase GoTrue API.
package auth

import (
	"context"
	"errors"
)

var (
	ErrMissingToken = errors.New("not authenticated")
	ErrTokenExpired = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
)

// User is the identity carried by a verified access token.
type User struct {
	ID     string         `json:"id"`
	Email  string         `json:"email,omitempty"`
	Role   string         `json:"role,omitempty"`
	Claims map[string]any `json:"claims,omitempty"`
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying u.
func NewContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok
}
