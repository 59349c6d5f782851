package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks HS256 tokens signed with the project's JWT secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}
}

// Verify parses token and returns the user it identifies. Expired tokens
// yield ErrTokenExpired; every other failure is ErrInvalidToken.
func (v *Verifier) Verify(token string) (User, error) {
	if token == "" {
		return User{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return User{}, ErrTokenExpired
	case err != nil:
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return User{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	u := User{ID: sub, Claims: claims}
	u.Email, _ = claims["email"].(string)
	u.Role, _ = claims["role"].(string)
	return u, nil
}

// Sign issues an HS256 token for u valid for ttl. Used by tests and the
// operator CLI.
func (v *Verifier) Sign(u User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": u.ID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"aud": "authenticated",
	}
	if u.Email != "" {
		claims["email"] = u.Email
	}
	if u.Role != "" {
		claims["role"] = u.Role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
