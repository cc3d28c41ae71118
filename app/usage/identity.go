package usage

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ResolveIdentity reads the user from a session token issued by the upstream
// sign-in layer. Callers treat any error as an anonymous visitor.
func ResolveIdentity(secret, token string) (Identity, error) {
	if secret == "" {
		return Identity{}, errors.New("session secret not configured")
	}
	if token == "" {
		return Identity{}, errors.New("no session token")
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("invalid session token: %w", err)
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	if name == "" {
		return Identity{}, errors.New("session token has no user")
	}

	return Identity{Name: name, Email: claims.Email}, nil
}
