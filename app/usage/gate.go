package usage

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrPasswordNotConfigured = errors.New("admin password not configured")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrInvalidToken          = errors.New("invalid usage token")
)

const (
	TokenTTL = 12 * time.Hour

	tokenIssuer   = "eyes-on-docs"
	tokenAudience = "usage"
)

// Gate guards the usage view with a shared password. A successful password
// check yields a signed token that later requests present instead.
type Gate struct {
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewGate creates a gate. Without a secret a random one is generated, so
// tokens do not survive a restart.
func NewGate(password, secret string) (*Gate, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
	}

	return &Gate{
		password: password,
		secret:   key,
		ttl:      TokenTTL,
		now:      time.Now,
	}, nil
}

func (g *Gate) Configured() bool {
	return g.password != ""
}

// Authenticate checks the password and issues a usage token.
func (g *Gate) Authenticate(password string) (string, error) {
	if !g.Configured() {
		return "", ErrPasswordNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) != 1 {
		return "", ErrInvalidPassword
	}

	now := g.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign usage token: %w", err)
	}
	return token, nil
}

func (g *Gate) Verify(token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}
