package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload of a session access token. The subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates session access tokens.
type TokenIssuer struct {
	secret []byte
	clock  clock.Clock
}

// NewTokenIssuer creates an issuer signing with secret. Expiry is checked
// against clk.
func NewTokenIssuer(secret string, clk clock.Clock) *TokenIssuer {
	if clk == nil {
		clk = clock.Real()
	}
	return &TokenIssuer{secret: []byte(secret), clock: clk}
}

// Issue creates a token for user that expires at the same instant as the
// session.
func (s *TokenIssuer) Issue(user models.User, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		Email: user.Email,
		Role:  string(models.ParseRole(user.UserMetadata.Role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token, returning its claims.
func (s *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
