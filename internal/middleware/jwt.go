package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evently-demo/backend/internal/auth"
	"github.com/evently-demo/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// TokenVerifier validates session access tokens.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// JWT returns a middleware that requires a valid session access token and
// sets the user's claims in context.
func JWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		claims, err := verifier.VerifyAccessToken(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
