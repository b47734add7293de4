package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"barplexity/internal/auth"
	"barplexity/internal/pkg/jwtutil"
	"barplexity/internal/transport/http/response"
)

const (
	ContextUserIDKey    = "user_id"
	ContextIsAdminKey   = "is_admin"
	ContextSessionIDKey = "auth_session_id"

	// SessionCookieName carries the signed token between requests.
	SessionCookieName = "bp_session"
)

// SessionChecker verifies that a token's session id is still registered.
type SessionChecker interface {
	Get(ctx context.Context, sessionID string) (*auth.Identity, error)
}

// RequireAuth accepts the session cookie or a bearer token, verifies the
// signature, and rejects tokens whose server-side session has been revoked.
func RequireAuth(secret string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not logged in")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		identity, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "verify session failed")
			c.Abort()
			return
		}
		if identity == nil || identity.UserID != claims.UserID {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "session expired or revoked")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextIsAdminKey, identity.IsAdmin)
		c.Set(ContextSessionIDKey, identity.SessionID)
		c.Next()
	}
}

// RequireAdmin runs after RequireAuth and rejects non-admin identities.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdminAny, exists := c.Get(ContextIsAdminKey)
		isAdmin, ok := isAdminAny.(bool)
		if !exists || !ok || !isAdmin {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if strings.HasPrefix(authHeader, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	}
	return ""
}
