package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"collegeerp/internal/directory"
	"collegeerp/internal/session"
)

const sessionCtxKey = "session"

// TokenFromRequest reads a bearer token, falling back to the currentUser
// cookie that browsers carry.
func TokenFromRequest(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if cookie, err := c.Cookie(session.Key); err == nil {
		return cookie
	}
	return ""
}

// RequireSession lets the request through only when its token names a live
// session; the session is then available through FromContext.
func RequireSession(resolver *session.Resolver, signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := TokenFromRequest(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		s, err := resolver.Current(c.Request.Context(), claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		c.Set(sessionCtxKey, s)
		c.Next()
	}
}

// RequireRole must run after RequireSession.
func RequireRole(roles ...directory.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		if !slices.Contains(roles, s.User.Role()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// FromContext returns the session set by RequireSession.
func FromContext(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}
