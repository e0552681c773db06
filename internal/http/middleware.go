package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"newsroom/internal/auth"
	"newsroom/internal/domain"
)

// TokenHeader is the request header carrying the session token. The
// custom header (rather than the bearer Authorization scheme) is kept for
// compatibility with existing clients.
const TokenHeader = "x-auth-token"

const identityContextKey = "newsroom.identity"

// RequireAuth rejects requests without a valid session token and attaches
// the decoded identity to the request context for downstream handlers.
func RequireAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "No token, authorization denied"})
			return
		}

		identity, err := tokens.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// RequireRole rejects requests whose authenticated identity does not hold
// the given role. Without a prior RequireAuth it fails closed with 401
// instead of panicking. The role comparison switches exhaustively so an
// unknown role never slips through.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "No user authenticated, authorization denied"})
			return
		}

		var allowed bool
		switch identity.Role {
		case domain.RoleAdmin:
			// Admins pass every role requirement.
			allowed = true
		case domain.RoleUser:
			allowed = role == domain.RoleUser
		default:
			allowed = false
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "Access denied. Administrator privileges required."})
			return
		}
		c.Next()
	}
}

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}
