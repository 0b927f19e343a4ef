package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"spacebio-rag/internal/pkg/jwtutil"
	"spacebio-rag/internal/transport/http/response"
)

const ContextSubjectKey = "subject"

// TokenVerifier checks bearer tokens. When Enabled is false every request
// passes through.
type TokenVerifier interface {
	Enabled() bool
	Verify(token string) (*jwtutil.Claims, error)
}

func AuthJWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifier.Enabled() {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := verifier.Verify(token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}
