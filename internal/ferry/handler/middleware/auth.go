package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/internal/pkg/core"
)

// CodeUnauthorized is the error code of rejected admin requests.
const CodeUnauthorized = 100003

const adminTokenEnv = "FERRY_ADMIN_TOKEN"

// AuthConfig holds configuration for Bearer token authentication.
type AuthConfig struct {
	// Enabled controls whether authentication is enforced.
	Enabled bool `json:"enabled"`

	// Token is the expected Bearer token value.
	// Can also be set via the FERRY_ADMIN_TOKEN environment variable.
	Token string `json:"-"`
}

// ResolveToken returns the effective token, checking env vars as fallback.
func (c *AuthConfig) ResolveToken() string {
	if c.Token != "" {
		return c.Token
	}
	return os.Getenv(adminTokenEnv)
}

// BearerAuth returns a Gin middleware that enforces Bearer token authentication.
// It does nothing without a token. Loopback requests are let through, so an
// operator on the host never needs the token.
func BearerAuth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		token := cfg.ResolveToken()
		if token == "" || isLocalRequest(c.Request) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, "missing Authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			reject(c, "invalid Authorization header format, expected 'Bearer <token>'")
			return
		}

		provided := authHeader[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			reject(c, "invalid bearer token")
			return
		}

		c.Next()
	}
}

func reject(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, core.ErrResponse{
		Code:    CodeUnauthorized,
		Message: msg,
	})
}

// isLocalRequest checks if a request originates from loopback address.
func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
