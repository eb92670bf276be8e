package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/config"
)

const (
	corsAllowHeaders  = "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With, X-Request-ID"
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsExposeHeaders = "Content-Length, X-Request-ID"
)

// CORSConfig lists the browser origins allowed to call the API and to
// subscribe to the event feed.
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// NewCORSConfig converts the server configuration section.
func NewCORSConfig(cfg config.CORSConfig) CORSConfig {
	return CORSConfig{AllowedOrigins: cfg.AllowedOrigins, AllowAllOrigins: cfg.AllowAllOrigins}
}

// CORS sets the allow headers for permitted origins and answers preflight
// requests. With no origins configured any origin is echoed; review routes
// still need a bearer token.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		header := c.Writer.Header()

		switch {
		case cfg.AllowAllOrigins:
			header.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && (len(cfg.AllowedOrigins) == 0 || IsOriginAllowed(origin, cfg)):
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Add("Vary", "Origin")
		default:
			c.Next()
			return
		}

		header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		header.Set("Access-Control-Allow-Methods", corsAllowMethods)
		header.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// IsOriginAllowed reports whether origin is explicitly permitted.
func IsOriginAllowed(origin string, cfg CORSConfig) bool {
	if cfg.AllowAllOrigins {
		return true
	}
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// WebsocketOrigin returns the origin check of the event feed upgrade.
// Clients without an Origin header and same-host pages are accepted;
// other origins must be listed, an empty list admits none of them.
func WebsocketOrigin(cfg CORSConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return IsOriginAllowed(origin, cfg)
	}
}
