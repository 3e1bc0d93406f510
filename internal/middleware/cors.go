package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/homeservice-site/internal/config"
)

// corsPolicy is the configured CORS allow list, resolved once at startup.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   string
	headers   string
	maxAge    string
}

func newCORSPolicy(cfg config.Config) corsPolicy {
	p := corsPolicy{
		origins: make(map[string]struct{}, len(cfg.CORSAllowedOrigins)),
		methods: strings.Join(cfg.CORSAllowedMethods, ", "),
		headers: strings.Join(cfg.CORSAllowedHeaders, ", "),
	}
	for _, o := range cfg.CORSAllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	if secs := int(cfg.CORSMaxAge.Seconds()); secs > 0 {
		p.maxAge = strconv.Itoa(secs)
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[strings.ToLower(origin)]
	return ok
}

// CORS lets the public site read /reviews and the admin dashboard call the
// /admin API from the configured origins. Other origins get no CORS headers;
// their preflights still end with 204.
func CORS(cfg config.Config) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if policy.allows(origin) {
			h := c.Writer.Header()
			h.Add("Vary", "Origin")
			if policy.anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if preflight {
				h.Set("Access-Control-Allow-Methods", policy.methods)
				h.Set("Access-Control-Allow-Headers", policy.headers)
				if policy.maxAge != "" {
					h.Set("Access-Control-Max-Age", policy.maxAge)
				}
			} else {
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
			}
		}

		if preflight {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
