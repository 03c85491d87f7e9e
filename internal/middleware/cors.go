package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const allowMethods = "GET, POST, DELETE, OPTIONS"

// CORSPolicy holds the allowlist. An empty allowlist allows any origin.
type CORSPolicy struct {
	allowed      map[string]struct{}
	allowAll     bool
	allowHeaders string
}

func NewCORSPolicy(allowlist []string, credentialHeader string) *CORSPolicy {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, origin := range allowlist {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}
	allowHeaders := "Content-Type"
	if credentialHeader != "" {
		allowHeaders += ", " + credentialHeader
	}
	return &CORSPolicy{
		allowed:      allowed,
		allowAll:     len(allowed) == 0,
		allowHeaders: allowHeaders,
	}
}

// Apply sets the policy headers for a request coming from origin.
func (p *CORSPolicy) Apply(origin string, header http.Header) {
	if p.allowAll {
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", allowMethods)
		header.Set("Access-Control-Allow-Headers", p.allowHeaders)
		return
	}
	if origin == "" {
		return
	}
	if _, ok := p.allowed[origin]; !ok {
		return
	}
	header.Set("Access-Control-Allow-Origin", origin)
	header.Set("Vary", "Origin")
	header.Set("Access-Control-Allow-Methods", allowMethods)
	header.Set("Access-Control-Allow-Headers", p.allowHeaders)
}

// Middleware answers preflight requests itself and stamps the policy headers
// on every other response.
func (p *CORSPolicy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p.Apply(c.GetHeader("Origin"), c.Writer.Header())
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func CORS(allowlist []string, credentialHeader string) gin.HandlerFunc {
	return NewCORSPolicy(allowlist, credentialHeader).Middleware()
}
