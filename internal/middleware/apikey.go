package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/pkg/response"
)

// APIKey rejects requests whose header does not match secret byte for byte.
func APIKey(header string, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.GetHeader(header)
		if !KeyMatches(value, secret) {
			logutil.GetLogger(c.Request.Context()).Warn("unauthorized request",
				zap.String("request_id", c.GetString(ContextRequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Bool("header_present", value != ""),
			)
			response.Error(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyMatches reports whether value equals secret. An empty secret matches nothing.
func KeyMatches(value string, secret []byte) bool {
	return len(secret) > 0 && subtle.ConstantTimeCompare([]byte(value), secret) == 1
}
