package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/trace"
)

const ContextRequestIDKey = "request_id"

// RequestID echoes the request id back to the client. When the webapi trace
// middleware already assigned one it is reused, so logs carry a single id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID, ok := trace.GetTraceId(c.Request.Context())
		if !ok || reqID == "" {
			reqID = c.GetHeader("X-Request-Id")
		}
		if reqID == "" {
			reqID = newRequestID()
			c.Request = c.Request.WithContext(trace.WithTraceId(c.Request.Context(), reqID))
		}
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
	}
}

func newRequestID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
