package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/pkg/response"
)

// Recovery turns a panic anywhere below it into the 500 error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logutil.GetLogger(c.Request.Context()).Error("panic recovered",
				zap.String("request_id", c.GetString(ContextRequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			if !c.Writer.Written() {
				response.ErrorWithDetails(c, http.StatusInternalServerError, "Server error", fmt.Sprint(rec))
			}
			c.Abort()
		}()
		c.Next()
	}
}
