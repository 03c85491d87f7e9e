package handler

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/assetgw/internal/middleware"
	"github.com/xxxsen/assetgw/internal/pkg/response"
)

type RouterDeps struct {
	Uploads      *UploadHandler
	APIKeyHeader string
	APIKey       []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.APIKey(deps.APIKeyHeader, deps.APIKey))
	authGroup.Any("/upload", deps.Uploads.Handle)
}

// Unrouted must be the last global middleware. gin runs requests that match
// no route through the global middlewares only and then writes a plain text
// 404 unless something already answered. Methods outside gin's Any set on the
// upload path still pass the key check and get a 405, other paths a 404.
func Unrouted(prefix string, deps RouterDeps) gin.HandlerFunc {
	auth := middleware.APIKey(deps.APIKeyHeader, deps.APIKey)
	uploadPath := path.Join("/", prefix, "upload")
	return func(c *gin.Context) {
		c.Next()
		if c.FullPath() != "" || c.Writer.Written() || c.IsAborted() {
			return
		}
		if c.Request.URL.Path != uploadPath {
			response.Error(c, http.StatusNotFound, "Not Found")
			return
		}
		auth(c)
		if c.IsAborted() {
			return
		}
		response.Error(c, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}
