package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin/render"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/middleware"
	"github.com/xxxsen/assetgw/internal/pkg/response"
)

// Edge sits in front of the web engine. The engine's built-in middlewares
// can answer a request before any gin middleware of ours runs, so the CORS
// headers are stamped here first. Bodies of unknown length are buffered here
// as well, bounded by the upload limit instead of the engine's fixed cap.
type Edge struct {
	next      http.Handler
	cors      *middleware.CORSPolicy
	keyHeader string
	key       []byte
	maxUpload int64
}

func NewEdge(next http.Handler, cors *middleware.CORSPolicy, deps RouterDeps) *Edge {
	e := &Edge{
		next:      next,
		cors:      cors,
		keyHeader: deps.APIKeyHeader,
		key:       deps.APIKey,
	}
	if deps.Uploads != nil {
		e.maxUpload = deps.Uploads.maxUploadBytes
	}
	return e
}

func (e *Edge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.cors != nil {
		e.cors.Apply(r.Header.Get("Origin"), w.Header())
	}
	if r.ContentLength < 0 && e.maxUpload > 0 && !e.bufferBody(w, r) {
		return
	}
	e.next.ServeHTTP(w, r)
}

// bufferBody reads a body of unknown length into memory and fixes up
// ContentLength. It returns false once it has written a response itself.
func (e *Edge) bufferBody(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodOptions || !middleware.KeyMatches(r.Header.Get(e.keyHeader), e.key) {
		// The request is answered without reading the body.
		r.Body = http.NoBody
		r.ContentLength = 0
		return true
	}
	limit := e.maxUpload + multipartOverhead
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		logutil.GetLogger(r.Context()).Error("read chunked body failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeEnvelope(w, http.StatusInternalServerError, response.ErrorBody{Error: "Server error", Details: "read request body: " + err.Error()})
		return false
	}
	if int64(len(data)) > limit {
		logutil.GetLogger(r.Context()).Warn("chunked body exceeds upload limit", zap.String("path", r.URL.Path), zap.Int64("limit", limit))
		writeEnvelope(w, http.StatusBadRequest, response.ErrorBody{Error: uploadTooLargeMessage(e.maxUpload)})
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))
	return true
}

func writeEnvelope(w http.ResponseWriter, status int, body response.ErrorBody) {
	out := render.JSON{Data: body}
	out.WriteContentType(w)
	w.WriteHeader(status)
	_ = out.Render(w)
}
