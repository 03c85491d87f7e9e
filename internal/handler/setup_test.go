package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/assetgw/internal/filestore"
	"github.com/xxxsen/assetgw/internal/handler"
	"github.com/xxxsen/assetgw/internal/middleware"
	"github.com/xxxsen/assetgw/internal/model"
)

const (
	testAPIKey    = "test-secret"
	testKeyHeader = "x-api-key"
	uploadPath    = "/api/v1/upload"
)

// memoryStore behaves like a remote backend: removing an unknown id is a no-op.
type memoryStore struct {
	mu        sync.Mutex
	items     []model.Asset
	seq       int
	calls     int
	saveErr   error
	listErr   error
	removeErr error
}

func (s *memoryStore) Type() string {
	return "memory"
}

func (s *memoryStore) Save(ctx context.Context, namespace string, upload *model.Upload) (*model.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.seq++
	asset := model.Asset{
		ID:          fmt.Sprintf("%s/%d-%s", namespace, s.seq, upload.Name),
		DisplayName: upload.Name,
		URL:         fmt.Sprintf("https://cdn.example.com/%s/%d-%s", namespace, s.seq, upload.Name),
		Size:        int64(len(upload.Data)),
	}
	s.items = append([]model.Asset{asset}, s.items...)
	return &asset, nil
}

func (s *memoryStore) List(ctx context.Context, namespace string, limit int) (*model.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	files := append([]model.Asset(nil), s.items...)
	if len(files) > limit {
		files = files[:limit]
	}
	return &model.ListResult{Files: files}, nil
}

func (s *memoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.removeErr != nil {
		return s.removeErr
	}
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func setupRouter(t *testing.T, store filestore.Store, maxUploadBytes int64) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	deps := handler.RouterDeps{
		Uploads:      handler.NewUploadHandler(store, maxUploadBytes),
		APIKeyHeader: testKeyHeader,
		APIKey:       []byte(testAPIKey),
	}
	cors := middleware.NewCORSPolicy(nil, testKeyHeader)
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Recovery(),
			cors.Middleware(),
			handler.Unrouted("/api/v1", deps),
		),
	)
	require.NoError(t, err)
	return handler.NewEdge(engine, cors, deps)
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func authed(req *http.Request) *http.Request {
	req.Header.Set(testKeyHeader, testAPIKey)
	return req
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if filename != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, writer.WriteField(field, string(data)))
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, uploadPath, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func deleteRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, uploadPath, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func requireCORS(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, DELETE, OPTIONS", resp.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type, x-api-key", resp.Header().Get("Access-Control-Allow-Headers"))
}
