package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/assetgw/internal/filestore"
	"github.com/xxxsen/assetgw/internal/model"
	appErr "github.com/xxxsen/assetgw/internal/pkg/errors"
	"github.com/xxxsen/assetgw/internal/pkg/response"
)

const (
	uploadNamespace = "uploads"
	listLimit       = 50

	// multipartOverhead leaves room for boundaries and part headers on top
	// of the file size limit.
	multipartOverhead = 1 << 20
)

type UploadHandler struct {
	store          filestore.Store
	maxUploadBytes int64
}

type deleteRequest struct {
	ID       string `json:"id"`
	FileID   string `json:"fileId"`
	PublicID string `json:"public_id"`
	Filename string `json:"filename"`
}

// target returns the unified id, falling back to the legacy per-backend keys.
func (r deleteRequest) target() string {
	for _, v := range []string{r.ID, r.FileID, r.PublicID, r.Filename} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func NewUploadHandler(store filestore.Store, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{store: store, maxUploadBytes: maxUploadBytes}
}

// Handle dispatches by method. All failures go through handleError.
func (h *UploadHandler) Handle(c *gin.Context) {
	var err error
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	case http.MethodPost:
		err = h.create(c)
	case http.MethodGet:
		err = h.list(c)
	case http.MethodDelete:
		err = h.remove(c)
	default:
		response.Error(c, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
	if err != nil {
		handleError(c, err)
	}
}

func (h *UploadHandler) create(c *gin.Context) error {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErr.Invalid(uploadTooLargeMessage(h.maxUploadBytes))
		}
		return appErr.Internal("parse multipart form", err)
	}
	files := form.File["file"]
	if len(files) == 0 {
		return appErr.Invalid("No file uploaded.")
	}
	if len(files) > 1 {
		return appErr.Invalid("Only one file can be uploaded per request.")
	}
	file := files[0]
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return appErr.Invalid(uploadTooLargeMessage(h.maxUploadBytes))
	}
	opened, err := file.Open()
	if err != nil {
		return appErr.Internal("open uploaded file", err)
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		return appErr.Internal("read uploaded file", err)
	}

	asset, err := h.store.Save(c.Request.Context(), uploadNamespace, &model.Upload{
		Name:        file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}
	response.Success(c, asset)
	return nil
}

func (h *UploadHandler) list(c *gin.Context) error {
	result, err := h.store.List(c.Request.Context(), uploadNamespace, listLimit)
	if err != nil {
		return err
	}
	if result.Files == nil {
		result.Files = []model.Asset{}
	}
	response.JSON(c, result)
	return nil
}

func (h *UploadHandler) remove(c *gin.Context) error {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return appErr.Internal("decode request body", err)
	}
	id := req.target()
	if id == "" {
		return appErr.Invalid("id is required")
	}
	if err := h.store.Remove(c.Request.Context(), id); err != nil {
		return err
	}
	response.Deleted(c, gin.H{"id": id})
	return nil
}
