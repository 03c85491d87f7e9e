package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/model"
	appErr "github.com/xxxsen/assetgw/internal/pkg/errors"
)

const maxNameAttempts = 16

type localConfig struct {
	Dir       string `json:"dir"`
	PublicURL string `json:"public_url"`
}

type localStore struct {
	dir       string
	publicURL string
	now       func() time.Time
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: config.Dir, publicURL: config.PublicURL, now: time.Now}, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) url(id string) string {
	return joinURL(s.publicURL, id)
}

func (s *localStore) Save(ctx context.Context, namespace string, upload *model.Upload) (*model.Asset, error) {
	_ = ctx
	ns, ok := cleanID(namespace)
	if !ok {
		return nil, appErr.Invalid("invalid namespace")
	}
	dir := filepath.Join(s.dir, filepath.FromSlash(ns))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, appErr.Internal("create upload dir", err)
	}
	now := s.now()
	base := sanitizeFilename(upload.Name)
	var (
		name string
		out  *os.File
		err  error
	)
	// O_EXCL keeps two uploads in the same millisecond from clobbering each other.
	for i := int64(0); i < maxNameAttempts; i++ {
		name = strconv.FormatInt(now.UnixMilli()+i, 10) + "-" + base
		out, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, appErr.Internal("create file", err)
	}
	if _, err := out.Write(upload.Data); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return nil, appErr.Internal("write file", err)
	}
	if err := out.Close(); err != nil {
		return nil, appErr.Internal("close file", err)
	}

	id := path.Join(ns, name)
	contentType, width, height := probeImage(upload.Data, upload.ContentType)
	return &model.Asset{
		ID:          id,
		DisplayName: base,
		URL:         s.url(id),
		Width:       width,
		Height:      height,
		Size:        int64(len(upload.Data)),
		ContentType: contentType,
		CreatedAt:   now.Unix(),
	}, nil
}

func (s *localStore) List(ctx context.Context, namespace string, limit int) (*model.ListResult, error) {
	ns, ok := cleanID(namespace)
	if !ok {
		return nil, appErr.Invalid("invalid namespace")
	}
	result := &model.ListResult{Files: []model.Asset{}}
	entries, err := os.ReadDir(filepath.Join(s.dir, filepath.FromSlash(ns)))
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		logutil.GetLogger(ctx).Error("read upload dir failed", zap.String("namespace", ns), zap.Error(err))
		result.Error = "failed to read upload directory: " + err.Error()
		return result, nil
	}
	for _, entry := range entries {
		if limit > 0 && len(result.Files) >= limit {
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := path.Join(ns, entry.Name())
		result.Files = append(result.Files, model.Asset{
			ID:          id,
			DisplayName: localDisplayName(entry.Name()),
			URL:         s.url(id),
			Size:        info.Size(),
			CreatedAt:   info.ModTime().Unix(),
		})
	}
	return result, nil
}

func (s *localStore) Remove(ctx context.Context, id string) error {
	_ = ctx
	cleaned, ok := cleanID(id)
	if !ok {
		return appErr.Invalid("invalid id")
	}
	target := filepath.Join(s.dir, filepath.FromSlash(cleaned))
	info, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return appErr.NotFound("file not found: " + cleaned)
	}
	if err != nil {
		return appErr.Internal("stat file", err)
	}
	if !info.Mode().IsRegular() {
		return appErr.NotFound("file not found: " + cleaned)
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return appErr.NotFound("file not found: " + cleaned)
		}
		return appErr.Internal("remove file", err)
	}
	return nil
}

// localDisplayName strips the "<unixmillis>-" prefix added on save.
func localDisplayName(name string) string {
	prefix, rest, ok := strings.Cut(name, "-")
	if !ok || rest == "" {
		return name
	}
	if _, err := strconv.ParseInt(prefix, 10, 64); err != nil {
		return name
	}
	return rest
}
