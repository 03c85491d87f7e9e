package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/model"
	appErr "github.com/xxxsen/assetgw/internal/pkg/errors"
)

const (
	// defaultRateLimitStatus is the status the vendor answers with once the
	// daily operation quota is used up.
	defaultRateLimitStatus = 420

	RateLimitHint = "Daily quota exceeded. Please try again after 09:00 UTC."
)

type minioConfig struct {
	Endpoint        string `json:"endpoint"`
	AccessKey       string `json:"access_key"`
	SecretKey       string `json:"secret_key"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Prefix          string `json:"prefix"`
	PublicURL       string `json:"public_url"`
	ThumbnailQuery  string `json:"thumbnail_query"`
	UseSSL          bool   `json:"use_ssl"`
	RateLimitStatus int    `json:"rate_limit_status"`
}

// minioAPI is the subset of *minio.Client the store calls.
type minioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type minioStore struct {
	client          minioAPI
	bucket          string
	prefix          string
	publicURL       string
	thumbnailQuery  string
	rateLimitStatus int
}

func init() {
	Register("minio", createMinioStore)
}

func createMinioStore(args interface{}) (Store, error) {
	config := &minioConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Endpoint == "" || config.Bucket == "" || config.AccessKey == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("minio endpoint/bucket/access_key/secret_key are required")
	}
	endpoint := config.Endpoint
	useSSL := config.UseSSL
	if strings.HasPrefix(endpoint, "https://") {
		useSSL = true
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: useSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	publicURL := strings.TrimSuffix(config.PublicURL, "/")
	if publicURL == "" {
		publicURL = buildBaseURL(endpoint, config.Bucket, useSSL)
	}
	store := newMinioStore(client, config.Bucket, config.Prefix, publicURL, config.ThumbnailQuery)
	if config.RateLimitStatus > 0 {
		store.rateLimitStatus = config.RateLimitStatus
	}
	return store, nil
}

func newMinioStore(client minioAPI, bucket, prefix, publicURL, thumbnailQuery string) *minioStore {
	return &minioStore{
		client:          client,
		bucket:          bucket,
		prefix:          strings.Trim(prefix, "/"),
		publicURL:       publicURL,
		thumbnailQuery:  thumbnailQuery,
		rateLimitStatus: defaultRateLimitStatus,
	}
}

func (s *minioStore) Type() string {
	return "minio"
}

func (s *minioStore) objectKey(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

func (s *minioStore) idOf(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

func (s *minioStore) asset(id string) model.Asset {
	fileURL := joinURL(s.publicURL, s.objectKey(id))
	return model.Asset{
		ID:           id,
		DisplayName:  displayName(id),
		URL:          fileURL,
		ThumbnailURL: thumbnailURL(fileURL, s.thumbnailQuery),
	}
}

func (s *minioStore) Save(ctx context.Context, namespace string, upload *model.Upload) (*model.Asset, error) {
	ns, ok := cleanID(namespace)
	if !ok {
		return nil, appErr.Invalid("invalid namespace")
	}
	id := path.Join(ns, randomHex(8)+"_"+sanitizeFilename(upload.Name))
	contentType, width, height := probeImage(upload.Data, upload.ContentType)
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(id), bytes.NewReader(upload.Data), int64(len(upload.Data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, s.classify(ctx, "put object", err)
	}
	asset := s.asset(id)
	asset.Width = width
	asset.Height = height
	asset.Size = int64(len(upload.Data))
	asset.ContentType = contentType
	return &asset, nil
}

func (s *minioStore) List(ctx context.Context, namespace string, limit int) (*model.ListResult, error) {
	ns, ok := cleanID(namespace)
	if !ok {
		return nil, appErr.Invalid("invalid namespace")
	}
	// Cancelling stops the listing goroutine once limit objects were read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.objectKey(ns) + "/",
		Recursive: true,
		MaxKeys:   limit,
	})
	result := &model.ListResult{Files: []model.Asset{}}
	for obj := range objects {
		if obj.Err != nil {
			return nil, s.classify(ctx, "list objects", obj.Err)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		asset := s.asset(s.idOf(obj.Key))
		asset.Size = obj.Size
		asset.ContentType = obj.ContentType
		if !obj.LastModified.IsZero() {
			asset.CreatedAt = obj.LastModified.Unix()
		}
		result.Files = append(result.Files, asset)
		if limit > 0 && len(result.Files) >= limit {
			break
		}
	}
	return result, nil
}

func (s *minioStore) Remove(ctx context.Context, id string) error {
	cleaned, ok := cleanID(id)
	if !ok {
		return appErr.Invalid("invalid id")
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(cleaned), minio.RemoveObjectOptions{}); err != nil {
		return s.classify(ctx, "remove object", err)
	}
	return nil
}

// classify maps a client error into the gateway taxonomy. A quota signal
// becomes ErrRateLimited so callers can tell it apart from a hard failure.
func (s *minioStore) classify(ctx context.Context, op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == s.rateLimitStatus || resp.StatusCode == http.StatusTooManyRequests {
		logutil.GetLogger(ctx).Warn("storage rate limit hit",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("code", resp.Code),
		)
		return appErr.RateLimited(RateLimitHint)
	}
	msg := err.Error()
	if resp.Code != "" && resp.Message != "" {
		msg = resp.Code + ": " + resp.Message
	}
	return appErr.New(appErr.ErrInternal, op+": "+msg)
}
