package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/xxxsen/assetgw/internal/model"
	appErr "github.com/xxxsen/assetgw/internal/pkg/errors"
)

type s3Config struct {
	Endpoint       string `json:"endpoint"`
	AccessKey      string `json:"access_key"`
	SecretKey      string `json:"secret_key"`
	Bucket         string `json:"bucket"`
	Region         string `json:"region"`
	Prefix         string `json:"prefix"`
	PublicURL      string `json:"public_url"`
	ThumbnailQuery string `json:"thumbnail_query"`
	UseSSL         bool   `json:"use_ssl"`
	UsePathStyle   bool   `json:"use_path_style"`
}

// s3API is the subset of *s3.Client the store calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	client         s3API
	bucket         string
	prefix         string
	publicURL      string
	thumbnailQuery string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(args interface{}) (Store, error) {
	config := &s3Config{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Endpoint == "" || config.Bucket == "" || config.AccessKey == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("s3 endpoint/bucket/access_key/secret_key are required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := endpointURL(config.Endpoint, config.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = config.UsePathStyle
	})
	publicURL := strings.TrimSuffix(config.PublicURL, "/")
	if publicURL == "" {
		publicURL = buildBaseURL(config.Endpoint, config.Bucket, config.UseSSL)
	}
	return newS3Store(client, config.Bucket, config.Prefix, publicURL, config.ThumbnailQuery), nil
}

func newS3Store(client s3API, bucket, prefix, publicURL, thumbnailQuery string) *s3Store {
	return &s3Store{
		client:         client,
		bucket:         bucket,
		prefix:         strings.Trim(prefix, "/"),
		publicURL:      publicURL,
		thumbnailQuery: thumbnailQuery,
	}
}

func (s *s3Store) Type() string {
	return "s3"
}

func (s *s3Store) objectKey(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

func (s *s3Store) idOf(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

func (s *s3Store) asset(id string) model.Asset {
	fileURL := joinURL(s.publicURL, s.objectKey(id))
	return model.Asset{
		ID:           id,
		DisplayName:  displayName(id),
		URL:          fileURL,
		ThumbnailURL: thumbnailURL(fileURL, s.thumbnailQuery),
	}
}

func (s *s3Store) Save(ctx context.Context, namespace string, upload *model.Upload) (*model.Asset, error) {
	ns, ok := cleanID(namespace)
	if !ok {
		return nil, appErr.Invalid("invalid namespace")
	}
	id := path.Join(ns, randomHex(8)+"_"+sanitizeFilename(upload.Name))
	contentType, width, height := probeImage(upload.Data, upload.ContentType)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(id)),
		Body:          bytes.NewReader(upload.Data),
		ContentLength: aws.Int64(int64(len(upload.Data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, appErr.New(appErr.ErrInternal, "put object: "+s3ErrorMessage(err))
	}
	asset := s.asset(id)
	asset.Width = width
	asset.Height = height
	asset.Size = int64(len(upload.Data))
	asset.ContentType = contentType
	return &asset, nil
}

func (s *s3Store) List(ctx context.Context, namespace string, limit int) (*model.ListResult, error) {
	ns, ok := cleanID(namespace)
	if !ok {
		return nil, appErr.Invalid("invalid namespace")
	}
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(ns) + "/"),
	}
	if limit > 0 {
		in.MaxKeys = aws.Int32(int32(limit))
	}
	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, appErr.New(appErr.ErrInternal, "list objects: "+s3ErrorMessage(err))
	}
	result := &model.ListResult{Files: make([]model.Asset, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == "" || strings.HasSuffix(key, "/") {
			continue
		}
		asset := s.asset(s.idOf(key))
		asset.Size = aws.ToInt64(obj.Size)
		if obj.LastModified != nil {
			asset.CreatedAt = obj.LastModified.Unix()
		}
		result.Files = append(result.Files, asset)
	}
	return result, nil
}

func (s *s3Store) Remove(ctx context.Context, id string) error {
	cleaned, ok := cleanID(id)
	if !ok {
		return appErr.Invalid("invalid id")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(cleaned)),
	})
	if err != nil {
		return appErr.New(appErr.ErrInternal, "delete object: "+s3ErrorMessage(err))
	}
	return nil
}

func s3ErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return apiErr.ErrorCode() + ": " + msg
		}
		return apiErr.ErrorCode()
	}
	return err.Error()
}
