package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	Timeout   time.Duration
	// MaxRetries is handed to minio-go; 0 keeps its default.
	MaxRetries int
}

// MinioStore implements ObjectStore over minio-go.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
	log     *zap.Logger
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg Config, log *zap.Logger) (*MinioStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:      credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:     cfg.UseSSL,
		Region:     cfg.Region,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	s := &MinioStore{client: client, bucket: cfg.Bucket, timeout: cfg.Timeout, log: log}

	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	exists, err := client.BucketExists(cctx, cfg.Bucket)
	if err != nil {
		return nil, classify(err, "check bucket "+cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(cctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, classify(err, "create bucket "+cfg.Bucket)
		}
		log.Info("storage.bucket.created", zap.String("bucket", cfg.Bucket))
	}
	log.Info("storage.connected", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return s, nil
}

func (s *MinioStore) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: invalid object key %q", common.ErrInvalidInput, key)
	}
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error("storage.put.failed", zap.String("key", key), zap.Error(err))
		return classify(err, "put "+key)
	}
	s.log.Debug("storage.put.ok", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, "get "+key)
	}
	defer obj.Close()
	// GetObject is lazy; request errors surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		s.log.Warn("storage.get.failed", zap.String("key", key), zap.Error(err))
		return nil, classify(err, "get "+key)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify(err, "delete "+key)
	}
	return nil
}

func (s *MinioStore) PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", classify(err, "presign "+key)
	}
	return u.String(), nil
}

// classify maps minio errors onto the pipeline taxonomy: missing objects are
// terminal, everything else is treated as a transient storage outage.
func classify(err error, op string) error {
	resp := minio.ToErrorResponse(err)
	var wrapped minio.ErrorResponse
	if resp.Code == "" && errors.As(err, &wrapped) {
		resp = wrapped
	}
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.StatusCode == http.StatusNotFound:
		return common.KindError(constants.ErrKindNotFound, op, err)
	case resp.StatusCode == http.StatusBadRequest, resp.Code == "InvalidArgument", resp.Code == "AccessDenied":
		return common.KindError(constants.ErrKindInternal, op, err)
	default:
		return common.KindError(constants.ErrKindStorageUnavailable, op, err)
	}
}
