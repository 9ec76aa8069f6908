package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vendibook/internal/app/policies"
)

const (
	stagingPrefix     = "staging/"
	reservationPrefix = "reservations/"
)

var ErrNotStaged = errors.New("s3: key is not a staging key")

// Stager keeps checkout documents in a private S3-compatible bucket. Uploads
// land under staging/ and are copied under reservations/ on promotion.
type Stager struct {
	bucket         string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewStager(endpoint string, useSSL bool, accessKey, secretKey, bucket string, logger *slog.Logger) (*Stager, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{bucket: bucket, client: minioClient, logger: logger}, nil
}

func (s *Stager) Stage(ctx context.Context, req policies.StageRequest) (string, error) {
	if req.Body == nil {
		return "", errors.New("s3: body is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := stagingKey(req)
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := req.Size
	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, req.Body, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"doc-type":  req.DocType,
			"file-name": req.FileName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	s.logger.Info("document staged", "bucket", s.bucket, "key", key, "doc_type", req.DocType)
	return key, nil
}

// Promote copies the staged object under the reservation and removes the
// staging copy. A failed cleanup is logged, not returned.
func (s *Stager) Promote(ctx context.Context, stagingKey, reservationID string) (string, error) {
	if !strings.HasPrefix(stagingKey, stagingPrefix) {
		return "", ErrNotStaged
	}
	dest := reservationPrefix + reservationID + "/" + path.Base(stagingKey)
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dest},
		minio.CopySrcOptions{Bucket: s.bucket, Object: stagingKey},
	)
	if err != nil {
		return "", fmt.Errorf("s3: copy object: %w", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, stagingKey, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Warn("staging cleanup failed", "key", stagingKey, "error", err)
	}
	return dest, nil
}

// Ping reports whether the bucket is reachable.
func (s *Stager) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func (s *Stager) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

func stagingKey(req policies.StageRequest) string {
	ext := strings.ToLower(path.Ext(req.FileName))
	return fmt.Sprintf("%s%s/%s/%s%s", stagingPrefix, req.SessionID, req.DocType, uuid.NewString(), ext)
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.DocumentStager = (*Stager)(nil)
