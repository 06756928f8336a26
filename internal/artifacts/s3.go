package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Store keeps artifacts in a MinIO/S3 bucket. The download filename is
// kept in object metadata.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, obj Object) error {
	opts := minio.PutObjectOptions{
		ContentType:        obj.ContentType,
		ContentDisposition: contentDisposition(obj.Filename),
		UserMetadata:       map[string]string{"Filename": obj.Filename},
	}
	_, err := s.client.PutObject(ctx, s.bucket, obj.Key, bytes.NewReader(obj.Data), int64(len(obj.Data)), opts)
	if err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	o, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	defer o.Close()
	stat, err := o.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	data, err := io.ReadAll(o)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return &Object{
		Key:         key,
		Filename:    stat.UserMetadata["Filename"],
		ContentType: stat.ContentType,
		Data:        data,
		CreatedAt:   stat.LastModified,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for key.
func (s *S3Store) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", contentDisposition(filename))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign artifact: %w", err)
	}
	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func contentDisposition(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("attachment; filename=%q", filename)
}
