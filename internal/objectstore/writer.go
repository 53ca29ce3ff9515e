package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"subtrans/internal/config"
	"subtrans/internal/services"
)

const subripContentType = "application/x-subrip"

// Config selects the bucket and credentials.
type Config struct {
	Endpoint     string
	Bucket       string
	Prefix       string
	Region       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	CreateBucket bool
}

// FromStorage maps the [storage] config section.
func FromStorage(s config.Storage) Config {
	return Config{
		Endpoint:     s.Endpoint,
		Bucket:       s.Bucket,
		Prefix:       s.Prefix,
		Region:       s.Region,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		UseSSL:       s.UseSSL,
		CreateBucket: s.CreateBucket,
	}
}

// Writer stores each output as one object under Prefix.
type Writer struct {
	client *minio.Client
	bucket string
	prefix string
}

// ErrBucketMissing is returned by Open when the bucket does not exist and
// CreateBucket is false.
var ErrBucketMissing = errors.New("bucket does not exist")

// Open connects to the endpoint and verifies the bucket, creating it when
// CreateBucket is set.
func Open(ctx context.Context, cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "open", "bucket is required", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "open", "create client", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, classify("check bucket "+cfg.Bucket, err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, services.Wrap(services.ErrConfiguration, "objectstore", "open", cfg.Bucket, ErrBucketMissing)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, classify("create bucket "+cfg.Bucket, err)
		}
	}
	return &Writer{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Key returns the object key used for name.
func (w *Writer) Key(name string) string {
	if w.prefix == "" {
		return name
	}
	return path.Join(w.prefix, name)
}

// Write uploads data and returns the s3:// location of the object.
func (w *Writer) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := w.Key(name)
	_, err := w.client.PutObject(ctx, w.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: subripContentType,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrIO, "objectstore", "put", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", w.bucket, key), nil
}

// classify maps S3 error responses onto the error taxonomy. Credential and
// permission problems are configuration errors; the rest are I/O.
func classify(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == http.StatusForbidden, resp.Code == "AccessDenied",
		resp.Code == "InvalidAccessKeyId", resp.Code == "SignatureDoesNotMatch":
		return services.Wrap(services.ErrConfiguration, "objectstore", op, "access denied", err)
	default:
		return services.Wrap(services.ErrIO, "objectstore", op, "", err)
	}
}
