package watch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore uploads one local file under an object key.
type ObjectStore interface {
	Upload(ctx context.Context, objectKey, filePath string) error
}

// R2Store uploads recordings to an S3-compatible bucket (Cloudflare R2).
type R2Store struct {
	client *minio.Client
	bucket string
}

// NewR2Store connects to the endpoint and verifies the bucket is reachable.
func NewR2Store(ctx context.Context, endpoint, accessKey, secretKey, bucket string) (*R2Store, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %v", err)
	}
	host := parsed.Host
	if host == "" {
		host = parsed.Path
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %v", bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist or is not accessible", bucket)
	}

	return &R2Store{client: client, bucket: bucket}, nil
}

// Upload ships one recording to the bucket.
func (s *R2Store) Upload(ctx context.Context, objectKey, filePath string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectKey, filePath, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	return err
}
