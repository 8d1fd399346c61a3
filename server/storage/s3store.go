package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

/*
Storage provider for S3-compatible object storage. We use the minio client
library. Signed URLs come from the presign API; presigning is a local
operation, so a URL for a missing object is minted successfully and the
resolver's metadata probe is what surfaces the 404.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	minioErrObjectNotExist = "The specified key does not exist."
)

type s3store struct {
	mc     *minio.Client
	bucket string
}

// NewS3Store returns a provider backed by the supplied minio client and bucket.
func NewS3Store(mc *minio.Client, bucket string) *s3store {
	return &s3store{
		mc:     mc,
		bucket: bucket,
	}
}

// SignedURL mints a presigned GET URL for the object.
func (s *s3store) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	u, err := s.mc.PresignedGetObject(ctx, s.bucket, path, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), nil
}

// Put stores an object in the object store.
func (s *s3store) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.mc.PutObject(
		ctx,
		s.bucket,
		path,
		r,
		size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Delete removes an object from the object store.
func (s *s3store) Delete(ctx context.Context, path string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		if err.Error() == minioErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *s3store) String() string {
	return fmt.Sprintf("s3(%s)", s.bucket)
}
