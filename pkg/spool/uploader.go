package spool

import (
	"bytes"
	"context"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Uploader writes batch objects to an S3-compatible bucket.
type S3Uploader struct {
	client *minio.Client
	bucket string
}

// NewS3Uploader connects to the configured S3 endpoint.
func NewS3Uploader(endpoint, accessKey, secretKey, bucket string, secure bool) (*S3Uploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 client")
	}
	return &S3Uploader{client: client, bucket: bucket}, nil
}

// Upload stores one encoded batch object.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte) error {
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s to bucket %s", key, u.bucket)
	}
	return nil
}
