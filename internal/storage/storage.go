// Package storage moves documents between S3 and the local work directory.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client used by [Store].
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store reads and writes objects.
type Store struct {
	api API
	log *slog.Logger
}

// New returns a Store backed by api.
func New(api API, log *slog.Logger) *Store {
	return &Store{api: api, log: log}
}

// Download copies the object at bucket/key into w and returns the number of
// bytes written.
func (s *Store) Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}
	s.log.Debug("Downloaded object", "bucket", bucket, "key", key, "bytes", n)
	return n, nil
}

// Upload stores the contents of r at bucket/key.
func (s *Store) Upload(ctx context.Context, bucket, key string, r io.ReadSeeker, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", bucket, key, err)
	}
	s.log.Debug("Uploaded object", "bucket", bucket, "key", key)
	return nil
}
