package s3util

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Upload streams body to S3 under key with the given content type. The
// manager splits the stream into multipart chunks as it reads, so the body
// can be an unbounded pipe; a failed or cancelled upload aborts the
// multipart transfer and leaves no object behind.
func (c *Clients) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	start := time.Now()
	_, err := c.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &c.Bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s to S3: %w", key, err)
	}

	log.Debug().
		Str("key", key).
		Str("content_type", contentType).
		Dur("elapsed", time.Since(start)).
		Msg("Object uploaded to S3")
	return nil
}

// Delete removes the object stored under key. Deleting a missing key is a
// success as far as S3 is concerned, which makes the operation idempotent.
func (c *Clients) Delete(ctx context.Context, key string) error {
	_, err := c.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &c.Bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete %s from S3: %w", key, err)
	}

	log.Info().Str("key", key).Msg("Object deleted from S3")
	return nil
}
