package s3util

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignGet creates a pre-signed GET URL for the object stored under key,
// valid for ttl from issuance. The content disposition makes browsers save
// the archive under its object name instead of rendering it.
func (c *Clients) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	result, err := c.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     &c.Bucket,
		Key:                        &key,
		ResponseContentDisposition: aws.String(fmt.Sprintf(`attachment; filename="%s"`, path.Base(key))),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign GetObject for %s: %w", key, err)
	}
	return result.URL, nil
}
