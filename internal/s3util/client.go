// Package s3util wraps the S3 operations the service needs: streaming
// uploads, presigned download links, deletes, and the retry policy that
// guards the upload path.
package s3util

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Clients holds the S3 client, presigner, streaming uploader, and target
// bucket. Constructed once at startup and shared by all jobs.
type Clients struct {
	Client    *s3.Client
	Presigner *s3.PresignClient
	Uploader  *manager.Uploader
	Bucket    string
}

// New loads the default AWS config (env credentials, shared config, IAM
// role) and builds the client set for the given bucket.
func New(ctx context.Context, bucket string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Str("bucket", bucket).Msg("AWS config loaded")

	client := s3.NewFromConfig(cfg)
	return &Clients{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Uploader:  manager.NewUploader(client),
		Bucket:    bucket,
	}, nil
}
