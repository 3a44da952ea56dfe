// Package config loads service configuration from the environment.
//
// Every knob has a default except the bucket name; anything tunable at
// runtime is env-driven so the same binary runs locally and in production.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for tunable settings.
const (
	DefaultPort              = 8080
	DefaultEncodeConcurrency = 2
	DefaultURLTTL            = 1 * time.Hour
	DefaultMaxUploadAttempts = 3
	DefaultUploadBackoff     = 500 * time.Millisecond

	// MaxImageBytes bounds the uploaded image payload (50 MB).
	MaxImageBytes int64 = 50 * 1024 * 1024
)

// Config holds the resolved service configuration.
type Config struct {
	// Bucket is the S3 bucket receiving crop archives. Required.
	Bucket string

	// Port is the HTTP listen port.
	Port int

	// EncodeConcurrency caps simultaneous tile encodes per job. This is a
	// CPU/memory protection knob, not a correctness requirement.
	EncodeConcurrency int

	// URLTTL is the validity window of issued download links.
	URLTTL time.Duration

	// MaxUploadAttempts bounds the upload retry sequence.
	MaxUploadAttempts int

	// UploadBackoff is the base delay between upload attempts; the actual
	// delay grows exponentially and is capped.
	UploadBackoff time.Duration
}

// Load reads configuration from the environment, applying defaults for
// everything except CROPZIP_BUCKET.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort,
		EncodeConcurrency: DefaultEncodeConcurrency,
		URLTTL:            DefaultURLTTL,
		MaxUploadAttempts: DefaultMaxUploadAttempts,
		UploadBackoff:     DefaultUploadBackoff,
	}

	cfg.Bucket = os.Getenv("CROPZIP_BUCKET")
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("CROPZIP_BUCKET environment variable is required")
	}

	if v := os.Getenv("CROPZIP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid CROPZIP_PORT %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("CROPZIP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CROPZIP_CONCURRENCY %q", v)
		}
		cfg.EncodeConcurrency = n
	}

	if v := os.Getenv("CROPZIP_URL_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid CROPZIP_URL_TTL %q", v)
		}
		cfg.URLTTL = ttl
	}

	if v := os.Getenv("CROPZIP_UPLOAD_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CROPZIP_UPLOAD_ATTEMPTS %q", v)
		}
		cfg.MaxUploadAttempts = n
	}

	return cfg, nil
}
