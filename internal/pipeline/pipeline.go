// Package pipeline runs a crop job end to end: decode the source image,
// plan the tile grid, encode tiles under bounded concurrency, stream them
// into a ZIP, upload the stream to the object store with retry, and issue
// a time-limited download link.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"cropzip/internal/archive"
	"cropzip/internal/metrics"
	"cropzip/internal/s3util"
	"cropzip/internal/tiling"
)

const archiveContentType = "application/zip"

// ObjectStore is the remote store the pipeline talks to. *s3util.Clients
// implements it; tests substitute fakes.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Options are the job-independent knobs, normally filled from config.
type Options struct {
	EncodeConcurrency int
	MaxUploadAttempts int
	UploadBackoff     time.Duration
	URLTTL            time.Duration
}

// Pipeline executes crop jobs against one object store. Safe for
// concurrent use; jobs share nothing but the store clients.
type Pipeline struct {
	store ObjectStore
	opts  Options
}

// New builds a Pipeline, applying defaults for unset options.
func New(store ObjectStore, opts Options) *Pipeline {
	if opts.EncodeConcurrency <= 0 {
		opts.EncodeConcurrency = 2
	}
	if opts.MaxUploadAttempts <= 0 {
		opts.MaxUploadAttempts = 3
	}
	if opts.UploadBackoff <= 0 {
		opts.UploadBackoff = 500 * time.Millisecond
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = time.Hour
	}
	return &Pipeline{store: store, opts: opts}
}

// Result is what a successful job returns to the caller.
type Result struct {
	FileURL   string
	FileName  string
	TileCount int
}

// ArchiveName derives the object key for a job started at the given time.
func ArchiveName(start time.Time) string {
	return "cropped_images_" + start.UTC().Format("20060102150405") + ".zip"
}

// Run executes one crop job. The context covers the whole job: cancelling
// it aborts encoding, archiving, and any in-flight upload.
func (p *Pipeline) Run(ctx context.Context, imageData []byte, spec tiling.CropSpec) (*Result, error) {
	start := time.Now()
	key := ArchiveName(start)

	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrInput)
	}
	logCaptureInfo(imageData)

	src, err := tiling.DecodeSource(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	rects := tiling.Plan(src.Width, src.Height, spec.TileWidth, spec.TileHeight)
	log.Info().
		Str("key", key).
		Str("format", src.Format).
		Int("image_width", src.Width).
		Int("image_height", src.Height).
		Int("tile_width", spec.TileWidth).
		Int("tile_height", spec.TileHeight).
		Int("tiles", len(rects)).
		Msg("Crop job started")

	rec := metrics.New("CropZip").
		Dimension("Operation", "CropJob").
		Property("Key", key).
		Property("ImageFormat", src.Format)
	defer rec.Flush()

	var attempts int
	var archiveBytes int64
	err = s3util.WithRetry(ctx, p.opts.MaxUploadAttempts, p.opts.UploadBackoff, func(ctx context.Context) error {
		attempts++
		return p.uploadOnce(ctx, src, rects, key, &archiveBytes)
	})
	rec.Metric("UploadAttempts", float64(attempts), metrics.UnitCount)
	if err != nil {
		rec.Count("JobErrors")
		if errors.Is(err, ErrProcessing) || errors.Is(err, ErrStream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrUpload, attempts, err)
	}

	url, err := p.store.PresignGet(ctx, key, p.opts.URLTTL)
	if err != nil {
		rec.Count("JobErrors")
		// The object is stored but unreachable by the caller. Remove it
		// rather than leaving an orphan for external cleanup.
		if derr := p.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.Error().Err(derr).Str("key", key).Msg("Failed to delete orphaned archive after presign failure")
		}
		return nil, fmt.Errorf("%w: sign download link: %v", ErrStorage, err)
	}

	rec.Metric("TileCount", float64(len(rects)), metrics.UnitCount).
		Metric("ArchiveBytes", float64(archiveBytes), metrics.UnitBytes).
		Metric("JobMillis", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds)

	log.Info().
		Str("key", key).
		Int("tiles", len(rects)).
		Int64("archive_bytes", archiveBytes).
		Dur("elapsed", time.Since(start)).
		Msg("Crop job complete")

	return &Result{FileURL: url, FileName: key, TileCount: len(rects)}, nil
}

// uploadOnce performs one complete upload attempt: the tile/archive
// producer is re-run from the decoded source and piped straight into the
// uploader, so a slow network stalls archive production instead of
// buffering it. Re-running per attempt is sound because planning, encoding,
// and naming are deterministic for a given source and crop spec.
func (p *Pipeline) uploadOnce(ctx context.Context, src *tiling.Source, rects []tiling.Rect, key string, archiveBytes *int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	cw := &countingWriter{w: pw}

	produceDone := make(chan error, 1)
	go func() {
		err := p.produce(ctx, src, rects, cw)
		pw.CloseWithError(err)
		produceDone <- err
	}()

	uploadErr := p.store.Upload(ctx, key, archiveContentType, pr)
	if uploadErr != nil {
		// Unblock the producer if it is still writing.
		pr.CloseWithError(uploadErr)
	}
	produceErr := <-produceDone
	*archiveBytes = cw.n

	// A deterministic producer failure will recur on every attempt, so it
	// is never retried. A stream failure with a transport error alongside
	// is just the abort propagating backwards; the transport error wins.
	if produceErr != nil && errors.Is(produceErr, ErrProcessing) {
		return s3util.Permanent(produceErr)
	}
	if uploadErr != nil {
		return uploadErr
	}
	if produceErr != nil {
		return s3util.Permanent(produceErr)
	}
	return nil
}

// produce encodes all tiles and streams them into a ZIP written to w.
// The archive is finalized only after every tile encoded cleanly; a failed
// job never emits an archive that reads as complete.
func (p *Pipeline) produce(ctx context.Context, src *tiling.Source, rects []tiling.Rect, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tiles := make(chan tiling.Tile)
	encodeDone := make(chan error, 1)
	go func() {
		encodeDone <- tiling.EncodeGrid(ctx, src, rects, p.opts.EncodeConcurrency, tiles)
		close(tiles)
	}()

	builder := archive.NewBuilder(w)
	for t := range tiles {
		if err := builder.Add(t.Name, t.Data); err != nil {
			cancel()
			<-encodeDone
			return fmt.Errorf("%w: %v", ErrStream, err)
		}
	}
	if err := <-encodeDone; err != nil {
		return fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	if err := builder.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStream, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
