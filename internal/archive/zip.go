// Package archive builds a ZIP stream incrementally: members are written as
// they arrive and bytes flow to the destination writer immediately, so the
// full archive is never held in memory.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

// Builder wraps a zip.Writer with the service's compression setup.
//
// A Builder is single-use and not safe for concurrent Add calls; the
// pipeline serialises members through one writer goroutine.
type Builder struct {
	zw *zip.Writer
}

// NewBuilder creates a ZIP builder streaming to w. Deflate is backed by
// klauspost/compress at its fastest level — tile members are already JPEG
// compressed, so heavier settings only cost CPU.
func NewBuilder(w io.Writer) *Builder {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})
	return &Builder{zw: zw}
}

// Add writes one named member. Errors here mean the downstream consumer
// failed or aborted; the archive must not be finalized afterwards.
func (b *Builder) Add(name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	f, err := b.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create archive member %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write archive member %s: %w", name, err)
	}
	return nil
}

// Close finalizes the archive by flushing the central directory. Only call
// it after every member was added successfully: a closed archive reads as
// complete, and a partial job must never produce one.
func (b *Builder) Close() error {
	if err := b.zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
