package pipeline

import (
	"bytes"
	"strings"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// logCaptureInfo records camera make/model and capture time from the
// upload's EXIF block, when present. Purely informational: PNG and
// screenshot sources usually carry none, so failures are ignored.
func logCaptureInfo(imageData []byte) {
	exifData, err := imagemeta.Decode(bytes.NewReader(imageData))
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata in upload")
		return
	}

	ev := log.Debug()
	if camera := strings.TrimSpace(exifData.Make + " " + exifData.Model); camera != "" {
		ev = ev.Str("camera", camera)
	}
	if taken := exifData.DateTimeOriginal(); !taken.IsZero() {
		ev = ev.Time("taken", taken)
	}
	ev.Msg("Source image EXIF metadata")
}
