package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"cropzip/internal/config"
	"cropzip/internal/pipeline"
	"cropzip/internal/tiling"
)

// jobRunner runs one crop job; *pipeline.Pipeline in production.
type jobRunner interface {
	Run(ctx context.Context, imageData []byte, spec tiling.CropSpec) (*pipeline.Result, error)
}

// objectDeleter deletes a stored archive; *s3util.Clients in production.
type objectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type server struct {
	jobs  jobRunner
	store objectDeleter
}

// archiveNameRegex matches the object keys this service generates, and
// nothing else — the delete endpoint must not reach arbitrary keys.
var archiveNameRegex = regexp.MustCompile(`^cropped_images_\d{14}\.zip$`)

// multipartMemoryLimit is how much of the parsed form is kept in memory
// before spilling to temp files.
const multipartMemoryLimit = 32 << 20

// POST /api/crop — multipart form with an "image" file and integer
// "tileWidth"/"tileHeight" fields. Responds with the archive's presigned
// download URL and object name.
func (s *server) handleCrop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxImageBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		httpError(w, http.StatusBadRequest, "image payload is missing, malformed, or larger than 50 MB", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		httpError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	spec, err := tiling.ParseCropSpec(r.FormValue("tileWidth"), r.FormValue("tileHeight"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read image payload", err.Error())
		return
	}

	log.Debug().
		Str("filename", header.Filename).
		Int("bytes", len(imageData)).
		Int("tile_width", spec.TileWidth).
		Int("tile_height", spec.TileHeight).
		Msg("Crop request received")

	result, err := s.jobs.Run(r.Context(), imageData, spec)
	if err != nil {
		status, clientMsg := classifyJobError(err)
		httpError(w, status, clientMsg, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"fileUrl":  result.FileURL,
		"fileName": result.FileName,
	})
}

// classifyJobError maps a pipeline failure onto an HTTP status and a
// client-safe message.
func classifyJobError(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrInput):
		return http.StatusBadRequest, "invalid request: " + err.Error()
	case errors.Is(err, pipeline.ErrProcessing):
		return http.StatusInternalServerError, "failed to process the image"
	case errors.Is(err, pipeline.ErrStream):
		return http.StatusInternalServerError, "failed to build the crop archive"
	case errors.Is(err, pipeline.ErrUpload):
		return http.StatusInternalServerError, "failed to store the crop archive"
	case errors.Is(err, pipeline.ErrStorage):
		return http.StatusInternalServerError, "failed to issue the download link"
	default:
		return http.StatusInternalServerError, "crop job failed"
	}
}

// DELETE /api/archive?name=<fileName> — removes a previously stored crop
// archive by the object name returned from /api/crop.
func (s *server) handleArchiveDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		httpError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}
	if !archiveNameRegex.MatchString(name) {
		httpError(w, http.StatusBadRequest, "name is not a crop archive name")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, name); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to delete archive", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "deleted",
		"fileName": name,
	})
}

// GET /healthz — liveness probe.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
