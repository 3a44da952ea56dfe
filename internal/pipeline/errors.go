package pipeline

import "errors"

// Failure categories for a crop job. Every error returned by Run wraps
// exactly one of these, so callers can map failures to responses with
// errors.Is and operators can tell compute failures from store failures.
var (
	// ErrInput: the request was malformed (missing image, bad tile size).
	// Raised before any processing happens.
	ErrInput = errors.New("invalid input")

	// ErrProcessing: the image could not be decoded, or a tile failed to
	// encode. Terminal for the whole job; no partial archive is produced.
	ErrProcessing = errors.New("image processing failed")

	// ErrStream: producing or consuming the archive byte stream failed.
	ErrStream = errors.New("archive stream failed")

	// ErrUpload: the store rejected the upload after the retry budget.
	ErrUpload = errors.New("archive upload failed")

	// ErrStorage: a store request outside the upload path failed
	// (link signing, delete).
	ErrStorage = errors.New("object store request failed")
)
