package core

import (
	"errors"
	"fmt"
)

// Pipeline outcome sentinels. Per-image failures are collected into the batch
// report; only ErrNoImagesFound aborts a whole batch run.
var (
	// ErrNoImagesFound means a folder scan produced zero candidates.
	ErrNoImagesFound = errors.New("no images found")

	// ErrExtractionFailed means the remote extraction call errored or timed out.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUnparsableResponse means the remote service returned text that cannot
	// be reduced to the expected JSON object.
	ErrUnparsableResponse = errors.New("unparsable extraction response")

	// ErrNotAReceipt means the model examined the image and reported that it
	// contains no receipt. This is valid model behavior on bad input, not a
	// protocol violation.
	ErrNotAReceipt = errors.New("image contains no receipt")

	// ErrPersistenceFailed means the storage transaction was rolled back.
	ErrPersistenceFailed = errors.New("persistence failed")
)

// MissingFieldError reports a required key absent from an extraction result.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// InvalidValueError reports a field whose value violates its constraint.
type InvalidValueError struct {
	Field  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", e.Field, e.Reason)
}

// MissingConfigError reports a configuration key that is required but unset.
type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s is not set", e.Key)
}

// Failure kinds used in batch reports.
const (
	FailureExtraction  = "extraction_failed"
	FailureUnparsable  = "unparsable_response"
	FailureNotAReceipt = "not_a_receipt"
	FailureMissing     = "missing_field"
	FailureInvalid     = "invalid_value"
	FailurePersistence = "persistence_failed"
	FailureInternal    = "internal_error"
)

// ClassifyFailure maps a per-image error to its report failure kind.
func ClassifyFailure(err error) string {
	var missing *MissingFieldError
	var invalid *InvalidValueError
	switch {
	case errors.Is(err, ErrNotAReceipt):
		return FailureNotAReceipt
	case errors.Is(err, ErrUnparsableResponse):
		return FailureUnparsable
	case errors.Is(err, ErrExtractionFailed):
		return FailureExtraction
	case errors.Is(err, ErrPersistenceFailed):
		return FailurePersistence
	case errors.As(err, &missing):
		return FailureMissing
	case errors.As(err, &invalid):
		return FailureInvalid
	default:
		return FailureInternal
	}
}
