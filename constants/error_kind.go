package constants

// ErrorKind classifies every pipeline failure persisted on a job.
type ErrorKind string

const (
	// terminal
	ErrKindNotFound             ErrorKind = "NOT_FOUND"
	ErrKindUnsupportedMediaType ErrorKind = "UNSUPPORTED_MEDIA_TYPE"
	ErrKindExtractionFailed     ErrorKind = "EXTRACTION_FAILED"
	ErrKindUnparsableDocument   ErrorKind = "UNPARSABLE_DOCUMENT"
	ErrKindInvalidStage         ErrorKind = "INVALID_STAGE"
	ErrKindCancelled            ErrorKind = "CANCELLED"
	ErrKindInternal             ErrorKind = "INTERNAL"

	// retryable, bounded
	ErrKindStorageUnavailable         ErrorKind = "STORAGE_UNAVAILABLE"
	ErrKindInferenceUnavailable       ErrorKind = "INFERENCE_UNAVAILABLE"
	ErrKindInferenceMalformedResponse ErrorKind = "INFERENCE_MALFORMED_RESPONSE"
)

var errorKinds = map[ErrorKind]bool{
	ErrKindNotFound:                   false,
	ErrKindUnsupportedMediaType:       false,
	ErrKindExtractionFailed:           false,
	ErrKindUnparsableDocument:         false,
	ErrKindInvalidStage:               false,
	ErrKindCancelled:                  false,
	ErrKindInternal:                   false,
	ErrKindStorageUnavailable:         true,
	ErrKindInferenceUnavailable:       true,
	ErrKindInferenceMalformedResponse: true,
}

// Retryable reports whether a failure of this kind may be re-attempted.
func (k ErrorKind) Retryable() bool { return errorKinds[k] }

// Valid reports whether k is one of the known kinds.
func (k ErrorKind) Valid() bool {
	_, ok := errorKinds[k]
	return ok
}
