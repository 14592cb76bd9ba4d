package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable, machine-readable error code returned to API clients.
type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeInvalidURL            Code = "INVALID_URL"
	CodeTranscriptUnavailable Code = "TRANSCRIPT_UNAVAILABLE"
	CodeTranscriptionFailed   Code = "TRANSCRIPTION_FAILED"
	CodeMetadataFailed        Code = "METADATA_FAILED"
	CodeLLM                   Code = "LLM_ERROR"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Client-facing messages. Nothing else reaches the caller.
const (
	MsgInvalidURL            = "Please enter a valid YouTube video URL"
	MsgInvalidJSON           = "Invalid JSON in request body"
	MsgTranscriptUnavailable = "Could not retrieve transcript for this video"
	MsgTranscriptionFailed   = "Failed to generate transcript from video audio"
	MsgRateLimited           = "Too many requests. Please try again in a minute."
	MsgLLM                   = "AI summarization failed. Please try again later."
	MsgInternal              = "An unexpected error occurred. Please try again."
	MsgConfiguration         = "Server configuration error"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrEmptyTranscript   = errors.New("no transcript returned")
	ErrEmptyResponse     = errors.New("no content received from LLM")
	ErrTimeout           = errors.New("operation timed out")
	ErrPrivateVideo      = errors.New("this video is private")
	ErrAgeRestricted     = errors.New("this video is age-restricted")
	ErrBinaryNotFound    = errors.New("downloader binary not found")
	ErrAudioDownload     = errors.New("audio download failed")
)

// Error is the typed error the orchestrator hands to transports.
// Message and Details are safe to show; Err is for logs only.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidationError reports malformed input. details maps field to messages.
func ValidationError(details map[string][]string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: MsgInvalidURL, Details: details}
}

// InvalidJSONError reports a request body that is not JSON at all.
func InvalidJSONError() *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: MsgInvalidJSON}
}

// ExtractionError reports that no video id could be found in the URL.
func ExtractionError() *Error {
	return &Error{Code: CodeInvalidURL, Status: http.StatusBadRequest, Message: MsgInvalidURL}
}

// TranscriptUnavailableError reports that every transcript source came up empty.
func TranscriptUnavailableError() *Error {
	return &Error{Code: CodeTranscriptUnavailable, Status: http.StatusBadRequest, Message: MsgTranscriptUnavailable}
}

// TranscriptionError wraps a failure of the download + speech-to-text chain.
// The cause text is exposed in details, the way the original API did.
func TranscriptionError(err error) *Error {
	return &Error{
		Code:    CodeTranscriptionFailed,
		Status:  http.StatusBadRequest,
		Message: MsgTranscriptionFailed,
		Details: map[string][]string{"transcription": {publicCause(err)}},
		Err:     err,
	}
}

// MetadataError reports a video that can never be summarised (private, age-gated).
func MetadataError(err error) *Error {
	return &Error{Code: CodeMetadataFailed, Status: http.StatusBadRequest, Message: publicCause(err), Err: err}
}

// MissingCredentialError reports an unset API key. The key name stays in logs.
func MissingCredentialError(name string) *Error {
	return &Error{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: MsgConfiguration,
		Err:     fmt.Errorf("%w: %s", ErrMissingCredential, name),
	}
}

// SummarizationError maps an LLM failure. Auth failures upstream are a
// configuration problem; everything else is reported as an LLM error.
func SummarizationError(err error) *Error {
	var ue *UpstreamError
	if errors.As(err, &ue) && (ue.Status == http.StatusUnauthorized || ue.Status == http.StatusForbidden) {
		return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: MsgConfiguration, Err: err}
	}
	if errors.Is(err, ErrMissingCredential) {
		return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: MsgConfiguration, Err: err}
	}
	return &Error{Code: CodeLLM, Status: http.StatusInternalServerError, Message: MsgLLM, Err: err}
}

// InternalError is the catch-all. Its message never carries the cause.
func InternalError(err error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: MsgInternal, Err: err}
}

// RateLimitError is returned when the request quota is exhausted.
func RateLimitError() *Error {
	return &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: MsgRateLimited}
}

// AsError converts any error into an *Error, defaulting to InternalError.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalError(err)
}

// UpstreamError is a non-success answer from a third-party API.
// Body is kept for server-side logs only.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s API error: %s", e.Service, Preview(e.Body))
	}
	return fmt.Sprintf("%s API failed: %d", e.Service, e.Status)
}

// publicCause returns the part of err that may be shown to a caller.
// Upstream bodies and missing-key names are reduced to a generic phrase.
func publicCause(err error) string {
	var ue *UpstreamError
	switch {
	case err == nil:
		return MsgInternal
	case errors.Is(err, ErrPrivateVideo):
		return "This video is private"
	case errors.Is(err, ErrAgeRestricted):
		return "This video is age-restricted"
	case errors.Is(err, ErrMissingCredential):
		return MsgConfiguration
	case errors.As(err, &ue):
		return fmt.Sprintf("%s API failed with status %d", ue.Service, ue.Status)
	}
	return Preview(err.Error())
}
