package services

import (
	"errors"
	"strings"
)

// Sentinel markers for error classification. Stage errors carry one of the
// stage markers; caller-facing validation errors carry one of the request
// markers and never mutate job state.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidSelection = errors.New("invalid selection")

	ErrDownload      = errors.New("download error")
	ErrTranscription = errors.New("transcription error")
	ErrAnalysis      = errors.New("analysis error")
	ErrRender        = errors.New("render error")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Error is the structured stage error produced by Wrap. The Message field is
// what gets recorded verbatim into a failed job.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	if e.Stage != "" {
		parts = append(parts, e.Stage)
	}
	if e.Operation != "" {
		parts = append(parts, e.Operation)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	msg := strings.Join(parts, ": ")
	if e.Cause != nil {
		if msg == "" {
			return e.Cause.Error()
		}
		return msg + ": " + e.Cause.Error()
	}
	if msg == "" {
		return "service failure"
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds a structured error that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// Message extracts the human-readable cause from a stage error. Structured
// errors yield their Message field so the text a stage chose survives
// verbatim into job records; anything else falls back to Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
		if e.Cause != nil {
			return strings.TrimSpace(e.Cause.Error())
		}
	}
	return strings.TrimSpace(err.Error())
}

// Kind reports the marker classification of an error, or "unknown".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidSelection):
		return "invalid_selection"
	case errors.Is(err, ErrDownload):
		return "download"
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrAnalysis):
		return "analysis"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "unknown"
	}
}

// IsCallerError reports whether an error belongs to the caller-facing
// taxonomy that must be returned synchronously and never recorded on a job.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidSelection)
}
