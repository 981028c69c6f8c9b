package classifier

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes classifier failures
type ErrorKind string

const (
	// KindModelLoad indicates the model handle could not be acquired
	KindModelLoad ErrorKind = "model_load"

	// KindClassification indicates an inference call failed
	KindClassification ErrorKind = "classification"

	// KindInvalidImageSource indicates the image could not be fetched or decoded
	KindInvalidImageSource ErrorKind = "invalid_image_source"

	// KindConfiguration indicates a backend was misconfigured
	KindConfiguration ErrorKind = "configuration"
)

// Error is returned by backends and the image resolver
type Error struct {
	Kind    ErrorKind
	Backend string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var parts []string
	if e.Backend != "" {
		parts = append(parts, "backend="+e.Backend)
	}
	parts = append(parts, string(e.Kind), e.Message)
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func NewModelLoadError(backend string, cause error) *Error {
	return &Error{Kind: KindModelLoad, Backend: backend, Message: "failed to load model", Cause: cause}
}

func NewClassificationError(backend string, cause error) *Error {
	return &Error{Kind: KindClassification, Backend: backend, Message: "classification failed", Cause: cause}
}

func NewInvalidImageSourceError(source string, cause error) *Error {
	return &Error{Kind: KindInvalidImageSource, Message: fmt.Sprintf("cannot read image %q", source), Cause: cause}
}

func NewConfigurationError(backend, field, message string) *Error {
	return &Error{Kind: KindConfiguration, Backend: backend, Message: field + ": " + message}
}

// IsKind reports whether err wraps a classifier error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
