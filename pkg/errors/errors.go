package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an error so callers can branch on the kind of
// failure without matching message strings.
type ErrorCode int

const (
	// Unknown is the fallback code for unclassified failures.
	Unknown ErrorCode = iota

	// InvalidInput indicates a caller supplied argument or precondition error.
	InvalidInput

	// ValidationFailed indicates produced data did not satisfy a declared contract.
	ValidationFailed

	// ResourceNotFound indicates a lookup against a registry, cache or store missed.
	ResourceNotFound

	// InvalidResponse indicates a collaborator returned data we could not interpret.
	InvalidResponse

	// ModelExecutionFailed indicates the underlying model invocation failed.
	ModelExecutionFailed

	// DownloadFailed indicates a hub snapshot download did not complete.
	DownloadFailed
)

// String returns a stable name for the code, used in formatted errors and logs.
func (c ErrorCode) String() string {
	switch c {
	case InvalidInput:
		return "invalid_input"
	case ValidationFailed:
		return "validation_failed"
	case ResourceNotFound:
		return "resource_not_found"
	case InvalidResponse:
		return "invalid_response"
	case ModelExecutionFailed:
		return "model_execution_failed"
	case DownloadFailed:
		return "download_failed"
	default:
		return "unknown"
	}
}

// Fields carries structured context attached to an error.
type Fields map[string]any

// Error is a coded error with optional structured fields and a wrapped cause.
type Error struct {
	code    ErrorCode
	message string
	fields  Fields
	err     error
}

// New creates a coded error with the given message.
func New(code ErrorCode, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap annotates err with a code and message, preserving it as the cause.
// A nil err returns nil so call sites can wrap unconditionally.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{code: code, message: message, err: err}
}

// WithFields attaches structured context to err. If err is already an
// *Error the fields are merged onto it, otherwise err is wrapped first.
func WithFields(err error, fields Fields) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if !stderrors.As(err, &e) {
		e = Wrap(err, Unknown, err.Error())
	}
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Error{code: e.code, message: e.message, fields: merged, err: e.err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the error's classification code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Fields returns the structured context attached to the error.
func (e *Error) Fields() Fields {
	return e.fields
}

// Code extracts the classification code from any error, walking the
// wrap chain. Errors that never pass through this package report Unknown.
func Code(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return Unknown
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
