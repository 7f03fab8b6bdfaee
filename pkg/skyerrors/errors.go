// Package skyerrors provides structured error handling for Skylark with
// error categorization, key-value context, and stack traces.
//
// Every failure the feature store can report is assigned an ErrorType so
// callers (and the HTTP layer) can branch on the category instead of
// string-matching messages:
//
//	if skyerrors.IsType(err, skyerrors.ErrorTypeValidation) {
//	    // map to a 400-class response
//	}
//
// Errors wrap their cause and work with errors.Is / errors.As.
package skyerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType categorizes an error for handling strategies, monitoring,
// and API response mapping.
type ErrorType string

const (
	// ErrorTypeValidation indicates a computed feature value violated its
	// validation rule.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTransformation indicates a transformation function failed or
	// a required source feature was missing from the raw record.
	ErrorTypeTransformation ErrorType = "transformation"
	// ErrorTypeNotFound indicates a group, feature, or entity is not registered.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeEntityMismatch indicates a feature's entity does not match its
	// group's entity.
	ErrorTypeEntityMismatch ErrorType = "entity_mismatch"
	// ErrorTypeConflict indicates a duplicate registration attempt.
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeStorage indicates an online or offline store is unreachable
	// or rejected a write.
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeTimeout indicates a store operation exceeded its deadline.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeData indicates corrupt persisted data (bad partition layout,
	// unreadable file).
	ErrorTypeData ErrorType = "data"
	// ErrorTypeConfig indicates invalid configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeInternal indicates an unexpected internal error.
	ErrorTypeInternal ErrorType = "internal"
)

// Error is a categorized error with structured context and the call stack
// captured at creation.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is a single frame of the call stack at error creation.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail to the error. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns a previously attached detail, or nil.
func (e *Error) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New creates an error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates an error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with a type and message, preserving the
// original as the cause. Returns nil for a nil input.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// Preserve the original stack when re-wrapping one of our own.
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether err is (or wraps) an Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal when err is not
// a structured Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// IsRetryable reports whether the error category is worth retrying.
// Storage and timeout errors are transient; everything else is not.
func IsRetryable(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeStorage, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
