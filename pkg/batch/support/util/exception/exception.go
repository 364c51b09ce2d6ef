// Package exception provides the error type and classification helpers shared
// by every Helios component. Errors carry the module they came from and a flag
// telling the caller whether the unit of work may be skipped.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel error classes. Wrap them in a BatchError so callers can use errors.Is.
var (
	// ErrConfiguration marks a missing or invalid configuration value. Always fatal.
	ErrConfiguration = errors.New("configuration error")
	// ErrArchiveIO marks a failure to read an imagery archive (missing file, bad offset).
	ErrArchiveIO = errors.New("archive I/O error")
	// ErrShapeMismatch marks a violated array-shape invariant.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrStorage marks a failure to persist or export a batch file.
	ErrStorage = errors.New("storage error")
)

// BatchError is the error type raised by Helios components.
type BatchError struct {
	// Module indicates where the error occurred (e.g. "catalog", "imagery", "assembler").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	isSkippable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// NewBatchError creates a new BatchError.
func NewBatchError(module, message string, originalErr error, isSkippable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string. A trailing
// error argument becomes OriginalErr; the rest are used for fmt.Sprintf.
//
//	NewBatchErrorf("imagery", "cannot read %s", path, err)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok {
			originalErr = err
			args = args[:n-1]
		}
	}
	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr, false)
}

// NewSkippableError wraps cause in an error that only costs the current work
// item, e.g. a T0 with no imagery. Callers check it with IsSkippable.
func NewSkippableError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, cause, true)
}

// NewConfigurationError wraps ErrConfiguration. Configuration errors abort startup.
func NewConfigurationError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrConfiguration, cause), false)
}

// NewArchiveError wraps ErrArchiveIO. It is fatal for the current work item.
func NewArchiveError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrArchiveIO, cause), false)
}

// NewShapeError wraps ErrShapeMismatch. It indicates an upstream logic defect.
func NewShapeError(module, message string) *BatchError {
	return NewBatchError(module, message, ErrShapeMismatch, false)
}

// NewStorageError wraps ErrStorage.
func NewStorageError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, join(ErrStorage, cause), false)
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, flatten(e.OriginalErr))
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// flatten renders joined errors on one line.
func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}

// Unwrap returns the original error for errors.Is and errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsSkippable reports whether err, or an error it wraps, allows the current
// item to be skipped.
func IsSkippable(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsSkippable()
	}
	return false
}
