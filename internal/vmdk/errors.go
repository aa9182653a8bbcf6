package vmdk

import (
	"errors"
	"fmt"
)

// Common errors that can occur when decoding VMDK metadata
var (
	// I/O errors
	ErrIOError = errors.New("I/O error")

	// Sparse header errors
	ErrHeaderTooShort = errors.New("sparse header buffer shorter than one sector")
	ErrInvalidMagic   = errors.New("invalid sparse header magic number")

	// Descriptor errors
	ErrDescriptorTooLarge = errors.New("embedded descriptor size exceeds sanity limit")
	ErrDescriptorMissing  = errors.New("sparse header declares no embedded descriptor")

	// Field validation errors
	ErrInvalidGrainSize = errors.New("grain size is not a power of two >= 8")
	ErrInvalidCapacity  = errors.New("capacity is not a multiple of grain size")
)

// FormatError carries the operation and file that produced a decode failure.
type FormatError struct {
	Err  error  // the underlying error
	Op   string // the operation that failed
	Path string // the file being decoded, if known
}

// Error implements the error interface
func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError creates a new FormatError with the given details
func NewFormatError(err error, op string, path string) error {
	return &FormatError{Err: err, Op: op, Path: path}
}

// IsInvalidData returns true if the error indicates malformed on-disk data
// rather than an I/O failure.
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrHeaderTooShort) || errors.Is(err, ErrInvalidMagic) ||
		errors.Is(err, ErrDescriptorTooLarge) || errors.Is(err, ErrDescriptorMissing)
}
