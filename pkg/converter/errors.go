package converter

import (
	"errors"
	"fmt"
)

// ErrInvalidVGM is matched by every FormatError
var ErrInvalidVGM = errors.New("invalid VGM file")

// FormatError reports input that is not a usable VGM dump
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidVGM, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidVGM) true for any FormatError
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidVGM
}

// IOError reports a failure reading input or writing output
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
