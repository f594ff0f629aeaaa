package parser

import (
	"errors"
	"fmt"

	"docchat/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDecode            = errors.New("decode error")
	ErrParse             = errors.New("parse error")
	ErrEmptyExtraction   = errors.New("no text could be extracted")
	ErrTooLarge          = errors.New("file exceeds upload size limit")
)

// ExtractionFailure reports why a single file could not be turned into text.
// Cause wraps one of the sentinel errors above.
type ExtractionFailure struct {
	Filename string
	Format   models.Format
	Cause    error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Cause)
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Cause
}

func parseError(format models.Format, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrParse, format, err)
}
