package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for extensions without an extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoText is returned when every page is empty after extraction.
	ErrNoText = errors.New("no extractable text")
)

// FileReadError means the file could not be read or parsed.
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// FileSizeError means the file exceeded the configured size limit.
type FileSizeError struct {
	Name  string
	Limit int64
}

func (e *FileSizeError) Error() string {
	return fmt.Sprintf("%s exceeds the size limit of %d bytes", e.Name, e.Limit)
}
