package ingest

import "errors"

var (
	// ErrUnsupportedFormat is returned for extensions without a parser
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile is returned when a file holds no header or no records
	ErrEmptyFile = errors.New("file contains no data")
	// ErrMalformed wraps decoder failures
	ErrMalformed = errors.New("malformed file")
)
