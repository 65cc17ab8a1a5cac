package services

import "errors"

// Service errors. The HTTP layer maps these to status codes.
var (
	// Dataset errors
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrInvalidColumn     = errors.New("column not found in dataset")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds upload limit")
	ErrInvalidUpload     = errors.New("upload could not be parsed")

	// Dashboard errors
	ErrDashboardNotFound = errors.New("dashboard not found")
	ErrInvalidDashboard  = errors.New("invalid dashboard")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
