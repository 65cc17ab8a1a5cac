package domain

import (
	"time"
)

// DatasetInfo describes an uploaded dataset without its rows
type DatasetInfo struct {
	ID         string    `json:"id" validate:"required,uuid"`
	Name       string    `json:"name" validate:"required"`
	FileType   string    `json:"file_type" validate:"required,oneof=csv txt json xml svg xlsx"`
	Size       int64     `json:"size"`
	Columns    []string  `json:"columns"`
	RowCount   int       `json:"row_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DatasetEventType names a dataset lifecycle change
type DatasetEventType string

const (
	DatasetUploaded    DatasetEventType = "uploaded"
	DatasetClassified  DatasetEventType = "classified"
	DatasetTransformed DatasetEventType = "transformed"
	DatasetDeleted     DatasetEventType = "deleted"
)
