// Package events contains the WebSocket message contracts pushed to
// dashboard clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset lifecycle
	MessageTypeDatasetUploaded    MessageType = "dataset.uploaded"
	MessageTypeDatasetClassified  MessageType = "dataset.classified"
	MessageTypeDatasetTransformed MessageType = "dataset.transformed"
	MessageTypeDatasetDeleted     MessageType = "dataset.deleted"

	// Dashboard lifecycle
	MessageTypeDashboardSaved   MessageType = "dashboard.saved"
	MessageTypeDashboardDeleted MessageType = "dashboard.deleted"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope of every WebSocket message
type Message struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// DatasetEvent is the payload of dataset.* messages
type DatasetEvent struct {
	DatasetID string   `json:"dataset_id"`
	Name      string   `json:"name,omitempty"`
	FileType  string   `json:"file_type,omitempty"`
	RowCount  int      `json:"row_count,omitempty"`
	Columns   []string `json:"columns,omitempty"`
}

// DashboardEvent is the payload of dashboard.* messages
type DashboardEvent struct {
	DashboardID string `json:"dashboard_id"`
	Name        string `json:"name,omitempty"`
}

// ConnectEvent is sent to a client right after it connects
type ConnectEvent struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
}
