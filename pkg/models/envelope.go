package models

// SchemaVersion is written into every persisted collection
const SchemaVersion = 1

// Envelope wraps a persisted collection with its schema version
type Envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}
