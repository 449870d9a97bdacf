package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateShortUUID generates a short UUID (8 characters) for document ids
func GenerateShortUUID() string {
	fullUUID := uuid.New().String()
	// Take first 8 characters for a short but still unique identifier
	return strings.ReplaceAll(fullUUID[:8], "-", "")
}

// GenerateClientID identifies a connected event stream client
func GenerateClientID() string {
	return uuid.NewString()
}

// TrimPDFExtension strips a trailing .pdf (any case) from a file name
func TrimPDFExtension(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name[:len(name)-4]
	}
	return name
}
