package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pdfdesk/pkg/models"
)

func TestDocumentViews(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	doc := models.AdminDocument{ID: "abcd1234", Name: "a.pdf", Size: 2048, UploadedAt: now.Add(-3 * time.Minute), Downloads: 2}

	v := FromAdminDocument(doc, now)
	assert.Equal(t, "2.0 KiB", v.SizeLabel)
	assert.Equal(t, "3 minutes ago", v.Uploaded)
	assert.True(t, v.Admin)
	assert.Equal(t, "2024-05-01T08:57:00Z", v.UploadedAt)

	lib := FromLibraryFiles([]models.LibraryFile{{ID: "x", Name: "b.pdf", Size: 10, UploadedAt: now}}, now)
	assert.Equal(t, "10 B", lib[0].SizeLabel)
	assert.False(t, lib[0].Admin)
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "30:00", FormatCountdown(30*time.Minute))
	assert.Equal(t, "00:59", FormatCountdown(59*time.Second+500*time.Millisecond))
	assert.Equal(t, "00:00", FormatCountdown(-time.Second))
	assert.Equal(t, "120:05", FormatCountdown(2*time.Hour+5*time.Second))
}
