package types

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"pdfdesk/pkg/models"
)

// DocumentView is a document as listed by the API, without its payload
type DocumentView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	SizeLabel  string `json:"size_label"`
	UploadedAt string `json:"uploaded_at"` // RFC3339
	Uploaded   string `json:"uploaded"`    // relative, e.g. "3 minutes ago"
	Downloads  int    `json:"downloads"`
	Admin      bool   `json:"admin"`
}

// FromAdminDocument converts an admin document for listing
func FromAdminDocument(doc models.AdminDocument, now time.Time) DocumentView {
	return DocumentView{
		ID:         doc.ID,
		Name:       doc.Name,
		Size:       doc.Size,
		SizeLabel:  humanize.IBytes(uint64(doc.Size)),
		UploadedAt: doc.UploadedAt.Format(time.RFC3339),
		Uploaded:   humanize.RelTime(doc.UploadedAt, now, "ago", "from now"),
		Downloads:  doc.Downloads,
		Admin:      true,
	}
}

// FromAdminDocuments converts a slice of admin documents
func FromAdminDocuments(docs []models.AdminDocument, now time.Time) []DocumentView {
	views := make([]DocumentView, len(docs))
	for i, doc := range docs {
		views[i] = FromAdminDocument(doc, now)
	}
	return views
}

// FromLibraryFile converts a library file for listing
func FromLibraryFile(f models.LibraryFile, now time.Time) DocumentView {
	return DocumentView{
		ID:         f.ID,
		Name:       f.Name,
		Size:       f.Size,
		SizeLabel:  humanize.IBytes(uint64(f.Size)),
		UploadedAt: f.UploadedAt.Format(time.RFC3339),
		Uploaded:   humanize.RelTime(f.UploadedAt, now, "ago", "from now"),
	}
}

// FromLibraryFiles converts a slice of library files
func FromLibraryFiles(files []models.LibraryFile, now time.Time) []DocumentView {
	views := make([]DocumentView, len(files))
	for i, f := range files {
		views[i] = FromLibraryFile(f, now)
	}
	return views
}

// SessionView is the admin session as reported by the API
type SessionView struct {
	State            string `json:"state"`
	Authenticated    bool   `json:"authenticated"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Remaining        string `json:"remaining"` // mm:ss
	AuthenticatedAt  string `json:"authenticated_at,omitempty"`
}

// NewSessionView formats a session snapshot
func NewSessionView(state string, authenticated bool, remaining time.Duration, at time.Time) SessionView {
	secs := int64(remaining / time.Second)
	v := SessionView{
		State:            state,
		Authenticated:    authenticated,
		RemainingSeconds: secs,
		Remaining:        FormatCountdown(remaining),
	}
	if authenticated && !at.IsZero() {
		v.AuthenticatedAt = at.Format(time.RFC3339)
	}
	return v
}

// FormatCountdown renders d as mm:ss
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
