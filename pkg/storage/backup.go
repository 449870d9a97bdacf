package storage

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pdfdesk/pkg/models"
)

type backupManifestEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Downloads  int       `json:"downloads"`
	Path       string    `json:"path"`
}

// WriteBackup writes a zip archive of docs to w: one PDF per document under
// documents/ plus a manifest.json describing them.
func WriteBackup(w io.Writer, docs []models.AdminDocument) error {
	zipWriter := zip.NewWriter(w)

	manifest := make([]backupManifestEntry, 0, len(docs))
	for _, doc := range docs {
		path := fmt.Sprintf("documents/%s-%s", doc.ID, doc.Name)
		f, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:     path,
			Method:   zip.Deflate,
			Modified: doc.UploadedAt,
		})
		if err != nil {
			return fmt.Errorf("add %s to backup: %w", doc.Name, err)
		}
		if _, err := f.Write(doc.Data); err != nil {
			return fmt.Errorf("write %s to backup: %w", doc.Name, err)
		}
		manifest = append(manifest, backupManifestEntry{
			ID:         doc.ID,
			Name:       doc.Name,
			Size:       doc.Size,
			UploadedAt: doc.UploadedAt,
			Downloads:  doc.Downloads,
			Path:       path,
		})
	}

	mf, err := zipWriter.Create("manifest.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return err
	}

	return zipWriter.Close()
}

// BackupFileName names the archive after the time it was taken
func BackupFileName(now time.Time) string {
	return "admin-backup-" + now.Format("20060102-1504") + ".zip"
}
