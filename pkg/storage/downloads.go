package storage

import (
	"sync"

	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

// MaxDownloadRecords caps the download history
const MaxDownloadRecords = 50

// DownloadLog is the download history mirrored under downloadedFiles,
// newest first
type DownloadLog struct {
	kv      kvstore.Store
	mutex   sync.Mutex
	records []models.DownloadRecord
}

// LoadDownloadLog reads the download history from kv. An unreadable store
// yields an empty history; it is rewritten on the next download.
func LoadDownloadLog(kv kvstore.Store) *DownloadLog {
	records, err := loadCollection(kv, KeyDownloadedFiles, legacyJSON[models.DownloadRecord])
	if err != nil {
		log.Warnf("Download history unavailable: %v", err)
		records = []models.DownloadRecord{}
	}
	return &DownloadLog{kv: kv, records: records}
}

// Record prepends rec and persists the history
func (l *DownloadLog) Record(rec models.DownloadRecord) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	next := append([]models.DownloadRecord{rec}, l.records...)
	if len(next) > MaxDownloadRecords {
		next = next[:MaxDownloadRecords]
	}
	if err := saveCollection(l.kv, KeyDownloadedFiles, next); err != nil {
		return err
	}
	l.records = next
	return nil
}

// List returns the history, newest first
func (l *DownloadLog) List() []models.DownloadRecord {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	out := make([]models.DownloadRecord, len(l.records))
	copy(out, l.records)
	return out
}
