package services

import (
	"strconv"
	"sync"
	"time"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
	"pdfdesk/pkg/storage"
	"pdfdesk/pkg/utils"
)

// MaxLibraryFiles caps the public library
const MaxLibraryFiles = 5

// LibraryService keeps the PDFs any visitor uploads. Files live in memory
// for the lifetime of the process.
type LibraryService struct {
	mutex     sync.RWMutex
	files     []models.LibraryFile
	maxFiles  int
	downloads *storage.DownloadLog
	notifier  auth.Notifier
	now       func() time.Time
}

// NewLibraryService creates an empty library
func NewLibraryService(downloads *storage.DownloadLog, notifier auth.Notifier, now func() time.Time) *LibraryService {
	return &LibraryService{
		maxFiles:  MaxLibraryFiles,
		downloads: downloads,
		notifier:  notifierOrNop(notifier),
		now:       clockOrNow(now),
	}
}

// List returns the files in upload order
func (s *LibraryService) List() []models.LibraryFile {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]models.LibraryFile, len(s.files))
	copy(out, s.files)
	return out
}

// Get returns the file with id
func (s *LibraryService) Get(id string) (models.LibraryFile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, f := range s.files {
		if f.ID == id {
			return f, nil
		}
	}
	return models.LibraryFile{}, errors.ErrDocumentNotFound.WithContext("fileId", id)
}

// Upload adds a PDF to the library
func (s *LibraryService) Upload(name string, data []byte) (models.LibraryFile, error) {
	if err := validateUpload(name, data); err != nil {
		s.notifier.Notify(userMessage(err), auth.SeverityError)
		return models.LibraryFile{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.files) >= s.maxFiles {
		err := errors.ErrCollectionFull.
			WithUserMessage("Maximum " + strconv.Itoa(s.maxFiles) + " files allowed").
			WithContext("max", s.maxFiles)
		err.Log()
		s.notifier.Notify(err.GetUserMessage(), auth.SeverityError)
		return models.LibraryFile{}, err
	}

	file := models.LibraryFile{
		ID:         utils.GenerateShortUUID(),
		Name:       name,
		Size:       int64(len(data)),
		Data:       data,
		UploadedAt: s.now(),
	}
	s.files = append(s.files, file)
	log.Infof("Library file uploaded: %s (%s)", file.ID, file.Name)
	s.notifier.Notify("Uploaded: "+name, auth.SeveritySuccess)
	return file, nil
}

// Remove drops the file with id
func (s *LibraryService) Remove(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, f := range s.files {
		if f.ID == id {
			s.files = append(s.files[:i:i], s.files[i+1:]...)
			s.notifier.Notify("File removed", auth.SeverityInfo)
			return nil
		}
	}
	return errors.ErrDocumentNotFound.WithContext("fileId", id)
}

// Download returns the file with id and records the download
func (s *LibraryService) Download(id string) (models.LibraryFile, error) {
	file, err := s.Get(id)
	if err != nil {
		return models.LibraryFile{}, err
	}
	if err := s.downloads.Record(models.DownloadRecord{
		FileID:       file.ID,
		Name:         file.Name,
		DownloadedAt: s.now(),
	}); err != nil {
		log.Warnf("Recording download of %s: %v", file.ID, err)
	}
	return file, nil
}

// Downloads returns the download history, newest first
func (s *LibraryService) Downloads() []models.DownloadRecord {
	return s.downloads.List()
}
