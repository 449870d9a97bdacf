package services

import (
	"io"
	"time"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
	"pdfdesk/pkg/storage"
	"pdfdesk/pkg/utils"
)

// AdminService exposes the admin document collection. Every operation
// consults the session first and fails with ErrNotAuthenticated while it is
// logged out, including downloads of a document already open in the viewer.
type AdminService struct {
	session   *auth.Manager
	downloads *storage.DownloadLog
	notifier  auth.Notifier
	now       func() time.Time
}

// NewAdminService creates the service
func NewAdminService(session *auth.Manager, downloads *storage.DownloadLog, notifier auth.Notifier, now func() time.Time) *AdminService {
	return &AdminService{
		session:   session,
		downloads: downloads,
		notifier:  notifierOrNop(notifier),
		now:       clockOrNow(now),
	}
}

func (s *AdminService) documents() (*storage.DocumentStore, error) {
	docs, err := s.session.Documents()
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			appErr.Log()
		}
		s.notifier.Notify("Admin access required", auth.SeverityError)
		return nil, err
	}
	return docs, nil
}

// List returns the admin documents
func (s *AdminService) List() ([]models.AdminDocument, error) {
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docs.List(), nil
}

// Upload adds a PDF to the admin collection
func (s *AdminService) Upload(name string, data []byte) (models.AdminDocument, error) {
	docs, err := s.documents()
	if err != nil {
		return models.AdminDocument{}, err
	}
	if err := validateUpload(name, data); err != nil {
		s.notifier.Notify(userMessage(err), auth.SeverityError)
		return models.AdminDocument{}, err
	}

	doc := models.AdminDocument{
		ID:         utils.GenerateShortUUID(),
		Name:       name,
		Size:       int64(len(data)),
		Data:       data,
		UploadedAt: s.now(),
	}
	if err := docs.Insert(doc); err != nil {
		if appErr, ok := errors.As(err); ok {
			appErr.Log()
		}
		s.notifier.Notify(userMessage(err), auth.SeverityError)
		return models.AdminDocument{}, err
	}

	log.Infof("Admin document uploaded: %s (%s)", doc.ID, doc.Name)
	s.notifier.Notify("Admin upload: "+name, auth.SeveritySuccess)
	return doc, nil
}

// Download returns the document with id and counts the download
func (s *AdminService) Download(id string) (models.AdminDocument, error) {
	docs, err := s.documents()
	if err != nil {
		return models.AdminDocument{}, err
	}

	doc, err := docs.RecordDownload(id)
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			appErr.Log()
		}
		return models.AdminDocument{}, err
	}

	if err := s.downloads.Record(models.DownloadRecord{
		FileID:       doc.ID,
		Name:         doc.Name,
		Admin:        true,
		DownloadedAt: s.now(),
	}); err != nil {
		log.Warnf("Recording download of %s: %v", doc.ID, err)
	}
	return doc, nil
}

// Remove deletes the document with id
func (s *AdminService) Remove(id string) error {
	docs, err := s.documents()
	if err != nil {
		return err
	}
	if err := docs.Remove(id); err != nil {
		if appErr, ok := errors.As(err); ok {
			appErr.Log()
		}
		return err
	}
	log.Infof("Admin document removed: %s", id)
	s.notifier.Notify("Admin document removed", auth.SeverityInfo)
	return nil
}

// Backup writes a zip archive of every admin document to w
func (s *AdminService) Backup(w io.Writer) error {
	docs, err := s.documents()
	if err != nil {
		return err
	}
	return storage.WriteBackup(w, docs.List())
}

func userMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.GetUserMessage()
	}
	return err.Error()
}
