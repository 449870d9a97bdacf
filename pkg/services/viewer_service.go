package services

import (
	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/viewer"
)

// ViewerService opens library and admin documents in the viewer
type ViewerService struct {
	viewer   *viewer.Viewer
	library  *LibraryService
	admin    *AdminService
	notifier auth.Notifier
}

// NewViewerService creates the service
func NewViewerService(v *viewer.Viewer, library *LibraryService, admin *AdminService, notifier auth.Notifier) *ViewerService {
	return &ViewerService{viewer: v, library: library, admin: admin, notifier: notifierOrNop(notifier)}
}

// Open loads the document with id. Admin documents need a live session.
func (s *ViewerService) Open(id string, admin bool) (viewer.State, error) {
	var (
		name string
		data []byte
	)
	if admin {
		docs, err := s.admin.documents()
		if err != nil {
			return s.viewer.State(), err
		}
		doc, err := docs.Get(id)
		if err != nil {
			return s.viewer.State(), err
		}
		name, data = doc.Name, doc.Data
	} else {
		file, err := s.library.Get(id)
		if err != nil {
			return s.viewer.State(), err
		}
		name, data = file.Name, file.Data
	}

	state, err := s.viewer.Open(viewer.Document{ID: id, Name: name, Admin: admin}, data)
	if err != nil {
		s.notifier.Notify("Error loading PDF", auth.SeverityError)
		return state, err
	}
	// A logout that ran between the session check and Open has already
	// swept the viewer, so the document must be closed here
	if admin && !s.admin.session.IsAuthenticated() {
		s.viewer.CloseIf(id)
		s.notifier.Notify("Admin access required", auth.SeverityError)
		return s.viewer.State(), errors.ErrNotAuthenticated
	}
	s.notifier.Notify("Loaded: "+name, auth.SeverityInfo)
	return state, nil
}

// Download is a document handed out by DownloadCurrent
type Download struct {
	ID    string
	Name  string
	Data  []byte
	Admin bool
}

// DownloadCurrent returns the document open in the viewer. Admin documents
// go through AdminService.Download, so they need a live session and their
// download is counted.
func (s *ViewerService) DownloadCurrent() (Download, error) {
	state := s.viewer.State()
	if !state.Open || state.Document == nil {
		s.notifier.Notify("No PDF loaded", auth.SeverityError)
		return Download{}, errors.ErrNoDocumentOpen
	}

	doc := state.Document
	if doc.Admin {
		adminDoc, err := s.admin.Download(doc.ID)
		if err != nil {
			return Download{}, err
		}
		s.notifier.Notify("Download started", auth.SeveritySuccess)
		return Download{ID: adminDoc.ID, Name: adminDoc.Name, Data: adminDoc.Data, Admin: true}, nil
	}

	file, err := s.library.Download(doc.ID)
	if err != nil {
		return Download{}, err
	}
	s.notifier.Notify("Download started", auth.SeveritySuccess)
	return Download{ID: file.ID, Name: file.Name, Data: file.Data}, nil
}

// DocumentRemoved closes the viewer when it shows id
func (s *ViewerService) DocumentRemoved(id string) {
	s.viewer.CloseIf(id)
}

func (s *ViewerService) State() viewer.State                 { return s.viewer.State() }
func (s *ViewerService) Next() (viewer.State, error)         { return s.viewer.Next() }
func (s *ViewerService) Previous() (viewer.State, error)     { return s.viewer.Previous() }
func (s *ViewerService) GoTo(page int) (viewer.State, error) { return s.viewer.GoTo(page) }
func (s *ViewerService) SetScale(scale float64) viewer.State { return s.viewer.SetScale(scale) }
func (s *ViewerService) Zoom(steps int) viewer.State         { return s.viewer.Zoom(steps) }

// SessionSignals forwards session transitions to Signals, which must be set,
// and hides the admin document from the viewer when the session ends
type SessionSignals struct {
	auth.Signals
	Viewer *viewer.Viewer
}

func (s SessionSignals) LoggedOut(reason auth.LogoutReason) {
	if s.Viewer != nil && s.Viewer.CloseAdmin() {
		log.Infof("Closed admin document in viewer after logout (%s)", reason)
	}
	s.Signals.LoggedOut(reason)
}

var _ auth.Signals = SessionSignals{}
