package services

import (
	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/storage"
)

// PreferencesService exposes the persisted theme
type PreferencesService struct {
	prefs    *storage.Preferences
	notifier auth.Notifier
}

// NewPreferencesService creates the service
func NewPreferencesService(prefs *storage.Preferences, notifier auth.Notifier) *PreferencesService {
	return &PreferencesService{prefs: prefs, notifier: notifierOrNop(notifier)}
}

// Theme returns "light" or "dark"
func (s *PreferencesService) Theme() string {
	return s.prefs.Theme()
}

// ToggleTheme switches between light and dark
func (s *PreferencesService) ToggleTheme() (string, error) {
	theme, err := s.prefs.ToggleTheme()
	if err != nil {
		log.Warnf("Saving theme: %v", err)
		s.notifier.Notify(userMessage(err), auth.SeverityError)
		return theme, err
	}
	return theme, nil
}
