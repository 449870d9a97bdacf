package storage

import (
	"pdfdesk/pkg/kvstore"
)

// Theme names
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Preferences holds the persisted UI theme
type Preferences struct {
	kv kvstore.Store
}

// NewPreferences wraps kv
func NewPreferences(kv kvstore.Store) *Preferences {
	return &Preferences{kv: kv}
}

// Theme returns the stored theme, light when unset or unreadable
func (p *Preferences) Theme() string {
	v, ok, err := p.kv.Get(KeyTheme)
	if err != nil || !ok || v != ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ToggleTheme flips the theme and returns the new value
func (p *Preferences) ToggleTheme() (string, error) {
	next := ThemeDark
	if p.Theme() == ThemeDark {
		next = ThemeLight
	}
	if err := p.kv.Set(KeyTheme, next); err != nil {
		return p.Theme(), err
	}
	return next, nil
}
