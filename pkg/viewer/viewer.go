// Package viewer tracks the document open in the reader: which one it is,
// the page shown and the zoom scale. Rendering happens in the browser.
package viewer

import (
	"bytes"
	"math"
	"regexp"
	"sync"

	"pdfdesk/pkg/errors"
)

const (
	DefaultScale = 1.5
	MinScale     = 0.5
	MaxScale     = 3.0
	ScaleStep    = 0.25
)

// PageCounter reports how many pages a PDF has
type PageCounter interface {
	CountPages(data []byte) (int, error)
}

var pageObject = regexp.MustCompile(`/Type\s*/Page\b`)

// HeuristicCounter counts page objects in the raw file. It does not parse
// compressed object streams, so it falls back to one page when it finds none.
type HeuristicCounter struct{}

func (HeuristicCounter) CountPages(data []byte) (int, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\r\n\t "), []byte("%PDF")) {
		return 0, errors.ErrNotPDF
	}
	n := len(pageObject.FindAllIndex(data, -1))
	if n == 0 {
		n = 1
	}
	return n, nil
}

// Document identifies what is open
type Document struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

// State is a snapshot of the viewer
type State struct {
	Open     bool      `json:"open"`
	Document *Document `json:"document,omitempty"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Scale    float64   `json:"scale"`
}

// Viewer is safe for concurrent use
type Viewer struct {
	counter PageCounter
	mutex   sync.Mutex
	doc     *Document
	page    int
	pages   int
	scale   float64
}

// New creates a viewer with nothing open
func New(counter PageCounter) *Viewer {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	return &Viewer{counter: counter, scale: DefaultScale}
}

// Open shows doc from its first page
func (v *Viewer) Open(doc Document, data []byte) (State, error) {
	pages, err := v.counter.CountPages(data)
	if err != nil {
		return v.State(), err
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.doc = &doc
	v.page = 1
	v.pages = pages
	return v.stateLocked(), nil
}

// Close clears the viewer
func (v *Viewer) Close() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.doc = nil
	v.page = 0
	v.pages = 0
}

// CloseIf closes the viewer when id is the open document
func (v *Viewer) CloseIf(id string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.doc == nil || v.doc.ID != id {
		return false
	}
	v.doc = nil
	v.page = 0
	v.pages = 0
	return true
}

// CloseAdmin closes the viewer when an admin document is open
func (v *Viewer) CloseAdmin() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.doc == nil || !v.doc.Admin {
		return false
	}
	v.doc = nil
	v.page = 0
	v.pages = 0
	return true
}

// Next moves one page forward; it stays on the last page
func (v *Viewer) Next() (State, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.doc == nil {
		return v.stateLocked(), errors.ErrNoDocumentOpen
	}
	if v.page < v.pages {
		v.page++
	}
	return v.stateLocked(), nil
}

// Previous moves one page back; it stays on the first page
func (v *Viewer) Previous() (State, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.doc == nil {
		return v.stateLocked(), errors.ErrNoDocumentOpen
	}
	if v.page > 1 {
		v.page--
	}
	return v.stateLocked(), nil
}

// GoTo jumps to page n
func (v *Viewer) GoTo(n int) (State, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.doc == nil {
		return v.stateLocked(), errors.ErrNoDocumentOpen
	}
	if n < 1 || n > v.pages {
		return v.stateLocked(), errors.ErrPageOutOfRange.
			WithContext("page", n).
			WithContext("pages", v.pages)
	}
	v.page = n
	return v.stateLocked(), nil
}

// SetScale sets the zoom, clamped to [MinScale, MaxScale]
func (v *Viewer) SetScale(scale float64) State {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.scale = clampScale(scale)
	return v.stateLocked()
}

// Zoom changes the scale by steps of ScaleStep
func (v *Viewer) Zoom(steps int) State {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.scale = clampScale(v.scale + float64(steps)*ScaleStep)
	return v.stateLocked()
}

// State returns a snapshot
func (v *Viewer) State() State {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.stateLocked()
}

func (v *Viewer) stateLocked() State {
	s := State{Page: v.page, Pages: v.pages, Scale: v.scale}
	if v.doc != nil {
		doc := *v.doc
		s.Open = true
		s.Document = &doc
	}
	return s
}

func clampScale(s float64) float64 {
	if math.IsNaN(s) || s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
