package storage

import (
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

// MaxSavedQuotes caps the favourites list; the oldest entries drop off
const MaxSavedQuotes = 10

// QuoteStore is the favourites list mirrored under savedQuotes, newest first
type QuoteStore struct {
	kv     kvstore.Store
	mutex  sync.Mutex
	quotes []models.SavedQuote
	now    func() time.Time
}

// LoadQuotes reads the favourites list from kv
func LoadQuotes(kv kvstore.Store, now func() time.Time) *QuoteStore {
	if now == nil {
		now = time.Now
	}
	quotes, err := loadCollection(kv, KeySavedQuotes, legacySavedQuote)
	if err != nil {
		log.Warnf("Saved quotes unavailable: %v", err)
		quotes = []models.SavedQuote{}
	}
	return &QuoteStore{kv: kv, quotes: quotes, now: now}
}

// Save stores q at the front of the list. Saving a quote with the same text
// and author again is rejected.
func (s *QuoteStore) Save(q models.Quote) (models.SavedQuote, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, saved := range s.quotes {
		if saved.SameAs(q) {
			return models.SavedQuote{}, errors.ErrQuoteDuplicate
		}
	}

	now := s.now()
	id := now.UnixMilli()
	// Ids are millisecond stamps; keep them unique when saves land in the same ms
	if len(s.quotes) > 0 && s.quotes[0].ID >= id {
		id = s.quotes[0].ID + 1
	}
	saved := models.SavedQuote{ID: id, Quote: q, SavedAt: now}

	next := append([]models.SavedQuote{saved}, s.quotes...)
	if len(next) > MaxSavedQuotes {
		next = next[:MaxSavedQuotes]
	}
	if err := saveCollection(s.kv, KeySavedQuotes, next); err != nil {
		return models.SavedQuote{}, err
	}
	s.quotes = next
	return saved, nil
}

// Remove drops the saved quote with id
func (s *QuoteStore) Remove(id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	next := make([]models.SavedQuote, 0, len(s.quotes))
	for _, q := range s.quotes {
		if q.ID != id {
			next = append(next, q)
		}
	}
	if len(next) == len(s.quotes) {
		return errors.ErrQuoteNotFound.WithContext("quoteId", id)
	}
	if err := saveCollection(s.kv, KeySavedQuotes, next); err != nil {
		return err
	}
	s.quotes = next
	return nil
}

// Get returns the saved quote with id
func (s *QuoteStore) Get(id int64) (models.SavedQuote, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, q := range s.quotes {
		if q.ID == id {
			return q, nil
		}
	}
	return models.SavedQuote{}, errors.ErrQuoteNotFound.WithContext("quoteId", id)
}

// List returns the saved quotes, newest first
func (s *QuoteStore) List() []models.SavedQuote {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]models.SavedQuote, len(s.quotes))
	copy(out, s.quotes)
	return out
}

// legacySavedQuote decodes entries whose savedAt was a locale string
func legacySavedQuote(v gjson.Result) (models.SavedQuote, bool) {
	text := v.Get("text").String()
	if text == "" {
		return models.SavedQuote{}, false
	}
	q := models.SavedQuote{
		ID: v.Get("id").Int(),
		Quote: models.Quote{
			Text:   text,
			Author: v.Get("author").String(),
			Source: v.Get("source").String(),
		},
	}
	if t, err := time.Parse(time.RFC3339, v.Get("saved_at").String()); err == nil {
		q.SavedAt = t
	} else if q.ID > 0 {
		q.SavedAt = time.UnixMilli(q.ID)
	}
	return q, true
}
