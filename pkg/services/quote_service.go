package services

import (
	"context"
	"sync"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
	"pdfdesk/pkg/quotes"
	"pdfdesk/pkg/storage"
)

// QuoteService tracks the quote on display and the saved favourites
type QuoteService struct {
	fetcher  *quotes.Fetcher
	saved    *storage.QuoteStore
	notifier auth.Notifier

	mutex   sync.Mutex
	current *models.Quote
}

// NewQuoteService creates the service
func NewQuoteService(fetcher *quotes.Fetcher, saved *storage.QuoteStore, notifier auth.Notifier) *QuoteService {
	return &QuoteService{fetcher: fetcher, saved: saved, notifier: notifierOrNop(notifier)}
}

// Random shows a quote from a random source, or a local one when the source
// cannot be reached. fallback reports which.
func (s *QuoteService) Random(ctx context.Context) (quote models.Quote, fallback bool) {
	q, err := s.fetcher.Random(ctx)
	if err != nil {
		log.Warnf("Random quote: %v", err)
		q = s.fetcher.FallbackQuote()
		s.setCurrent(q)
		s.notifier.Notify("Using local inspiration", auth.SeverityInfo)
		return q, true
	}
	s.setCurrent(q)
	s.notifier.Notify("New inspiration loaded!", auth.SeveritySuccess)
	return q, false
}

// ByCategory shows a quote tagged with category, falling back like Random
func (s *QuoteService) ByCategory(ctx context.Context, category string) (quote models.Quote, fallback bool) {
	q, err := s.fetcher.ByCategory(ctx, category)
	if err != nil {
		log.Warnf("Category quote %q: %v", category, err)
		q = s.fetcher.FallbackQuote()
		s.setCurrent(q)
		s.notifier.Notify("Category quote unavailable, showing random inspiration", auth.SeverityWarning)
		return q, true
	}
	s.setCurrent(q)
	s.notifier.Notify(category+" quote loaded!", auth.SeverityInfo)
	return q, false
}

// Current returns the quote on display
func (s *QuoteService) Current() (models.Quote, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.current == nil {
		return models.Quote{}, errors.ErrNoQuote
	}
	return *s.current, nil
}

func (s *QuoteService) setCurrent(q models.Quote) {
	s.mutex.Lock()
	s.current = &q
	s.mutex.Unlock()
}

// SaveCurrent adds the quote on display to the favourites
func (s *QuoteService) SaveCurrent() (models.SavedQuote, error) {
	q, err := s.Current()
	if err != nil {
		s.notifier.Notify("No quote to save", auth.SeverityError)
		return models.SavedQuote{}, err
	}
	saved, err := s.saved.Save(q)
	if err != nil {
		if errors.Is(err, errors.ErrQuoteDuplicate) {
			s.notifier.Notify("Quote already saved!", auth.SeverityWarning)
		} else {
			s.notifier.Notify(userMessage(err), auth.SeverityError)
		}
		return models.SavedQuote{}, err
	}
	s.notifier.Notify("Quote saved to favorites!", auth.SeveritySuccess)
	return saved, nil
}

// Saved lists the favourites, newest first
func (s *QuoteService) Saved() []models.SavedQuote {
	return s.saved.List()
}

// LoadSaved puts a favourite back on display
func (s *QuoteService) LoadSaved(id int64) (models.Quote, error) {
	saved, err := s.saved.Get(id)
	if err != nil {
		return models.Quote{}, err
	}
	s.setCurrent(saved.Quote)
	s.notifier.Notify("Loaded saved quote!", auth.SeverityInfo)
	return saved.Quote, nil
}

// RemoveSaved drops a favourite
func (s *QuoteService) RemoveSaved(id int64) error {
	if err := s.saved.Remove(id); err != nil {
		return err
	}
	s.notifier.Notify("Quote removed from favorites", auth.SeverityInfo)
	return nil
}

// Share returns the share text of the quote on display
func (s *QuoteService) Share() (string, error) {
	q, err := s.Current()
	if err != nil {
		s.notifier.Notify("No quote to share", auth.SeverityError)
		return "", err
	}
	return quotes.ShareText(q), nil
}
