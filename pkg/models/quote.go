package models

import "time"

// Quote is an inspirational quote and where it came from
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Source string `json:"source"`
}

// SavedQuote is a quote kept in the favourites list
type SavedQuote struct {
	ID int64 `json:"id"`
	Quote
	SavedAt time.Time `json:"saved_at"`
}

// SameAs reports whether two quotes have the same text and author
func (q Quote) SameAs(other Quote) bool {
	return q.Text == other.Text && q.Author == other.Author
}
