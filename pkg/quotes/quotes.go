// Package quotes fetches inspirational quotes from public APIs.
package quotes

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	logging "github.com/ipfs/go-log/v2"
	"github.com/tidwall/gjson"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
)

var log = logging.Logger("quotes")

const maxBodyBytes = 4 << 20

// Source is one quote API and how to pull a quote out of its response.
// pick chooses an index in [0, n) when the API returns a list.
type Source struct {
	Name    string
	URL     string
	Extract func(body []byte, pick func(n int) int) (models.Quote, bool)
}

// DefaultSources returns the public APIs queried for random quotes
func DefaultSources() []Source {
	return []Source{
		{
			Name: "ZenQuotes",
			URL:  "https://zenquotes.io/api/random",
			Extract: func(body []byte, _ func(int) int) (models.Quote, bool) {
				r := gjson.GetManyBytes(body, "0.q", "0.a")
				return quoteFrom(r[0].String(), r[1].String(), "ZenQuotes")
			},
		},
		{
			Name:    "Quotable",
			URL:     "https://api.quotable.io/random",
			Extract: extractQuotable("Quotable"),
		},
		{
			Name: "Type.fit",
			URL:  "https://type.fit/api/quotes",
			Extract: func(body []byte, pick func(int) int) (models.Quote, bool) {
				n := int(gjson.GetBytes(body, "#").Int())
				if n == 0 {
					return models.Quote{}, false
				}
				i := strconv.Itoa(pick(n))
				r := gjson.GetManyBytes(body, i+".text", i+".author")
				// type.fit appends ", type.fit" to every author
				author := strings.TrimSuffix(r[1].String(), ", type.fit")
				return quoteFrom(r[0].String(), author, "Type.fit")
			},
		},
	}
}

// DefaultCategoryURL is queried with ?tags=<category>
const DefaultCategoryURL = "https://api.quotable.io/random"

func extractQuotable(source string) func([]byte, func(int) int) (models.Quote, bool) {
	return func(body []byte, _ func(int) int) (models.Quote, bool) {
		// /random answers with an object, /quotes/random with a one element list
		r := gjson.GetManyBytes(body, "content", "author")
		if !r[0].Exists() {
			r = gjson.GetManyBytes(body, "0.content", "0.author")
		}
		return quoteFrom(r[0].String(), r[1].String(), source)
	}
}

func quoteFrom(text, author, source string) (models.Quote, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Quote{}, false
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = "Unknown"
	}
	return models.Quote{Text: text, Author: author, Source: source}, true
}

// Fallback quotes served when no API answers
var Fallback = []models.Quote{
	{Text: "The only way to do great work is to love what you do.", Author: "Steve Jobs", Source: "Local Wisdom"},
	{Text: "Success is not final, failure is not fatal: it is the courage to continue that counts.", Author: "Winston Churchill", Source: "Local Wisdom"},
	{Text: "Innovation distinguishes between a leader and a follower.", Author: "Steve Jobs", Source: "Local Wisdom"},
	{Text: "The future belongs to those who believe in the beauty of their dreams.", Author: "Eleanor Roosevelt", Source: "Local Wisdom"},
}

// Options configures a Fetcher
type Options struct {
	Client          *http.Client
	Timeout         time.Duration
	Retries         int
	InitialInterval time.Duration
	Sources         []Source
	CategoryURL     string
	// Pick returns an index in [0, n); random when nil
	Pick func(n int) int
}

// Fetcher queries the quote APIs with retries
type Fetcher struct {
	client          *http.Client
	retries         int
	initialInterval time.Duration
	sources         []Source
	categoryURL     string
	pick            func(n int) int
}

// NewFetcher creates a fetcher; zero options select the public APIs
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultSources()
	}
	if opts.CategoryURL == "" {
		opts.CategoryURL = DefaultCategoryURL
	}
	if opts.Pick == nil {
		var mu sync.Mutex
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		opts.Pick = func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return rng.Intn(n)
		}
	}
	return &Fetcher{
		client:          opts.Client,
		retries:         opts.Retries,
		initialInterval: opts.InitialInterval,
		sources:         opts.Sources,
		categoryURL:     opts.CategoryURL,
		pick:            opts.Pick,
	}
}

// Random fetches a quote from a randomly chosen source
func (f *Fetcher) Random(ctx context.Context) (models.Quote, error) {
	src := f.sources[f.pick(len(f.sources))]
	return f.fetch(ctx, src.Name, src.URL, src.Extract)
}

// ByCategory fetches a quote tagged with category
func (f *Fetcher) ByCategory(ctx context.Context, category string) (models.Quote, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return models.Quote{}, errors.New(errors.ErrTypeValidation, "CATEGORY_REQUIRED", "category is required").
			WithUserMessage("Pick a category")
	}
	u, err := url.Parse(f.categoryURL)
	if err != nil {
		return models.Quote{}, errors.Wrap(err, errors.ErrTypeConfig, "BAD_CATEGORY_URL", "invalid category URL")
	}
	q := u.Query()
	q.Set("tags", category)
	u.RawQuery = q.Encode()

	name := "Quotable - " + capitalize(category)
	return f.fetch(ctx, name, u.String(), extractQuotable(name))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// FallbackQuote returns one of the local quotes
func (f *Fetcher) FallbackQuote() models.Quote {
	return Fallback[f.pick(len(Fallback))]
}

func (f *Fetcher) fetch(ctx context.Context, name, rawURL string, extract func([]byte, func(int) int) (models.Quote, bool)) (models.Quote, error) {
	var quote models.Quote

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s answered %s", name, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%s answered %s", name, resp.Status))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		if !gjson.ValidBytes(body) {
			return backoff.Permanent(fmt.Errorf("%s returned invalid JSON", name))
		}
		q, ok := extract(body, f.pick)
		if !ok {
			return backoff.Permanent(fmt.Errorf("%s returned no quote", name))
		}
		quote = q
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = f.initialInterval
	expBackoff.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(f.retries)), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		log.Debugf("Quote fetch from %s failed, retrying in %s: %v", name, wait, err)
	})
	if err != nil {
		return models.Quote{}, errors.Wrap(err, errors.ErrTypeNetwork, errors.ErrQuoteSourceFailed.Code,
			"quote source request failed").
			WithUserMessage(errors.ErrQuoteSourceFailed.UserMessage).
			WithContext("source", name)
	}
	return quote, nil
}

// ShareText formats q for sharing
func ShareText(q models.Quote) string {
	return fmt.Sprintf("\"%s\" — %s\n#DailyMotivation #%s", q.Text, q.Author, q.Source)
}
