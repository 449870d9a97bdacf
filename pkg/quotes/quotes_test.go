package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/models"
)

func first(int) int { return 0 }
func last(n int) int { return n - 1 }

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withURL(src Source, url string) []Source {
	src.URL = url
	return []Source{src}
}

func TestDefaultSourcesExtract(t *testing.T) {
	sources := DefaultSources()
	cases := []struct {
		src  Source
		body string
		pick func(int) int
		want models.Quote
	}{
		{sources[0], `[{"q":"Be here now.","a":"Ram Dass","h":"<b>"}]`, first,
			models.Quote{Text: "Be here now.", Author: "Ram Dass", Source: "ZenQuotes"}},
		{sources[0], `[{"q":"Anonymous wisdom.","a":""}]`, first,
			models.Quote{Text: "Anonymous wisdom.", Author: "Unknown", Source: "ZenQuotes"}},
		{sources[1], `{"_id":"x","content":"Act.","author":"Someone","tags":["famous"]}`, first,
			models.Quote{Text: "Act.", Author: "Someone", Source: "Quotable"}},
		{sources[2], `[{"text":"One.","author":"A, type.fit"},{"text":"Two.","author":null}]`, last,
			models.Quote{Text: "Two.", Author: "Unknown", Source: "Type.fit"}},
	}
	for _, tc := range cases {
		srv := serve(t, http.StatusOK, tc.body)
		f := NewFetcher(Options{Sources: withURL(tc.src, srv.URL), Pick: tc.pick})
		got, err := f.Random(context.Background())
		require.NoError(t, err, tc.src.Name)
		assert.Equal(t, tc.want, got)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"content":"Third time lucky.","author":"Tester"}`))
	}))
	defer srv.Close()

	f := NewFetcher(Options{
		Sources:         withURL(DefaultSources()[1], srv.URL),
		Retries:         3,
		InitialInterval: time.Millisecond,
		Pick:            first,
	})
	q, err := f.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Third time lucky.", q.Text)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestPermanentFailuresAreNotRetried(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
	}{
		"not found":    {http.StatusNotFound, `{}`},
		"invalid json": {http.StatusOK, `<html>`},
		"empty quote":  {http.StatusOK, `{"content":""}`},
	} {
		t.Run(name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			f := NewFetcher(Options{
				Sources:         withURL(DefaultSources()[1], srv.URL),
				Retries:         3,
				InitialInterval: time.Millisecond,
				Pick:            first,
			})
			_, err := f.Random(context.Background())
			assert.ErrorIs(t, err, errors.ErrQuoteSourceFailed)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
		})
	}
}

func TestByCategory(t *testing.T) {
	var gotTags string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTags = r.URL.Query().Get("tags")
		w.Write([]byte(`{"content":"Keep moving.","author":"Einstein"}`))
	}))
	defer srv.Close()

	f := NewFetcher(Options{CategoryURL: srv.URL + "/random", Pick: first})
	q, err := f.ByCategory(context.Background(), "Motivational")
	require.NoError(t, err)
	assert.Equal(t, "motivational", gotTags)
	assert.Equal(t, "Quotable - Motivational", q.Source)

	q, err = f.ByCategory(context.Background(), "Éducation")
	require.NoError(t, err)
	assert.Equal(t, "éducation", gotTags)
	assert.Equal(t, "Quotable - Éducation", q.Source)
	assert.True(t, utf8.ValidString(q.Source))

	_, err = f.ByCategory(context.Background(), "  ")
	assert.Error(t, err)
}

func TestFallbackAndShare(t *testing.T) {
	f := NewFetcher(Options{Pick: last})
	q := f.FallbackQuote()
	assert.Equal(t, "Eleanor Roosevelt", q.Author)
	assert.Equal(t, "Local Wisdom", q.Source)

	assert.Equal(t,
		"\"Act.\" — Someone\n#DailyMotivation #Quotable",
		ShareText(models.Quote{Text: "Act.", Author: "Someone", Source: "Quotable"}))
}
