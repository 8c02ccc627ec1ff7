package blog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract(t *testing.T) {
	testCases := []struct {
		name      string
		html      string
		wantImage string
		wantDate  string
	}{
		{
			name: "meta tags",
			html: `<html><head>
				<meta property="og:image" content="https://cdn.example.com/cover.png">
				<meta property="article:published_time" content="2024-03-03T10:00:00.000Z">
			</head><body><article></article></body></html>`,
			wantImage: "https://cdn.example.com/cover.png",
			wantDate:  "2024-03-03T10:00:00Z",
		},
		{
			name: "article markup",
			html: `<html><body><article>
				<time datetime="2023-11-05T08:30:00+02:00">Nov 5</time>
				<figure><img src="https://cdn.example.com/first.jpg"></figure>
				<figure><img src="https://cdn.example.com/second.jpg"></figure>
			</article></body></html>`,
			wantImage: "https://cdn.example.com/first.jpg",
			wantDate:  "2023-11-05T06:30:00Z",
		},
		{
			name: "srcset and byline",
			html: `<html><body><article>
				<div><span>·</span> Mar 3, 2024 · 5 min read</div>
				<figure><img srcset="https://cdn.example.com/s.jpg 320w, https://cdn.example.com/l.jpg 1024w"></figure>
			</article></body></html>`,
			wantImage: "https://cdn.example.com/l.jpg",
			wantDate:  "2024-03-03T00:00:00Z",
		},
		{
			name: "nothing found",
			html: `<html><body><p>plain</p></body></html>`,
		},
		{
			name:      "unparseable date",
			html:      `<html><head><meta property="og:image" content="x.png"><meta property="article:published_time" content="yesterday"></head></html>`,
			wantImage: "x.png",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			meta := Extract(docFrom(t, tc.html))
			if tc.wantImage == "" {
				assert.Nil(t, meta.ImageURL)
			} else {
				require.NotNil(t, meta.ImageURL)
				assert.Equal(t, tc.wantImage, *meta.ImageURL)
			}
			if tc.wantDate == "" {
				assert.Nil(t, meta.Date)
			} else {
				require.NotNil(t, meta.Date)
				assert.Equal(t, tc.wantDate, *meta.Date)
			}
		})
	}
}

func TestScraper_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		fmt.Fprint(w, `<meta property="og:image" content="cover.png">`)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), "test-agent", 5*time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first := s.Scrape(context.Background(), srv.URL)
	require.NotNil(t, first.ImageURL)
	s.Scrape(context.Background(), srv.URL)
	assert.EqualValues(t, 1, hits.Load())

	now = now.Add(5 * time.Minute)
	s.Scrape(context.Background(), srv.URL)
	assert.EqualValues(t, 2, hits.Load(), "entry expires after the TTL")
}

func TestScraper_FailuresYieldEmptyMetadata(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), "", 0)
	assert.Equal(t, Metadata{}, s.Scrape(context.Background(), srv.URL))
	assert.Equal(t, Metadata{}, s.Scrape(context.Background(), srv.URL))
	assert.EqualValues(t, 2, hits.Load(), "failures are not cached")

	assert.Equal(t, Metadata{}, s.Scrape(context.Background(), "://not a url"))
}
