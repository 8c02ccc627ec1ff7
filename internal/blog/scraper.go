// Package blog extracts the cover image and publication date of blog posts.
package blog

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var textDateExpr = regexp.MustCompile(`[A-Z][a-z]{2} \d{1,2},? \d{4}`)

// Metadata is what a post page yields. Missing values are nil.
type Metadata struct {
	ImageURL *string `json:"imageUrl"`
	Date     *string `json:"date"` // RFC 3339, UTC
}

type cachedMetadata struct {
	meta    Metadata
	expires time.Time
}

// Scraper fetches post pages and remembers results for a short TTL.
type Scraper struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cachedMetadata
}

// NewScraper wires an HTTP client; nil selects one with a 15s timeout.
func NewScraper(client *http.Client, userAgent string, ttl time.Duration) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Scraper{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		now:       time.Now,
		cache:     make(map[string]cachedMetadata),
	}
}

// Scrape returns the post's metadata. It never fails: errors are logged and
// yield empty metadata, which is not cached.
func (s *Scraper) Scrape(ctx context.Context, url string) Metadata {
	logger := log.WithField("url", url)
	if meta, ok := s.lookup(url); ok {
		logger.Debug("Blog metadata cache hit")
		return meta
	}

	doc, err := s.fetchDocument(ctx, url)
	if err != nil {
		logger.WithError(err).Error("Error scraping blog post")
		return Metadata{}
	}

	meta := Extract(doc)
	s.mu.Lock()
	s.cache[url] = cachedMetadata{meta: meta, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()

	logger.WithFields(log.Fields{"image": meta.ImageURL != nil, "date": meta.Date != nil}).Info("Scraped blog metadata")
	return meta
}

func (s *Scraper) lookup(url string) (Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hit, ok := s.cache[url]
	if !ok {
		return Metadata{}, false
	}
	if !s.now().Before(hit.expires) {
		delete(s.cache, url)
		return Metadata{}, false
	}
	return hit.meta, true
}

func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Extract reads the cover image and publication date from a post page.
func Extract(doc *goquery.Document) Metadata {
	var meta Metadata
	if img := extractImage(doc); img != "" {
		meta.ImageURL = &img
	}
	if date := normalizeDate(extractDate(doc)); date != "" {
		meta.Date = &date
	}
	return meta
}

func extractImage(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	img := doc.Find("article figure img").First()
	if img.Length() == 0 {
		return ""
	}
	if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	if srcset, ok := img.Attr("srcset"); ok {
		// Candidates are listed smallest first.
		candidates := strings.Split(srcset, ",")
		for i := len(candidates) - 1; i >= 0; i-- {
			if fields := strings.Fields(candidates[i]); len(fields) > 0 {
				return fields[0]
			}
		}
	}
	return ""
}

func extractDate(doc *goquery.Document) string {
	if dt, ok := doc.Find("article time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return strings.TrimSpace(dt)
	}
	if pub, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok && strings.TrimSpace(pub) != "" {
		return strings.TrimSpace(pub)
	}
	// Byline text such as "Mar 3, 2024 · 5 min read".
	var found string
	doc.Find("article span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "·") {
			return true
		}
		if m := textDateExpr.FindString(sel.Parent().Text()); m != "" {
			found = m
			return false
		}
		return true
	})
	return found
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// normalizeDate renders any recognised date as RFC 3339 in UTC; unknown formats yield "".
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	log.WithField("date", raw).Warn("Unrecognised blog date format")
	return ""
}
