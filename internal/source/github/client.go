package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"folio/internal/models"
)

const (
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	maxPerPage     = 100

	// Only a short prefix of a README reaches the classifier.
	maxReadmeBytes = 64 << 10
)

// Client reads repositories and README files from the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	perPage int
	http    *http.Client
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	Token      string
	PerPage    int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a client. A missing token is tolerated with lower rate limits.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		perPage: opts.PerPage,
		http:    opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.perPage <= 0 || c.perPage > maxPerPage {
		c.perPage = maxPerPage
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.token == "" {
		log.Warn("GitHub token is not set. Using unauthenticated requests, which have lower rate limits.")
	}
	return c
}

// FetchRepositories lists the account's own repositories, excluding forks, and
// attaches each README. Listing failures return an empty slice and an error
// wrapping models.ErrSourceUnavailable (plus models.ErrQuotaExhausted on 403).
// README failures leave that repository's Readme nil. The result is sorted by
// stars, most popular first.
func (c *Client) FetchRepositories(ctx context.Context, account string) ([]models.Repository, error) {
	logger := log.WithField("account", account)

	repos, err := c.listRepositories(ctx, account)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch GitHub repositories")
		return []models.Repository{}, err
	}

	owned := repos[:0]
	for _, r := range repos {
		if !r.Fork {
			owned = append(owned, r)
		}
	}

	var g errgroup.Group
	for i := range owned {
		i := i
		g.Go(func() error {
			owned[i].Readme = c.fetchReadme(ctx, account, owned[i].Name)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(owned, func(i, j int) bool { return owned[i].Stars > owned[j].Stars })
	logger.WithField("repositories", len(owned)).Info("Fetched GitHub repositories")
	return owned, nil
}

func (c *Client) listRepositories(ctx context.Context, account string) ([]models.Repository, error) {
	q := url.Values{}
	q.Set("type", "owner")
	q.Set("sort", "updated")
	q.Set("per_page", strconv.Itoa(c.perPage))
	endpoint := fmt.Sprintf("%s/users/%s/repos?%s", c.baseURL, url.PathEscape(account), q.Encode())

	resp, err := c.get(ctx, endpoint, "application/vnd.github.v3+json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		logRateLimit(resp.Header)
		return nil, fmt.Errorf("%w: %w: GitHub API returned %s", models.ErrSourceUnavailable, models.ErrQuotaExhausted, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: GitHub API returned %s: %s", models.ErrSourceUnavailable, resp.Status, strings.TrimSpace(string(body)))
	}

	var repos []models.Repository
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("%w: decode repository list: %w", models.ErrSourceUnavailable, err)
	}
	return repos, nil
}

// fetchReadme returns the raw README text, or nil when it cannot be read.
func (c *Client) fetchReadme(ctx context.Context, account, repo string) *string {
	logger := log.WithFields(log.Fields{"account": account, "repo": repo})
	endpoint := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, url.PathEscape(account), url.PathEscape(repo))

	resp, err := c.get(ctx, endpoint, "application/vnd.github.raw+json")
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Failed to fetch README")
		}
		return nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		logger.Warn("README fetch forbidden, likely rate limited")
		return nil
	default:
		logger.WithField("status", resp.Status).Error("Failed to fetch README")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes))
	if err != nil {
		logger.WithError(err).Error("Failed to read README body")
		return nil
	}
	text := string(body)
	return &text
}

func (c *Client) get(ctx context.Context, endpoint, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func logRateLimit(h http.Header) {
	fields := log.Fields{}
	if remaining := h.Get("X-RateLimit-Remaining"); remaining != "" {
		fields["remaining"] = remaining
	}
	if reset := h.Get("X-RateLimit-Reset"); reset != "" {
		if secs, err := strconv.ParseInt(reset, 10, 64); err == nil {
			fields["reset"] = time.Unix(secs, 0).Local().Format(time.RFC1123)
		} else {
			fields["reset"] = reset
		}
	}
	log.WithFields(fields).Error("GitHub API rate limit exceeded or access forbidden")
}
