// Package anilist is a client for the AniList GraphQL API.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/metrics"
	"github.com/shapedtime/animeschedule/internal/season"
)

// DefaultEndpoint is the public AniList GraphQL endpoint.
const DefaultEndpoint = "https://graphql.anilist.co"

const (
	defaultMinInterval = 700 * time.Millisecond // ~85 requests/min
	defaultTimeout     = 10 * time.Second
	defaultMaxPages    = 5
	seasonPageSize     = 50
)

// ErrNotFound is returned when AniList has no media for the request.
var ErrNotFound = errors.New("anime not found")

// Client is an AniList API client. Requests made through one Client share
// its rate limiter.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMinInterval sets the minimum spacing between requests. Zero disables
// rate limiting.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxPages caps the number of pages fetched for a season.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new AniList client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		maxPages: defaultMaxPages,
		log:      slog.With("component", "anilist"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAnime returns the best AniList match for a title.
func (c *Client) SearchAnime(ctx context.Context, query string) (*anime.Anime, error) {
	var data struct {
		Media *Media `json:"Media"`
	}
	if err := c.post(ctx, "search", animeQuery, map[string]any{"search": query}, &data); err != nil {
		return nil, err
	}
	if data.Media == nil {
		return nil, ErrNotFound
	}

	a := Transform(*data.Media)
	return &a, nil
}

// GetAnime fetches an anime by its AniList ID.
func (c *Client) GetAnime(ctx context.Context, id int) (*anime.Anime, error) {
	var data struct {
		Media *Media `json:"Media"`
	}
	if err := c.post(ctx, "get", animeQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Media == nil {
		return nil, ErrNotFound
	}

	a := Transform(*data.Media)
	return &a, nil
}

// SeasonalAnime fetches every anime of a season, most popular first.
// A failure after the first page ends paging and returns what was
// collected so far.
func (c *Client) SeasonalAnime(ctx context.Context, s season.Season, year int) ([]anime.Anime, error) {
	var results []anime.Anime

	for page := 1; page <= c.maxPages; page++ {
		var data struct {
			Page struct {
				PageInfo pageInfo `json:"pageInfo"`
				Media    []Media  `json:"media"`
			} `json:"Page"`
		}

		vars := map[string]any{
			"season":  string(s),
			"year":    year,
			"page":    page,
			"perPage": seasonPageSize,
		}
		if err := c.post(ctx, "season", seasonalQuery, vars, &data); err != nil {
			if page == 1 {
				return nil, err
			}
			c.log.Warn("Stopping season paging after error",
				"season", s,
				"year", year,
				"page", page,
				"error", err,
			)
			break
		}

		for _, m := range data.Page.Media {
			results = append(results, Transform(m))
		}

		if !data.Page.PageInfo.HasNextPage {
			break
		}
	}

	return results, nil
}

// post performs a GraphQL request and decodes the data field into v.
func (c *Client) post(ctx context.Context, operation, query string, vars map[string]any, v interface{}) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveRequest(operation, err, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		if envelope.Errors[0].Status == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, v); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	return nil
}
