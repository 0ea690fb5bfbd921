// Package service implements the schedule queries shared by the agent
// tools, the HTTP API and the command line.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shapedtime/animeschedule/internal/anilist"
	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/cache"
	"github.com/shapedtime/animeschedule/internal/common"
	"github.com/shapedtime/animeschedule/internal/metrics"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
	"github.com/shapedtime/animeschedule/internal/store"
)

const cacheSearchLimit = 10

// AnimeSource fetches anime metadata. *anilist.Client implements it.
type AnimeSource interface {
	SearchAnime(ctx context.Context, query string) (*anime.Anime, error)
	GetAnime(ctx context.Context, id int) (*anime.Anime, error)
	SeasonalAnime(ctx context.Context, s season.Season, year int) ([]anime.Anime, error)
}

// AnimeStore persists anime snapshots. *store.AnimeRepository implements it.
type AnimeStore interface {
	Search(query string, limit int) ([]anime.Anime, error)
	UpsertBatch(items []anime.Anime) error
}

// ScheduleStore lists stored airings. *store.ScheduleRepository implements it.
type ScheduleStore interface {
	ListBetween(from, to time.Time) ([]store.ScheduleItem, error)
}

// ResponseCache caches source responses. *cache.Cache implements it.
type ResponseCache interface {
	Get(key string, v any) error
	Set(key string, v any) error
}

// Service answers schedule queries.
type Service struct {
	source    AnimeSource
	predictor *predict.Predictor
	animes    AnimeStore
	schedules ScheduleStore
	cache     ResponseCache
	metrics   *metrics.Metrics
	now       func() time.Time
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables the stored-anime search, season persistence and the
// weekly schedule.
func WithStore(animes AnimeStore, schedules ScheduleStore) Option {
	return func(s *Service) {
		s.animes = animes
		s.schedules = schedules
	}
}

// WithCache caches source responses.
func WithCache(c ResponseCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records prediction metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the wall clock used for countdowns and week bounds.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service.
func New(source AnimeSource, predictor *predict.Predictor, opts ...Option) *Service {
	s := &Service{
		source:    source,
		predictor: predictor,
		now:       time.Now,
		log:       slog.With("component", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the predictor's current date.
func (s *Service) Today() time.Time {
	return s.predictor.Today()
}

// SearchCache searches stored anime by title. It makes no network calls.
func (s *Service) SearchCache(query string) ([]anime.Entry, error) {
	if s.animes == nil {
		return nil, ErrStoreUnavailable
	}

	found, err := s.animes.Search(query, cacheSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}

	now := s.now()
	entries := make([]anime.Entry, 0, len(found))
	for i := range found {
		refreshCountdown(&found[i], now)
		entries = append(entries, anime.Entry{Anime: found[i], Source: anime.SourceCache})
	}
	return entries, nil
}

// SearchLive asks the source for the best match of query.
func (s *Service) SearchLive(ctx context.Context, query string) (*anime.Entry, error) {
	var a anime.Anime
	err := s.cached(cache.SearchKey(query), &a, func() (any, error) {
		found, err := s.source.SearchAnime(ctx, query)
		if err != nil {
			return nil, err
		}
		s.persist(*found)
		return found, nil
	})
	if err != nil {
		return nil, notFound(err, "no anime found matching %q", query)
	}

	refreshCountdown(&a, s.now())
	return &anime.Entry{Anime: a, Source: anime.SourceLive}, nil
}

// GetSchedule fetches one anime with its airing schedule and merges a
// completion prediction into it.
func (s *Service) GetSchedule(ctx context.Context, id int) (*anime.Entry, error) {
	var a anime.Anime
	err := s.cached(cache.AnimeKey(id), &a, func() (any, error) {
		found, err := s.source.GetAnime(ctx, id)
		if err != nil {
			return nil, err
		}
		s.persist(*found)
		return found, nil
	})
	if err != nil {
		return nil, notFound(err, "no anime found with ID %d", id)
	}

	refreshCountdown(&a, s.now())
	entry := &anime.Entry{Anime: a, Source: anime.SourceLive}
	entry.Prediction = s.predictLogged(&a, s.predictor.Today())
	return entry, nil
}

// cached loads key into v, or calls fetch and stores its result.
func (s *Service) cached(key string, v any, fetch func() (any, error)) error {
	if s.cache != nil {
		err := s.cache.Get(key, v)
		if err == nil {
			return nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("Cache read failed", "key", key, "error", err)
		}
	}

	fresh, err := fetch()
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(key, fresh); err != nil {
			s.log.Warn("Cache write failed", "key", key, "error", err)
		}
	}

	// Round-trip through the cache codec so both paths fill v the same way.
	return remarshal(fresh, v)
}

// persist stores anime snapshots, logging failures.
func (s *Service) persist(items ...anime.Anime) {
	if s.animes == nil || len(items) == 0 {
		return
	}
	if err := s.animes.UpsertBatch(items); err != nil {
		s.log.Warn("Failed to store anime", "count", len(items), "error", err)
	}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, anilist.ErrNotFound) || errors.Is(err, store.ErrAnimeNotFound) {
		return fmt.Errorf("%w: %s", ErrAnimeNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

// refreshCountdown recomputes the human countdown, which goes stale in
// cached records.
func refreshCountdown(a *anime.Anime, now time.Time) {
	if a.NextEpisode == nil || a.NextEpisode.AirsAtTimestamp == 0 {
		return
	}
	a.NextEpisode.AirsInHuman = common.FormatCountdown(a.NextEpisode.AirsAtTimestamp - now.Unix())
}

func remarshal(from, to any) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, to)
}
