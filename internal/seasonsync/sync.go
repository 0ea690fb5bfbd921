// Package seasonsync keeps the anime store filled with the current
// season's anime and airing schedules.
package seasonsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/config"
	"github.com/shapedtime/animeschedule/internal/metrics"
	"github.com/shapedtime/animeschedule/internal/season"
)

const syncKey = "season_sync"

// Sync states reported by GetStatus.
const (
	StatePending    = "pending"
	StateInProgress = "in_progress"
	StateOK         = "ok"
	StateError      = "error"
)

// ErrSyncInProgress is returned when a sync is requested while one runs.
var ErrSyncInProgress = errors.New("sync already in progress")

// Source fetches a season. *anilist.Client implements it.
type Source interface {
	SeasonalAnime(ctx context.Context, s season.Season, year int) ([]anime.Anime, error)
}

// Store writes anime. *store.AnimeRepository implements it.
type Store interface {
	UpsertBatch(items []anime.Anime) error
}

// Metadata records sync bookkeeping. *store.SyncMetadataRepository implements it.
type Metadata interface {
	GetLastSyncTime(key string) (time.Time, error)
	SetLastSyncTime(key string, t time.Time) error
	StartSyncLog(syncType string) (int64, error)
	CompleteSyncLog(id int64, processed, written int, syncErr error) error
}

// Status is a snapshot of the sync service state.
type Status struct {
	State       string    `json:"state"`
	LastSync    time.Time `json:"last_sync"`
	LastError   string    `json:"last_error,omitempty"`
	AnimeSynced int       `json:"anime_synced"`
	Seasons     []string  `json:"seasons,omitempty"`
}

// SyncService manages background synchronization of seasonal anime
type SyncService struct {
	mu      sync.RWMutex
	config  config.SyncConfig
	source  Source
	animes  Store
	meta    Metadata
	metrics *metrics.Metrics
	now     func() time.Time

	lastSync    time.Time
	state       string
	lastError   error
	animeSynced int
	seasons     []string

	stopChan chan struct{}
	stopped  bool
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewSyncService creates a new season sync service. m may be nil.
func NewSyncService(cfg config.SyncConfig, source Source, animes Store, meta Metadata, m *metrics.Metrics) *SyncService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.SyncIntervalHours <= 0 {
		cfg.SyncIntervalHours = 6
	}
	return &SyncService{
		config:   cfg,
		source:   source,
		animes:   animes,
		meta:     meta,
		metrics:  m,
		now:      time.Now,
		state:    StatePending,
		stopChan: make(chan struct{}),
		log:      slog.With("component", "season-sync"),
	}
}

// Start begins the background sync loop
func (s *SyncService) Start() {
	s.log.Info("Season sync service started",
		"interval_hours", s.config.SyncIntervalHours,
		"batch_size", s.config.BatchSize,
		"include_next_season", s.config.IncludeNextSeason,
	)
	s.wg.Add(1)
	go s.syncLoop()
}

// Stop halts the background sync and waits for the loop to exit.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stopChan)
	s.wg.Wait()
	s.log.Info("Season sync service stopped")
}

// TriggerSync runs a sync now and waits for it.
func (s *SyncService) TriggerSync(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	return s.doSync(ctx)
}

// TriggerSyncAsync starts a sync in the background. It fails only when a
// sync is already running.
func (s *SyncService) TriggerSyncAsync() error {
	if err := s.begin(); err != nil {
		return err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.doSync(ctx); err != nil {
			s.log.Error("Triggered sync failed", "error", err)
		}
	}()
	return nil
}

// GetStatus returns current sync status
func (s *SyncService) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:       s.state,
		LastSync:    s.lastSync,
		AnimeSynced: s.animeSynced,
		Seasons:     append([]string(nil), s.seasons...),
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

// begin atomically moves the service into the in-progress state.
func (s *SyncService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInProgress {
		return ErrSyncInProgress
	}
	s.state = StateInProgress
	return nil
}

func (s *SyncService) syncLoop() {
	defer s.wg.Done()

	s.checkAndSync()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.checkAndSync()
		}
	}
}

func (s *SyncService) checkAndSync() {
	lastSync, err := s.meta.GetLastSyncTime(syncKey)
	if err != nil {
		s.log.Error("Failed to get last sync time", "error", err)
		return
	}

	interval := time.Duration(s.config.SyncIntervalHours) * time.Hour
	if s.now().Sub(lastSync) < interval {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.begin(); err != nil {
		s.log.Info("Skipping scheduled sync", "reason", err)
		return
	}
	if err := s.doSync(ctx); err != nil {
		s.log.Error("Scheduled sync failed", "error", err)
	}
}

type target struct {
	season season.Season
	year   int
}

// targets returns the seasons to sync: the current one, and the next when
// configured.
func (s *SyncService) targets() []target {
	cur, year := season.Current(s.now().UTC())
	out := []target{{cur, year}}
	if s.config.IncludeNextSeason {
		next, nextYear := season.Next(cur, year)
		out = append(out, target{next, nextYear})
	}
	return out
}

func (s *SyncService) doSync(ctx context.Context) (err error) {
	start := s.now()
	processed, written := 0, 0

	logID, logErr := s.meta.StartSyncLog(syncKey)
	if logErr != nil {
		s.log.Warn("Failed to start sync log", "error", logErr)
	}
	defer func() {
		if logErr == nil {
			if cerr := s.meta.CompleteSyncLog(logID, processed, written, err); cerr != nil {
				s.log.Warn("Failed to complete sync log", "error", cerr)
			}
		}
		s.metrics.ObserveSync(err, s.now().Sub(start))
	}()

	s.log.Info("Starting season sync")

	var labels []string
	for _, t := range s.targets() {
		label := season.Label(t.season, t.year)
		labels = append(labels, label)

		list, err := s.source.SeasonalAnime(ctx, t.season, t.year)
		if err != nil {
			err = fmt.Errorf("fetch %s: %w", label, err)
			s.setError(err)
			return err
		}
		processed += len(list)

		n, err := s.writeBatches(ctx, list)
		written += n
		if err != nil {
			err = fmt.Errorf("store %s: %w", label, err)
			s.setError(err)
			return err
		}

		s.log.Info("Season synced", "season", label, "anime", len(list))
	}

	s.setSuccess(written, labels)
	s.log.Info("Season sync completed",
		"anime_processed", processed,
		"anime_written", written,
		"duration", s.now().Sub(start),
	)
	return nil
}

// writeBatches upserts list in batches, pausing between them.
func (s *SyncService) writeBatches(ctx context.Context, list []anime.Anime) (int, error) {
	written := 0
	for i := 0; i < len(list); i += s.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		end := i + s.config.BatchSize
		if end > len(list) {
			end = len(list)
		}
		if err := s.animes.UpsertBatch(list[i:end]); err != nil {
			return written, err
		}
		written += end - i

		if end < len(list) && s.config.BatchDelayMs > 0 {
			select {
			case <-ctx.Done():
				return written, ctx.Err()
			case <-time.After(time.Duration(s.config.BatchDelayMs) * time.Millisecond):
			}
		}
	}
	return written, nil
}

func (s *SyncService) setError(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastError = err
	s.mu.Unlock()
}

func (s *SyncService) setSuccess(written int, seasons []string) {
	now := s.now()
	if err := s.meta.SetLastSyncTime(syncKey, now); err != nil {
		s.log.Error("Failed to update sync metadata", "error", err)
	}

	s.mu.Lock()
	s.lastSync = now
	s.state = StateOK
	s.lastError = nil
	s.animeSynced = written
	s.seasons = seasons
	s.mu.Unlock()
}
