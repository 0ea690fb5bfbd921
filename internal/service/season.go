package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/cache"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
)

const predictWorkers = 8

// SeasonAnime returns every anime of a season with its prediction merged.
// Fetched seasons are written to the store.
func (s *Service) SeasonAnime(ctx context.Context, sn season.Season, year int) ([]anime.Entry, error) {
	var list []anime.Anime
	err := s.cached(cache.SeasonKey(string(sn), year), &list, func() (any, error) {
		fetched, err := s.source.SeasonalAnime(ctx, sn, year)
		if err != nil {
			return nil, err
		}
		s.persist(fetched...)
		return fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("season %s: %w", season.Label(sn, year), err)
	}

	return s.withPredictions(ctx, list)
}

// withPredictions merges predictions into list, computed concurrently
// against a single "today".
func (s *Service) withPredictions(ctx context.Context, list []anime.Anime) ([]anime.Entry, error) {
	today := s.predictor.Today()
	now := s.now()
	entries := make([]anime.Entry, len(list))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(predictWorkers)
	for i := range list {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := list[i]
			refreshCountdown(&a, now)
			entries[i] = anime.Entry{
				Anime:      a,
				Prediction: s.predictLogged(&a, today),
				Source:     anime.SourceLive,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Bingeable returns the anime of a season that are finished, or predicted
// to finish on or before byDate (today when nil), soonest first. Anime
// without a predicted date sort last.
func (s *Service) Bingeable(ctx context.Context, sn season.Season, year int, byDate *time.Time) ([]anime.Entry, error) {
	all, err := s.SeasonAnime(ctx, sn, year)
	if err != nil {
		return nil, err
	}

	cutoff := s.predictor.Today()
	if byDate != nil {
		cutoff = predict.DateOf(*byDate)
	}
	cutoffStr := predict.FormatDate(cutoff)

	var out []anime.Entry
	for _, e := range all {
		if e.Status == string(predict.StatusFinished) {
			out = append(out, e)
			continue
		}
		if date := completionOf(e); date != "" && date <= cutoffStr {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sortableDate(out[i]) < sortableDate(out[j])
	})
	return out, nil
}

func completionOf(e anime.Entry) string {
	if e.Prediction == nil || e.PredictedCompletion == nil {
		return ""
	}
	return *e.PredictedCompletion
}

func sortableDate(e anime.Entry) string {
	if d := completionOf(e); d != "" {
		return d
	}
	return "9999-12-31"
}
