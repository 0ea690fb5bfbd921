// Package agent exposes the schedule service as function-calling tools.
// The model conversation loop lives outside this package.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
	"github.com/shapedtime/animeschedule/internal/service"
)

// Service is the subset of *service.Service the tools call.
type Service interface {
	SearchCache(query string) ([]anime.Entry, error)
	SearchLive(ctx context.Context, query string) (*anime.Entry, error)
	GetSchedule(ctx context.Context, id int) (*anime.Entry, error)
	PredictCompletion(in service.PredictInput) (*service.PredictionRecord, error)
	SeasonAnime(ctx context.Context, s season.Season, year int) ([]anime.Entry, error)
	Bingeable(ctx context.Context, s season.Season, year int, byDate *time.Time) ([]anime.Entry, error)
	WeeklySchedule(ctx context.Context, weeksOffset int) (*service.WeeklySchedule, error)
}

// Toolbox executes tool calls against a Service.
type Toolbox struct {
	svc Service
	log *slog.Logger
}

// NewToolbox creates a Toolbox.
func NewToolbox(svc Service) *Toolbox {
	return &Toolbox{
		svc: svc,
		log: slog.With("component", "agent"),
	}
}

// Execute runs the named tool with JSON arguments and returns its JSON
// result. Failures come back as {"error": "..."}; Execute never panics.
func (t *Toolbox) Execute(ctx context.Context, name string, args json.RawMessage) (result string) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("Tool panicked", "tool", name, "panic", r)
			result = errorJSON(fmt.Errorf("tool %s failed: %v", name, r))
		}
	}()

	out, err := t.Call(ctx, name, args)
	if err != nil {
		t.log.Debug("Tool returned error", "tool", name, "error", err)
		return errorJSON(err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return errorJSON(err)
	}
	return string(data)
}

// Call runs the named tool and returns its structured result.
func (t *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolSearchAnimeCache:
		var in struct {
			Query string `json:"query"`
		}
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Query) == "" {
			return nil, fmt.Errorf("%w: query is required", ErrInvalidArgs)
		}
		found, err := t.svc.SearchCache(in.Query)
		if err != nil {
			return nil, err
		}
		if found == nil {
			found = []anime.Entry{}
		}
		return found, nil

	case ToolSearchAnime:
		var in struct {
			Query string `json:"query"`
		}
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Query) == "" {
			return nil, fmt.Errorf("%w: query is required", ErrInvalidArgs)
		}
		return t.svc.SearchLive(ctx, in.Query)

	case ToolGetSchedule:
		var in struct {
			AnimeID int `json:"anime_id"`
		}
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		if in.AnimeID <= 0 {
			return nil, fmt.Errorf("%w: anime_id is required", ErrInvalidArgs)
		}
		return t.svc.GetSchedule(ctx, in.AnimeID)

	case ToolPredict:
		var in service.PredictInput
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		return t.svc.PredictCompletion(in)

	case ToolSeasonAnime:
		s, year, err := seasonArgs(args)
		if err != nil {
			return nil, err
		}
		return t.svc.SeasonAnime(ctx, s, year)

	case ToolBingeable:
		s, year, err := seasonArgs(args)
		if err != nil {
			return nil, err
		}
		var in struct {
			ByDate string `json:"by_date"`
		}
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		var byDate *time.Time
		if in.ByDate != "" {
			d, err := predict.ParseDate("by_date", in.ByDate)
			if err != nil {
				return nil, err
			}
			byDate = &d
		}
		found, err := t.svc.Bingeable(ctx, s, year, byDate)
		if err != nil {
			return nil, err
		}
		if found == nil {
			found = []anime.Entry{}
		}
		return found, nil

	case ToolWeeklySchedule:
		var in struct {
			WeeksOffset int `json:"weeks_offset"`
		}
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		return t.svc.WeeklySchedule(ctx, in.WeeksOffset)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

func seasonArgs(args json.RawMessage) (season.Season, int, error) {
	var in struct {
		Season string `json:"season"`
		Year   int    `json:"year"`
	}
	if err := decode(args, &in); err != nil {
		return "", 0, err
	}
	s, err := season.Parse(in.Season)
	if err != nil {
		return "", 0, err
	}
	if in.Year <= 0 {
		return "", 0, fmt.Errorf("%w: year is required", ErrInvalidArgs)
	}
	return s, in.Year, nil
}

func errorJSON(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}
