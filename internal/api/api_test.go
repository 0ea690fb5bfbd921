package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
	"github.com/shapedtime/animeschedule/internal/seasonsync"
	"github.com/shapedtime/animeschedule/internal/service"
)

// fakeToday is deliberately far from the wall clock.
var fakeToday = time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)

type fakeService struct {
	lastSeason season.Season
	lastYear   int
	lastByDate *time.Time
	lastOffset int
	lastDate   time.Time
}

func (f *fakeService) Today() time.Time { return fakeToday }

func (f *fakeService) EpisodesOn(_ context.Context, date time.Time) ([]service.ScheduleSlot, error) {
	f.lastDate = date
	return []service.ScheduleSlot{{AnimeID: 2, Title: "Dandadan", Episode: 9, AiringTime: "11:30 AM"}}, nil
}

func (f *fakeService) SearchCache(string) ([]anime.Entry, error) { return nil, nil }

func (f *fakeService) SearchLive(_ context.Context, query string) (*anime.Entry, error) {
	if query == "missing" {
		return nil, service.ErrAnimeNotFound
	}
	return &anime.Entry{Anime: anime.Anime{ID: 1, Title: query}, Source: anime.SourceLive}, nil
}

func (f *fakeService) GetSchedule(_ context.Context, id int) (*anime.Entry, error) {
	if id == 404 {
		return nil, service.ErrAnimeNotFound
	}
	date := "2025-02-07"
	return &anime.Entry{
		Anime:      anime.Anime{ID: id, Title: "Frieren", Status: "RELEASING"},
		Prediction: &anime.Prediction{PredictedCompletion: &date, Confidence: "high"},
	}, nil
}

func (f *fakeService) PredictCompletion(in service.PredictInput) (*service.PredictionRecord, error) {
	if in.EndDate == "bad" {
		return nil, &predict.MalformedDateError{Field: "known end date", Value: "bad"}
	}
	return &service.PredictionRecord{AnimeID: in.AnimeID, Title: in.Title, Status: in.Status,
		Prediction: anime.Prediction{Confidence: "medium"}}, nil
}

func (f *fakeService) SeasonAnime(_ context.Context, s season.Season, year int) ([]anime.Entry, error) {
	f.lastSeason, f.lastYear = s, year
	return []anime.Entry{{Anime: anime.Anime{ID: 1, Title: "Frieren"}}}, nil
}

func (f *fakeService) Bingeable(_ context.Context, s season.Season, year int, byDate *time.Time) ([]anime.Entry, error) {
	f.lastSeason, f.lastYear, f.lastByDate = s, year, byDate
	return nil, nil
}

func (f *fakeService) WeeklySchedule(_ context.Context, offset int) (*service.WeeklySchedule, error) {
	f.lastOffset = offset
	return &service.WeeklySchedule{WeekLabel: "This Week", Schedule: map[string][]service.ScheduleSlot{}}, nil
}

type fakeSync struct {
	busy bool
}

func (f *fakeSync) TriggerSyncAsync() error {
	if f.busy {
		return seasonsync.ErrSyncInProgress
	}
	f.busy = true
	return nil
}

func (f *fakeSync) GetStatus() seasonsync.Status {
	return seasonsync.Status{State: seasonsync.StateOK, AnimeSynced: 12}
}

type fakeCounter struct{}

func (fakeCounter) CountByStatus() (map[string]int, error) {
	return map[string]int{"RELEASING": 3, "FINISHED": 2}, nil
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	rec, out := do(t, NewServer(&fakeService{}, 0), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", out["status"])
	require.Equal(t, true, out["agent_ready"])
}

func TestCORSPreflight(t *testing.T) {
	rec, _ := do(t, NewServer(&fakeService{}, 0), http.MethodOptions, "/api/predict", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAnimeRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		key    string
		want   any
	}{
		{"search", http.MethodGet, "/api/anime/search/frieren", "", http.StatusOK, "source", "live"},
		{"search missing", http.MethodGet, "/api/anime/search/missing", "", http.StatusNotFound, "error", "anime not found"},
		{"get", http.MethodGet, "/api/anime/52991", "", http.StatusOK, "confidence", "high"},
		{"get missing", http.MethodGet, "/api/anime/404", "", http.StatusNotFound, "error", "anime not found"},
		{"get bad id", http.MethodGet, "/api/anime/abc", "", http.StatusBadRequest, "error", "Invalid ID format"},
		{"get negative id", http.MethodGet, "/api/anime/-3", "", http.StatusBadRequest, "error", "ID must be positive"},
		{"seasonal", http.MethodGet, "/api/anime/seasonal?season=winter&year=2025", "", http.StatusOK, "season", "WINTER 2025"},
		{"seasonal bad season", http.MethodGet, "/api/anime/seasonal?season=monsoon&year=2025", "", http.StatusBadRequest, "", nil},
		{"seasonal bad year", http.MethodGet, "/api/anime/seasonal?season=fall&year=soon", "", http.StatusBadRequest, "error", "year must be a positive integer"},
		{"bingeable", http.MethodGet, "/api/anime/bingeable?season=fall&year=2025&by_date=2025-11-01", "", http.StatusOK, "by_date", "2025-11-01"},
		{"bingeable bad date", http.MethodGet, "/api/anime/bingeable?by_date=11/01", "", http.StatusBadRequest, "error", "by_date must be YYYY-MM-DD"},
		{"predict", http.MethodPost, "/api/predict", `{"anime_id":1,"title":"Frieren","status":"RELEASING"}`, http.StatusOK, "confidence", "medium"},
		{"predict malformed", http.MethodPost, "/api/predict", `{"anime_id":1,"status":"FINISHED","end_date":"bad"}`, http.StatusBadRequest, "", nil},
		{"predict bad body", http.MethodPost, "/api/predict", `{"anime_id":`, http.StatusBadRequest, "", nil},
		{"weekly", http.MethodGet, "/api/schedule/weekly?offset=1", "", http.StatusOK, "week_label", "This Week"},
		{"weekly bad offset", http.MethodGet, "/api/schedule/weekly?offset=x", "", http.StatusBadRequest, "error", "offset must be an integer"},
	}

	s := NewServer(&fakeService{}, 30)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, s, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.key != "" {
				require.Equal(t, tt.want, out[tt.key])
			}
		})
	}
}

func TestSeasonDefaults(t *testing.T) {
	require := require.New(t)
	svc := &fakeService{}
	s := NewServer(svc, 30)

	rec, out := do(t, s, http.MethodGet, "/api/anime/bingeable", "")
	require.Equal(http.StatusOK, rec.Code)

	require.Equal(season.Fall, svc.lastSeason)
	require.Equal(2024, svc.lastYear)
	require.Equal("FALL 2024", out["season"])
	require.Equal("2024-12-20", out["by_date"])
	require.Equal([]any{}, out["anime"])
	require.Equal("2024-12-20", predict.FormatDate(*svc.lastByDate))

	// A season without a year falls back to the current season.
	do(t, s, http.MethodGet, "/api/anime/seasonal?season=spring", "")
	require.Equal(season.Fall, svc.lastSeason)
}

func TestWeeklyOffsetPassed(t *testing.T) {
	svc := &fakeService{}
	do(t, NewServer(svc, 0), http.MethodGet, "/api/schedule/weekly?offset=-1", "")
	require.Equal(t, -1, svc.lastOffset)
}

func TestEpisodesOnDate(t *testing.T) {
	require := require.New(t)
	svc := &fakeService{}
	s := NewServer(svc, 0)

	rec, out := do(t, s, http.MethodGet, "/api/schedule/date/2025-01-10", "")
	require.Equal(http.StatusOK, rec.Code)
	require.Equal("2025-01-10", out["date"])
	require.Len(out["episodes"], 1)
	require.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), svc.lastDate)

	rec, out = do(t, s, http.MethodGet, "/api/schedule/date/tomorrow", "")
	require.Equal(http.StatusBadRequest, rec.Code)
	require.Equal("date must be YYYY-MM-DD", out["error"])
}

func TestTools(t *testing.T) {
	require := require.New(t)
	s := NewServer(&fakeService{}, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	require.Equal(http.StatusOK, rec.Code)
	var defs []map[string]any
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &defs))
	require.Len(defs, 7)

	rec, out := do(t, s, http.MethodPost, "/api/tools/search_anime", `{"query":"Dandadan"}`)
	require.Equal(http.StatusOK, rec.Code)
	require.Equal("Dandadan", out["title"])

	rec, out = do(t, s, http.MethodPost, "/api/tools/search_anime", `{"query":"missing"}`)
	require.Equal(http.StatusOK, rec.Code)
	require.Equal("anime not found", out["error"])

	rec, _ = do(t, s, http.MethodPost, "/api/tools/get_weather", `{}`)
	require.Equal(http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/tools/search_anime", `{"query":`)
	require.Equal(http.StatusBadRequest, rec.Code)
}

func TestSyncRoutes(t *testing.T) {
	require := require.New(t)

	s := NewServer(&fakeService{}, 0)
	rec, _ := do(t, s, http.MethodPost, "/api/sync", "")
	require.Equal(http.StatusServiceUnavailable, rec.Code)

	s.SetSeasonSync(&fakeSync{})
	s.SetStatusCounter(fakeCounter{})

	rec, _ = do(t, s, http.MethodPost, "/api/sync", "")
	require.Equal(http.StatusAccepted, rec.Code)
	rec, _ = do(t, s, http.MethodPost, "/api/sync", "")
	require.Equal(http.StatusConflict, rec.Code)

	rec, out := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(http.StatusOK, rec.Code)
	require.Equal(5.0, out["anime_stored"])
	sync := out["sync"].(map[string]any)
	require.Equal("ok", sync["state"])
	require.Equal(12.0, sync["anime_synced"])
}
