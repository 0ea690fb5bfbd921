package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shapedtime/animeschedule/internal/anilist"
	"github.com/shapedtime/animeschedule/internal/anime"
	"github.com/shapedtime/animeschedule/internal/cache"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/season"
	"github.com/shapedtime/animeschedule/internal/store"
)

// 2025-01-10 is a Friday.
var testNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	calls    int
	byID     map[int]anime.Anime
	search   map[string]anime.Anime
	seasonal []anime.Anime
	err      error
}

func (f *fakeSource) SearchAnime(_ context.Context, query string) (*anime.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.search[query]
	if !ok {
		return nil, anilist.ErrNotFound
	}
	return &a, nil
}

func (f *fakeSource) GetAnime(_ context.Context, id int) (*anime.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, anilist.ErrNotFound
	}
	return &a, nil
}

func (f *fakeSource) SeasonalAnime(_ context.Context, _ season.Season, _ int) ([]anime.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]anime.Anime(nil), f.seasonal...), nil
}

type fakeStore struct {
	stored    []anime.Anime
	found     []anime.Anime
	lastLimit int
}

func (f *fakeStore) Search(_ string, limit int) ([]anime.Anime, error) {
	f.lastLimit = limit
	return f.found, nil
}

func (f *fakeStore) UpsertBatch(items []anime.Anime) error {
	f.stored = append(f.stored, items...)
	return nil
}

type fakeSchedules struct {
	items    []store.ScheduleItem
	from, to time.Time
}

func (f *fakeSchedules) ListBetween(from, to time.Time) ([]store.ScheduleItem, error) {
	f.from, f.to = from, to
	return f.items, nil
}

func intPtr(n int) *int { return &n }
func i64Ptr(n int64) *int64 { return &n }

func newTestService(t *testing.T, src *fakeSource, opts ...Option) *Service {
	t.Helper()
	c, err := cache.Open("", time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	clock := func() time.Time { return testNow }
	p := predict.New(predict.WithClock(clock))
	opts = append([]Option{WithCache(c), WithClock(clock)}, opts...)
	return New(src, p, opts...)
}

func releasing(id int, title string) anime.Anime {
	return anime.Anime{
		ID:             id,
		Title:          title,
		Status:         "RELEASING",
		Episodes:       intPtr(12),
		CurrentEpisode: intPtr(8),
		NextAiringAt:   i64Ptr(time.Date(2025, 1, 13, 12, 0, 0, 0, time.UTC).Unix()),
		NextEpisode: &anime.NextEpisode{
			Number:          9,
			AirsAtTimestamp: time.Date(2025, 1, 13, 12, 0, 0, 0, time.UTC).Unix(),
		},
	}
}

func TestSearchCacheRequiresStore(t *testing.T) {
	s := newTestService(t, &fakeSource{})
	_, err := s.SearchCache("frieren")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSearchCache(t *testing.T) {
	require := require.New(t)

	st := &fakeStore{found: []anime.Anime{releasing(1, "Frieren")}}
	s := newTestService(t, &fakeSource{}, WithStore(st, nil))

	got, err := s.SearchCache("frieren")
	require.NoError(err)
	require.Len(got, 1)
	require.Equal(anime.SourceCache, got[0].Source)
	require.Equal("3d", got[0].NextEpisode.AirsInHuman)
	require.Equal(10, st.lastLimit)
}

func TestSearchLive(t *testing.T) {
	require := require.New(t)

	src := &fakeSource{search: map[string]anime.Anime{"frieren": releasing(1, "Frieren")}}
	st := &fakeStore{}
	s := newTestService(t, src, WithStore(st, nil))

	for i := 0; i < 2; i++ {
		got, err := s.SearchLive(context.Background(), "frieren")
		require.NoError(err)
		require.Equal("Frieren", got.Title)
		require.Equal(anime.SourceLive, got.Source)
	}
	require.Equal(1, src.calls)
	require.Len(st.stored, 1)
}

func TestSearchLiveNotFound(t *testing.T) {
	s := newTestService(t, &fakeSource{})
	_, err := s.SearchLive(context.Background(), "nothing")
	require.ErrorIs(t, err, ErrAnimeNotFound)
}

func TestSearchLiveSourceError(t *testing.T) {
	boom := errors.New("boom")
	s := newTestService(t, &fakeSource{err: boom})
	_, err := s.SearchLive(context.Background(), "frieren")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrAnimeNotFound)
}

func TestGetScheduleMergesPrediction(t *testing.T) {
	require := require.New(t)

	a := releasing(5, "Dandadan")
	a.PredictedEndFromSchedule = "2025-02-07"
	s := newTestService(t, &fakeSource{byID: map[int]anime.Anime{5: a}})

	got, err := s.GetSchedule(context.Background(), 5)
	require.NoError(err)
	require.NotNil(got.Prediction)
	require.Equal("high", got.Confidence)
	require.Equal("2025-02-07", *got.PredictedCompletion)
	require.Equal(28, *got.DaysUntilComplete)

	_, err = s.GetSchedule(context.Background(), 6)
	require.ErrorIs(err, ErrAnimeNotFound)
}

func TestPredictCompletion(t *testing.T) {
	require := require.New(t)
	s := newTestService(t, &fakeSource{})

	rec, err := s.PredictCompletion(PredictInput{
		AnimeID:        1,
		Title:          "Frieren",
		Status:         "releasing",
		CurrentEpisode: intPtr(8),
		TotalEpisodes:  intPtr(12),
		NextAiringAt:   i64Ptr(time.Date(2025, 1, 13, 12, 0, 0, 0, time.UTC).Unix()),
	})
	require.NoError(err)
	require.Equal(1, rec.AnimeID)
	require.Equal("medium", rec.Confidence)
	require.Equal("2025-02-07", *rec.PredictedCompletion)
	require.Equal(28, *rec.DaysUntilComplete)
	require.Equal("4 episodes remaining (weekly releases, estimated)", rec.ConfidenceReason)
	require.False(rec.IsBingeable)
}

func TestPredictCompletionErrors(t *testing.T) {
	s := newTestService(t, &fakeSource{})

	_, err := s.PredictCompletion(PredictInput{AnimeID: 1, Title: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.PredictCompletion(PredictInput{AnimeID: 1, Status: "FINISHED", EndDate: "2025/01/01"})
	var malformed *predict.MalformedDateError
	require.True(t, errors.As(err, &malformed))
	require.Equal(t, "2025/01/01", malformed.Value)
}

func TestSeasonAnime(t *testing.T) {
	require := require.New(t)

	bad := anime.Anime{ID: 3, Title: "Broken", Status: "FINISHED", EndDate: "soon"}
	src := &fakeSource{seasonal: []anime.Anime{
		releasing(1, "Frieren"),
		{ID: 2, Title: "Upcoming", Status: "NOT_YET_RELEASED"},
		bad,
	}}
	st := &fakeStore{}
	s := newTestService(t, src, WithStore(st, nil))

	got, err := s.SeasonAnime(context.Background(), season.Winter, 2025)
	require.NoError(err)
	require.Len(got, 3)
	require.Equal([]int{1, 2, 3}, []int{got[0].ID, got[1].ID, got[2].ID})
	require.Equal("medium", got[0].Confidence)
	require.Equal("unknown", got[1].Confidence)
	require.Nil(got[2].Prediction)
	require.Len(st.stored, 3)

	_, err = s.SeasonAnime(context.Background(), season.Winter, 2025)
	require.NoError(err)
	require.Equal(1, src.calls)
}

func TestSeasonAnimeSourceError(t *testing.T) {
	s := newTestService(t, &fakeSource{err: errors.New("down")})
	_, err := s.SeasonAnime(context.Background(), season.Fall, 2025)
	require.ErrorContains(t, err, "FALL 2025")
}

func TestBingeable(t *testing.T) {
	soon := releasing(2, "Soon")
	soon.PredictedEndFromSchedule = "2025-01-20"
	later := releasing(3, "Later")
	later.PredictedEndFromSchedule = "2025-03-01"
	src := &fakeSource{seasonal: []anime.Anime{
		later,
		soon,
		{ID: 1, Title: "Done", Status: "FINISHED", EndDate: "2025-01-01"},
		{ID: 4, Title: "Upcoming", Status: "NOT_YET_RELEASED"},
	}}
	s := newTestService(t, src)

	cutoff := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		byDate *time.Time
		want   []int
	}{
		{"today", nil, []int{1}},
		{"february", &cutoff, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Bingeable(context.Background(), season.Winter, 2025, tt.byDate)
			require.NoError(t, err)

			var ids []int
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestWeeklySchedule(t *testing.T) {
	require := require.New(t)

	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	schedules := &fakeSchedules{items: []store.ScheduleItem{
		{AnimeID: 1, Title: "Frieren", Status: "RELEASING", Episode: 4, AiringAt: monday.Add(15 * time.Hour).Unix()},
		{AnimeID: 2, Title: "Dandadan", Status: "RELEASING", Episode: 9, AiringAt: monday.Add(4*24*time.Hour + 11*time.Hour + 30*time.Minute).Unix()},
		{AnimeID: 3, Title: "Kaiju", Status: "RELEASING", Episode: 2, AiringAt: monday.Add(4*24*time.Hour + 20*time.Hour).Unix()},
	}}
	s := newTestService(t, &fakeSource{}, WithStore(nil, schedules))

	week, err := s.WeeklySchedule(context.Background(), 0)
	require.NoError(err)
	require.Equal(monday, schedules.from)
	require.Equal(monday.AddDate(0, 0, 7), schedules.to)
	require.Equal("2025-01-06", week.WeekStart)
	require.Equal("2025-01-13", week.WeekEnd)
	require.Equal("This Week", week.WeekLabel)
	require.Equal(3, week.TotalSchedules)
	require.Equal([]string{"MONDAY", "FRIDAY"}, week.DaysWithAnime)

	friday := week.Schedule["FRIDAY"]
	require.Len(friday, 2)
	require.Equal("11:30 AM", friday[0].AiringTime)
	require.Equal("aired", friday[0].AiringStatus)
	require.Equal("Aired", friday[0].AirsInHuman)
	require.Equal("airing_today", friday[1].AiringStatus)
	require.Equal("8h 0m", friday[1].AirsInHuman)
	require.Equal(int64(8*3600), friday[1].TimeUntilAiring)

	week, err = s.WeeklySchedule(context.Background(), 3)
	require.NoError(err)
	require.Equal("Week of January 27", week.WeekLabel)
	require.Equal(monday.AddDate(0, 0, 21), schedules.from)
}

func TestWeeklyScheduleRequiresStore(t *testing.T) {
	s := newTestService(t, &fakeSource{})
	_, err := s.WeeklySchedule(context.Background(), 0)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestEpisodesOn(t *testing.T) {
	require := require.New(t)

	friday := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	schedules := &fakeSchedules{items: []store.ScheduleItem{
		{AnimeID: 2, Title: "Dandadan", Status: "RELEASING", Episode: 9, Episodes: intPtr(12), AiringAt: friday.Add(11*time.Hour + 30*time.Minute).Unix()},
		{AnimeID: 3, Title: "Kaiju", Status: "RELEASING", Episode: 2, AiringAt: friday.Add(20 * time.Hour).Unix()},
	}}
	s := newTestService(t, &fakeSource{}, WithStore(nil, schedules))

	slots, err := s.EpisodesOn(context.Background(), friday.Add(17*time.Hour))
	require.NoError(err)
	require.Equal(friday, schedules.from)
	require.Equal(friday.AddDate(0, 0, 1), schedules.to)
	require.Len(slots, 2)
	require.Equal("Dandadan", slots[0].Title)
	require.Equal("11:30 AM", slots[0].AiringTime)
	require.Equal(12, *slots[0].TotalEpisodes)
	require.Equal("aired", slots[0].AiringStatus)
	require.Equal("08:00 PM", slots[1].AiringTime)
	require.Nil(slots[1].TotalEpisodes)

	schedules.items = nil
	slots, err = s.EpisodesOn(context.Background(), friday.AddDate(0, 0, 1))
	require.NoError(err)
	require.Empty(slots)

	_, err = newTestService(t, &fakeSource{}).EpisodesOn(context.Background(), friday)
	require.ErrorIs(err, ErrStoreUnavailable)
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 1, 12, 23, 59, 0, 0, time.UTC), time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := WeekStart(tt.in); !got.Equal(tt.want) {
			t.Errorf("WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
