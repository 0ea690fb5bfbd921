package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shapedtime/animeschedule/internal/anime"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(n int) *int { return &n }
func i64Ptr(n int64) *int64 { return &n }

func sampleAnime(id int, title, status string) anime.Anime {
	return anime.Anime{
		ID:           id,
		Title:        title,
		TitleRomaji:  title + " (romaji)",
		Status:       status,
		Episodes:     intPtr(12),
		Season:       "FALL",
		SeasonYear:   intPtr(2025),
		NextAiringAt: i64Ptr(1760000000),
		CoverImage:   "https://img.example/" + title + ".jpg",
	}
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	_, err := NewDB("mysql", "x")
	require.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(DriverSQLite, path)
	require.NoError(err)
	require.NoError(db.Close())

	db, err = NewDB(DriverSQLite, path)
	require.NoError(err)
	defer db.Close()

	var version int
	require.NoError(db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	require.Equal(1, version)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	require.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &DB{driver: DriverSQLite}
	require.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- note\nCREATE INDEX i ON a(x);\n")
	require.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a(x)"}, stmts)
}

func TestAnimeUpsertAndGet(t *testing.T) {
	require := require.New(t)
	repo := NewAnimeRepository(newTestDB(t))

	a := sampleAnime(1, "Frieren", "RELEASING")
	a.AiringSchedule = []anime.ScheduledEpisode{
		{Episode: 5, AirsAt: "2025-10-10", AirsAtTimestamp: 1760054400},
		{Episode: 6, AirsAt: "2025-10-17", AirsAtTimestamp: 1760659200},
	}
	require.NoError(repo.Upsert(&a))

	got, err := repo.GetByID(1)
	require.NoError(err)
	require.Equal("Frieren", got.Title)
	require.Equal(12, *got.Episodes)
	require.Len(got.AiringSchedule, 2)

	a.Title = "Frieren: Beyond Journey's End"
	a.Status = "FINISHED"
	require.NoError(repo.Upsert(&a))

	got, err = repo.GetByID(1)
	require.NoError(err)
	require.Equal("FINISHED", got.Status)

	n, err := repo.Count()
	require.NoError(err)
	require.Equal(1, n)
}

func TestAnimeGetMissing(t *testing.T) {
	repo := NewAnimeRepository(newTestDB(t))
	_, err := repo.GetByID(404)
	require.ErrorIs(t, err, ErrAnimeNotFound)
}

func TestAnimeUpsertRejectsZeroID(t *testing.T) {
	repo := NewAnimeRepository(newTestDB(t))
	a := sampleAnime(0, "Nameless", "RELEASING")
	require.ErrorIs(t, repo.Upsert(&a), ErrInvalidAnime)
}

func TestAnimeSearch(t *testing.T) {
	require := require.New(t)
	repo := NewAnimeRepository(newTestDB(t))

	require.NoError(repo.UpsertBatch([]anime.Anime{
		sampleAnime(1, "Frieren", "RELEASING"),
		sampleAnime(2, "Dandadan", "RELEASING"),
		sampleAnime(3, "Frieren Specials", "FINISHED"),
	}))

	tests := []struct {
		query string
		limit int
		want  []int
	}{
		{"frieren", 0, []int{1, 3}},
		{"FRIEREN", 1, []int{1}},
		{"romaji", 10, []int{2, 1, 3}},
		{"nothing", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := repo.Search(tt.query, tt.limit)
			require.NoError(err)

			var ids []int
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			require.Equal(tt.want, ids)
		})
	}
}

func TestAnimeListings(t *testing.T) {
	require := require.New(t)
	repo := NewAnimeRepository(newTestDB(t))

	winter := sampleAnime(3, "Old Show", "FINISHED")
	winter.Season = "WINTER"
	require.NoError(repo.UpsertBatch([]anime.Anime{
		sampleAnime(1, "Frieren", "RELEASING"),
		sampleAnime(2, "Dandadan", "FINISHED"),
		winter,
	}))

	fall, err := repo.ListBySeason("fall", 2025)
	require.NoError(err)
	require.Len(fall, 2)

	airing, err := repo.ListAiring()
	require.NoError(err)
	require.Len(airing, 1)
	require.Equal(1, airing[0].ID)

	counts, err := repo.CountByStatus()
	require.NoError(err)
	require.Equal(map[string]int{"RELEASING": 1, "FINISHED": 2}, counts)
}

func TestScheduleListBetween(t *testing.T) {
	require := require.New(t)
	db := newTestDB(t)
	animeRepo := NewAnimeRepository(db)
	schedules := NewScheduleRepository(db)

	base := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)
	a := sampleAnime(1, "Frieren", "RELEASING")
	a.AiringSchedule = []anime.ScheduledEpisode{
		{Episode: 5, AirsAtTimestamp: base.Add(26 * time.Hour).Unix()},
		{Episode: 6, AirsAtTimestamp: base.Add(7*24*time.Hour + 26*time.Hour).Unix()},
	}
	b := sampleAnime(2, "Dandadan", "RELEASING")
	b.Episodes = nil
	b.AiringSchedule = []anime.ScheduledEpisode{
		{Episode: 2, AirsAtTimestamp: base.Add(2 * time.Hour).Unix()},
	}
	require.NoError(animeRepo.UpsertBatch([]anime.Anime{a, b}))

	items, err := schedules.ListBetween(base, base.AddDate(0, 0, 7))
	require.NoError(err)
	require.Len(items, 2)
	require.Equal("Dandadan", items[0].Title)
	require.Nil(items[0].Episodes)
	require.Equal(5, items[1].Episode)
	require.Equal(12, *items[1].Episodes)

	require.NoError(schedules.ReplaceForAnime(1, nil))
	items, err = schedules.ListBetween(base, base.AddDate(0, 0, 14))
	require.NoError(err)
	require.Len(items, 1)
}

func TestSyncMetadata(t *testing.T) {
	require := require.New(t)
	repo := NewSyncMetadataRepository(newTestDB(t))

	last, err := repo.GetLastSyncTime("season")
	require.NoError(err)
	require.True(last.IsZero())

	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(repo.SetLastSyncTime("season", now))
	last, err = repo.GetLastSyncTime("season")
	require.NoError(err)
	require.True(now.Equal(last))

	require.NoError(repo.SetValue("last_season", "garbage"))
	last, err = repo.GetLastSyncTime("season")
	require.NoError(err)
	require.True(last.IsZero())
}

func TestSyncLog(t *testing.T) {
	require := require.New(t)
	repo := NewSyncMetadataRepository(newTestDB(t))

	entry, err := repo.LastSyncLog("season")
	require.NoError(err)
	require.Nil(entry)

	id, err := repo.StartSyncLog("season")
	require.NoError(err)

	entry, err = repo.LastSyncLog("season")
	require.NoError(err)
	require.Equal(id, entry.ID)
	require.False(entry.Completed)

	require.NoError(repo.CompleteSyncLog(id, 40, 38, nil))
	entry, err = repo.LastSyncLog("season")
	require.NoError(err)
	require.True(entry.Completed)
	require.Equal(40, entry.RecordsProcessed)
	require.Equal(38, entry.RecordsWritten)
	require.Empty(entry.ErrorMessage)
}
