package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shapedtime/animeschedule/internal/anime"
)

const defaultSearchLimit = 10

// AnimeRepository handles anime and airing schedule database operations
type AnimeRepository struct {
	db *DB
}

// NewAnimeRepository creates a new anime repository
func NewAnimeRepository(db *DB) *AnimeRepository {
	return &AnimeRepository{db: db}
}

// Upsert stores an anime snapshot and replaces its airing schedule.
func (r *AnimeRepository) Upsert(a *anime.Anime) error {
	return r.UpsertBatch([]anime.Anime{*a})
}

// UpsertBatch stores many anime in a single transaction.
func (r *AnimeRepository) UpsertBatch(items []anime.Anime) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := r.db.rebind(`
		INSERT INTO anime (anime_id, title, title_romaji, status, season, season_year,
			episodes, next_airing_at, cover_image, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(anime_id) DO UPDATE SET
			title = excluded.title,
			title_romaji = excluded.title_romaji,
			status = excluded.status,
			season = excluded.season,
			season_year = excluded.season_year,
			episodes = excluded.episodes,
			next_airing_at = excluded.next_airing_at,
			cover_image = excluded.cover_image,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`)

	for i := range items {
		a := &items[i]
		if a.ID == 0 {
			return ErrInvalidAnime
		}

		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode anime %d: %w", a.ID, err)
		}

		_, err = tx.Exec(upsert,
			a.ID, a.Title, nullString(a.TitleRomaji), a.Status,
			nullString(a.Season), nullInt(a.SeasonYear), nullInt(a.Episodes), nullInt64(a.NextAiringAt),
			nullString(a.CoverImage), string(data),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert anime %d: %w", a.ID, err)
		}

		if err := replaceSchedule(tx, r.db, a.ID, a.AiringSchedule); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves an anime by its AniList ID
func (r *AnimeRepository) GetByID(id int) (*anime.Anime, error) {
	var data string
	err := r.db.QueryRow(r.db.rebind(`SELECT data FROM anime WHERE anime_id = ?`), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnimeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anime: %w", err)
	}

	return decodeAnime(data)
}

// Search finds anime whose English or romaji title contains query,
// ignoring case. A non-positive limit means the default of 10.
func (r *AnimeRepository) Search(query string, limit int) ([]anime.Anime, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	return r.list(`
		SELECT data FROM anime
		WHERE LOWER(title) LIKE ? OR LOWER(COALESCE(title_romaji, '')) LIKE ?
		ORDER BY title
		LIMIT ?
	`, pattern, pattern, limit)
}

// ListBySeason returns the stored anime of a season.
func (r *AnimeRepository) ListBySeason(season string, year int) ([]anime.Anime, error) {
	return r.list(`
		SELECT data FROM anime WHERE season = ? AND season_year = ? ORDER BY title
	`, strings.ToUpper(season), year)
}

// ListAiring returns the stored anime that are currently releasing.
func (r *AnimeRepository) ListAiring() ([]anime.Anime, error) {
	return r.list(`
		SELECT data FROM anime WHERE status = 'RELEASING' ORDER BY next_airing_at
	`)
}

// Count returns the number of stored anime.
func (r *AnimeRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM anime`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count anime: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of stored anime per airing status.
func (r *AnimeRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM anime GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count anime: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

func (r *AnimeRepository) list(query string, args ...any) ([]anime.Anime, error) {
	rows, err := r.db.Query(r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list anime: %w", err)
	}
	defer rows.Close()

	var out []anime.Anime
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan anime: %w", err)
		}
		a, err := decodeAnime(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}

	return out, rows.Err()
}

func decodeAnime(data string) (*anime.Anime, error) {
	a := &anime.Anime{}
	if err := json.Unmarshal([]byte(data), a); err != nil {
		return nil, fmt.Errorf("failed to decode stored anime: %w", err)
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
