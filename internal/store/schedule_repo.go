package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shapedtime/animeschedule/internal/anime"
)

// ScheduleItem is one stored episode airing joined with its anime.
type ScheduleItem struct {
	AnimeID    int
	Title      string
	CoverImage string
	Status     string
	Episodes   *int
	Episode    int
	AiringAt   int64
}

// ScheduleRepository handles airing schedule queries
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ReplaceForAnime swaps the stored schedule of one anime for schedule.
func (r *ScheduleRepository) ReplaceForAnime(animeID int, schedule []anime.ScheduledEpisode) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceSchedule(tx, r.db, animeID, schedule); err != nil {
		return err
	}
	return tx.Commit()
}

// ListBetween returns episodes airing in [from, to), ordered by airing time.
func (r *ScheduleRepository) ListBetween(from, to time.Time) ([]ScheduleItem, error) {
	rows, err := r.db.Query(r.db.rebind(`
		SELECT s.anime_id, a.title, COALESCE(a.cover_image, ''), a.status, a.episodes,
			s.episode, s.airing_at
		FROM airing_schedule s
		JOIN anime a ON a.anime_id = s.anime_id
		WHERE s.airing_at >= ? AND s.airing_at < ?
		ORDER BY s.airing_at, a.title
	`), from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule: %w", err)
	}
	defer rows.Close()

	var items []ScheduleItem
	for rows.Next() {
		var item ScheduleItem
		var episodes sql.NullInt64
		if err := rows.Scan(&item.AnimeID, &item.Title, &item.CoverImage, &item.Status,
			&episodes, &item.Episode, &item.AiringAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		if episodes.Valid {
			n := int(episodes.Int64)
			item.Episodes = &n
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func replaceSchedule(tx *sql.Tx, db *DB, animeID int, schedule []anime.ScheduledEpisode) error {
	if _, err := tx.Exec(db.rebind(`DELETE FROM airing_schedule WHERE anime_id = ?`), animeID); err != nil {
		return fmt.Errorf("failed to clear schedule for %d: %w", animeID, err)
	}

	insert := db.rebind(`
		INSERT INTO airing_schedule (anime_id, episode, airing_at) VALUES (?, ?, ?)
		ON CONFLICT(anime_id, episode) DO UPDATE SET airing_at = excluded.airing_at
	`)
	for _, ep := range schedule {
		if ep.Episode <= 0 || ep.AirsAtTimestamp <= 0 {
			continue
		}
		if _, err := tx.Exec(insert, animeID, ep.Episode, ep.AirsAtTimestamp); err != nil {
			return fmt.Errorf("failed to store episode %d of %d: %w", ep.Episode, animeID, err)
		}
	}

	return nil
}
