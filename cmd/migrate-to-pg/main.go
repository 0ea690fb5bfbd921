// Command migrate-to-pg copies an animeschedule SQLite database into
// PostgreSQL. Target tables are truncated first so the copy can be re-run.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/shapedtime/animeschedule/internal/store"
)

// table describes one table copied verbatim.
type table struct {
	name    string
	columns string
	serial  bool // has a BIGSERIAL id in postgres
}

// Tables in FK-dependency order.
var tables = []table{
	{name: "anime", columns: "anime_id, title, title_romaji, status, season, season_year, episodes, next_airing_at, cover_image, data, updated_at"},
	{name: "airing_schedule", columns: "anime_id, episode, airing_at"},
	{name: "sync_metadata", columns: "key, value, updated_at"},
	{name: "sync_log", columns: "id, sync_type, started_at, completed_at, records_processed, records_written, error_message", serial: true},
}

func main() {
	app := &cli.App{
		Name:  "migrate-to-pg",
		Usage: "Copy an animeschedule SQLite database into PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sqlite-path", Required: true, Usage: "Path to SQLite database file"},
			&cli.StringFlag{Name: "pg-url", Required: true, Usage: "PostgreSQL connection URL", EnvVars: []string{"DATABASE_URL"}},
		},
		Action: func(c *cli.Context) error {
			return migrate(c.String("sqlite-path"), c.String("pg-url"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
}

func migrate(sqlitePath, pgURL string) error {
	if _, err := os.Stat(sqlitePath); err != nil {
		return fmt.Errorf("sqlite database: %w", err)
	}

	sqliteDB, err := sql.Open(store.DriverSQLite, sqlitePath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite: %w", err)
	}
	defer sqliteDB.Close()

	if err := sqliteDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite: %w", err)
	}
	slog.Info("Connected to SQLite", "path", sqlitePath)

	// NewDB applies the postgres schema before anything is copied.
	pgDB, err := store.NewDB(store.DriverPostgres, pgURL)
	if err != nil {
		return err
	}
	defer pgDB.Close()
	slog.Info("Connected to PostgreSQL")

	tx, err := pgDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", tables[i].name)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", tables[i].name, err)
		}
	}
	slog.Info("Truncated target tables")

	for _, t := range tables {
		count, err := copyTable(sqliteDB, tx, t)
		if err != nil {
			return fmt.Errorf("failed to migrate table %s: %w", t.name, err)
		}
		slog.Info("Migrated table", "table", t.name, "rows", count)
	}

	for _, t := range tables {
		if !t.serial {
			continue
		}
		_, err := tx.Exec(fmt.Sprintf(
			"SELECT setval('%s_id_seq', COALESCE((SELECT MAX(id) FROM %s), 1), (SELECT COUNT(*) > 0 FROM %s))",
			t.name, t.name, t.name,
		))
		if err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", t.name, err)
		}
	}

	for _, t := range tables {
		var sqliteCount, pgCount int64
		if err := sqliteDB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t.name)).Scan(&sqliteCount); err != nil {
			return fmt.Errorf("failed to count SQLite rows for %s: %w", t.name, err)
		}
		if err := tx.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t.name)).Scan(&pgCount); err != nil {
			return fmt.Errorf("failed to count PG rows for %s: %w", t.name, err)
		}
		if sqliteCount != pgCount {
			return fmt.Errorf("row count mismatch for %s: SQLite=%d, PG=%d", t.name, sqliteCount, pgCount)
		}
		slog.Info("Verified row count", "table", t.name, "rows", pgCount)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Migration completed successfully")
	return nil
}

func copyTable(sqliteDB *sql.DB, tx *sql.Tx, t table) (int64, error) {
	rows, err := sqliteDB.Query(fmt.Sprintf("SELECT %s FROM %s", t.columns, t.name))
	if err != nil {
		return 0, fmt.Errorf("failed to query SQLite: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to get columns: %w", err)
	}

	placeholders := make([]string, len(colNames))
	for i := range colNames {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	overriding := ""
	if t.serial {
		overriding = " OVERRIDING SYSTEM VALUE"
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (%s)%s VALUES (%s)",
		t.name, t.columns, overriding, strings.Join(placeholders, ", "),
	))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var count int64
	for rows.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return 0, fmt.Errorf("failed to scan row: %w", err)
		}
		if _, err := stmt.Exec(values...); err != nil {
			return 0, fmt.Errorf("failed to insert row: %w", err)
		}
		count++
	}

	return count, rows.Err()
}
