package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ruckquest/augmenter/models"
)

// DB wraps the database connection and provides data access methods
type DB struct {
	conn *sql.DB
}

// Config contains database configuration
type Config struct {
	DSN string // PostgreSQL connection string
}

// New creates a new database connection
func New(config Config) (*DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying database connection for metrics collection
func (db *DB) DB() *sql.DB {
	return db.conn
}

// SaveRun persists one augmentation run and its applied patches atomically.
func (db *DB) SaveRun(run *models.Run) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, base_url, slug, pristine_key, augmented_key, report, processing_time_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		run.ID,
		run.BaseURL,
		run.Slug,
		run.PristineKey,
		run.AugmentedKey,
		reportJSON,
		run.ProcessingTime,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range run.Report.Applied {
		_, err = tx.Exec(`
			INSERT INTO patches (run_id, kind, resource_url, anchor_text, original_start, original_end, discovery_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			run.ID,
			string(p.Kind),
			p.ResourceURL,
			p.AnchorText,
			p.OriginalStart,
			p.OriginalEnd,
			p.DiscoveryOrder,
		)
		if err != nil {
			return fmt.Errorf("failed to insert patch: %w", err)
		}
	}

	return tx.Commit()
}

// GetRunByID retrieves a run by its ID
func (db *DB) GetRunByID(id string) (*models.Run, error) {
	var (
		run        models.Run
		reportJSON []byte
	)
	err := db.conn.QueryRow(`
		SELECT id, base_url, slug, pristine_key, augmented_key, report, processing_time_seconds, created_at
		FROM runs WHERE id = $1
	`, id).Scan(
		&run.ID,
		&run.BaseURL,
		&run.Slug,
		&run.PristineKey,
		&run.AugmentedKey,
		&reportJSON,
		&run.ProcessingTime,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs ordered by creation time, newest first
func (db *DB) ListRuns(limit, offset int) ([]*models.Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, base_url, slug, pristine_key, augmented_key, report, processing_time_seconds, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var (
			run        models.Run
			reportJSON []byte
		)
		if err := rows.Scan(
			&run.ID,
			&run.BaseURL,
			&run.Slug,
			&run.PristineKey,
			&run.AugmentedKey,
			&reportJSON,
			&run.ProcessingTime,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Count returns the total number of stored runs
func (db *DB) Count() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// DeleteRunByID removes a run and its patches
func (db *DB) DeleteRunByID(id string) error {
	result, err := db.conn.Exec("DELETE FROM runs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// SavePageCache stores the discovered page list for a site, replacing any
// previous entry.
func (db *DB) SavePageCache(baseURL string, pages []models.PageRef) error {
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO page_cache (base_url, pages, fetched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT(base_url) DO UPDATE SET
			pages = excluded.pages,
			fetched_at = excluded.fetched_at
	`, baseURL, pagesJSON)
	if err != nil {
		return fmt.Errorf("failed to save page cache: %w", err)
	}
	return nil
}

// GetPageCache returns the cached page list for a site if it is newer than
// maxAge. The bool result reports a usable hit.
func (db *DB) GetPageCache(baseURL string, maxAge time.Duration) ([]models.PageRef, bool, error) {
	var (
		pagesJSON []byte
		fetchedAt time.Time
	)
	err := db.conn.QueryRow(`
		SELECT pages, fetched_at FROM page_cache WHERE base_url = $1
	`, baseURL).Scan(&pagesJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query page cache: %w", err)
	}

	if time.Since(fetchedAt) > maxAge {
		return nil, false, nil
	}

	var pages []models.PageRef
	if err := json.Unmarshal(pagesJSON, &pages); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal pages: %w", err)
	}
	return pages, true, nil
}
