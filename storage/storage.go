package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB is the persistence collaborator for jobs, violations, challans,
// calibrations and user settings.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS videos (
			id               TEXT PRIMARY KEY,
			user_id          TEXT,
			filename         TEXT,
			original_path    TEXT,
			processed_path   TEXT,
			status           TEXT DEFAULT 'pending',
			total_violations INTEGER DEFAULT 0,
			fps              DOUBLE DEFAULT 0,
			created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS photos (
			id               TEXT PRIMARY KEY,
			user_id          TEXT,
			filename         TEXT,
			original_path    TEXT,
			processed_path   TEXT,
			status           TEXT DEFAULT 'pending',
			width            INTEGER DEFAULT 0,
			height           INTEGER DEFAULT 0,
			created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS violations (
			id               TEXT PRIMARY KEY,
			user_id          TEXT,
			video_id         TEXT,
			photo_id         TEXT,
			violation_type   TEXT NOT NULL,
			timestamp        DOUBLE DEFAULT 0,
			track_id         INTEGER DEFAULT 0,
			speed            DOUBLE,
			confidence       DOUBLE DEFAULT 0,
			bbox             TEXT,
			plate_number     TEXT,
			plate_readable   INTEGER,
			challan_number   TEXT,
			image_path       TEXT,
			created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS challans (
			id               TEXT PRIMARY KEY,
			violation_id     TEXT NOT NULL UNIQUE,
			user_id          TEXT,
			challan_number   TEXT NOT NULL,
			violation_type   TEXT NOT NULL,
			fine_amount      DOUBLE NOT NULL,
			plate_number     TEXT,
			plate_readable   INTEGER DEFAULT 0,
			preset           INTEGER DEFAULT 0,
			notes            TEXT,
			image_path       TEXT,
			pdf_path         TEXT,
			created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS calibrations (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL,
			name               TEXT,
			reference_distance DOUBLE NOT NULL,
			pixel_points       TEXT NOT NULL,
			speed_limit        DOUBLE DEFAULT 0,
			created_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS user_settings (
			user_id          TEXT PRIMARY KEY,
			speed_limit      DOUBLE DEFAULT 0,
			bike_speed_limit DOUBLE DEFAULT 0,
			car_speed_limit  DOUBLE DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_violations_video ON violations(video_id);
		CREATE INDEX IF NOT EXISTS idx_violations_photo ON violations(photo_id);
		CREATE INDEX IF NOT EXISTS idx_violations_created ON violations(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_challans_created ON challans(created_at DESC);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}
