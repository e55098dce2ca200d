package storage

import (
	"database/sql"
	"fmt"
)

// CreateVideo inserts a new video job record.
func (db *DB) CreateVideo(v *Video) error {
	_, err := db.Exec(`
		INSERT INTO videos (id, user_id, filename, original_path, status)
		VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Filename, v.OriginalPath, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// GetVideo fetches one video job by id.
func (db *DB) GetVideo(id string) (*Video, error) {
	row := db.QueryRow(`
		SELECT id, user_id, filename, original_path,
		       COALESCE(processed_path, ''), status, total_violations,
		       fps, created_at
		FROM videos WHERE id = ?`, id)

	var v Video
	err := row.Scan(&v.ID, &v.UserID, &v.Filename, &v.OriginalPath,
		&v.ProcessedPath, &v.Status, &v.TotalViolations, &v.FPS, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SetVideoStatus updates a video job's status.
func (db *DB) SetVideoStatus(id, status string) error {
	_, err := db.Exec(`UPDATE videos SET status = ? WHERE id = ?`, status, id)
	return err
}

// FinishVideo marks a video job completed with its output artifacts.
func (db *DB) FinishVideo(id, processedPath string, totalViolations int, fps float64) error {
	_, err := db.Exec(`
		UPDATE videos SET status = ?, processed_path = ?, total_violations = ?, fps = ?
		WHERE id = ?`,
		StatusCompleted, processedPath, totalViolations, fps, id)
	return err
}

// CreatePhoto inserts a photo record.
func (db *DB) CreatePhoto(p *Photo) error {
	_, err := db.Exec(`
		INSERT INTO photos (id, user_id, filename, original_path, processed_path, status, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Filename, p.OriginalPath, p.ProcessedPath, p.Status, p.Width, p.Height)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

// GetPhoto fetches one photo record by id.
func (db *DB) GetPhoto(id string) (*Photo, error) {
	row := db.QueryRow(`
		SELECT id, user_id, filename, original_path,
		       COALESCE(processed_path, ''), status, width, height, created_at
		FROM photos WHERE id = ?`, id)

	var p Photo
	err := row.Scan(&p.ID, &p.UserID, &p.Filename, &p.OriginalPath,
		&p.ProcessedPath, &p.Status, &p.Width, &p.Height, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("photo %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPhotoStatus updates a photo record's status.
func (db *DB) SetPhotoStatus(id, status string) error {
	_, err := db.Exec(`UPDATE photos SET status = ? WHERE id = ?`, status, id)
	return err
}

// FinishPhoto marks a photo record completed with its processed output.
func (db *DB) FinishPhoto(id, processedPath string) error {
	_, err := db.Exec(`
		UPDATE photos SET status = ?, processed_path = ? WHERE id = ?`,
		StatusCompleted, processedPath, id)
	return err
}
