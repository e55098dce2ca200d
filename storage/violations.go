package storage

import (
	"database/sql"
	"fmt"
)

// InsertViolation persists a new violation record. The record must be
// written before any citation work for it is dispatched.
func (db *DB) InsertViolation(v *Violation) error {
	_, err := db.Exec(`
		INSERT INTO violations (id, user_id, video_id, photo_id, violation_type,
			timestamp, track_id, speed, confidence, bbox)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, nullable(v.VideoID), nullable(v.PhotoID), v.ViolationType,
		v.Timestamp, v.TrackID, v.Speed, v.Confidence, v.BBox)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// GetViolation fetches one violation by id.
func (db *DB) GetViolation(id string) (*Violation, error) {
	row := db.QueryRow(`
		SELECT id, user_id, COALESCE(video_id, ''), COALESCE(photo_id, ''),
		       violation_type, timestamp, track_id, speed, confidence,
		       COALESCE(bbox, ''), COALESCE(plate_number, ''), plate_readable,
		       COALESCE(challan_number, ''), COALESCE(image_path, ''), created_at
		FROM violations WHERE id = ?`, id)
	return scanViolation(row)
}

// ViolationsBySubject lists violations for a video or photo, newest first.
func (db *DB) ViolationsBySubject(videoID, photoID string, limit int) ([]*Violation, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := db.Query(`
		SELECT id, user_id, COALESCE(video_id, ''), COALESCE(photo_id, ''),
		       violation_type, timestamp, track_id, speed, confidence,
		       COALESCE(bbox, ''), COALESCE(plate_number, ''), plate_readable,
		       COALESCE(challan_number, ''), COALESCE(image_path, ''), created_at
		FROM violations
		WHERE (? = '' OR video_id = ?) AND (? = '' OR photo_id = ?)
		ORDER BY created_at DESC LIMIT ?`,
		videoID, videoID, photoID, photoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AttachViolationPlate records plate lookup results and the challan
// back-reference on the violation after citation processing.
func (db *DB) AttachViolationPlate(id, plateNumber string, plateReadable bool, challanNumber, imagePath string) error {
	_, err := db.Exec(`
		UPDATE violations
		SET plate_number = ?, plate_readable = ?, challan_number = ?,
		    image_path = COALESCE(NULLIF(?, ''), image_path)
		WHERE id = ?`,
		nullable(plateNumber), plateReadable, challanNumber, imagePath, id)
	return err
}

// SetViolationImage links a saved crop photo to the violation.
func (db *DB) SetViolationImage(id, imagePath string) error {
	_, err := db.Exec(`UPDATE violations SET image_path = ? WHERE id = ?`, imagePath, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanViolation(row rowScanner) (*Violation, error) {
	var v Violation
	var speed sql.NullFloat64
	var readable sql.NullBool
	err := row.Scan(&v.ID, &v.UserID, &v.VideoID, &v.PhotoID, &v.ViolationType,
		&v.Timestamp, &v.TrackID, &speed, &v.Confidence, &v.BBox,
		&v.PlateNumber, &readable, &v.ChallanNumber, &v.ImagePath, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("violation not found")
	}
	if err != nil {
		return nil, err
	}
	if speed.Valid {
		v.Speed = &speed.Float64
	}
	if readable.Valid {
		v.PlateReadable = &readable.Bool
	}
	return &v, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
