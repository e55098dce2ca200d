package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"roadcam/tracking"
)

// CreateCalibration stores a new calibration record for a user.
func (db *DB) CreateCalibration(c *CalibrationRecord) error {
	_, err := db.Exec(`
		INSERT INTO calibrations (id, user_id, name, reference_distance, pixel_points, speed_limit)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.ReferenceDistance, c.PixelPoints, c.SpeedLimit)
	if err != nil {
		return fmt.Errorf("failed to insert calibration: %w", err)
	}
	return nil
}

// LatestCalibration returns the most recently created calibration for the
// user, decoded into pipeline form, or nil when the user has none. The most
// recent record is the single authoritative one.
func (db *DB) LatestCalibration(userID string) (*tracking.Calibration, error) {
	row := db.QueryRow(`
		SELECT reference_distance, pixel_points, speed_limit
		FROM calibrations WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID)

	var refDist, speedLimit float64
	var pointsJSON string
	err := row.Scan(&refDist, &pointsJSON, &speedLimit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var points [][2]float64
	if err := json.Unmarshal([]byte(pointsJSON), &points); err != nil || len(points) < 2 {
		return nil, fmt.Errorf("malformed calibration pixel points: %v", pointsJSON)
	}

	return &tracking.Calibration{
		PixelPoints: [2]tracking.Point{
			{X: points[0][0], Y: points[0][1]},
			{X: points[1][0], Y: points[1][1]},
		},
		ReferenceDistance: refDist,
		SpeedLimitKPH:     speedLimit,
	}, nil
}

// GetUserSettings returns the user's speed limit settings, zero-valued when
// none are stored.
func (db *DB) GetUserSettings(userID string) (*UserSettings, error) {
	row := db.QueryRow(`
		SELECT user_id, speed_limit, bike_speed_limit, car_speed_limit
		FROM user_settings WHERE user_id = ?`, userID)

	var s UserSettings
	err := row.Scan(&s.UserID, &s.SpeedLimit, &s.BikeSpeedLimit, &s.CarSpeedLimit)
	if err == sql.ErrNoRows {
		return &UserSettings{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetUserSettings upserts the user's speed limit settings.
func (db *DB) SetUserSettings(s *UserSettings) error {
	_, err := db.Exec(`
		INSERT INTO user_settings (user_id, speed_limit, bike_speed_limit, car_speed_limit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			speed_limit = excluded.speed_limit,
			bike_speed_limit = excluded.bike_speed_limit,
			car_speed_limit = excluded.car_speed_limit`,
		s.UserID, s.SpeedLimit, s.BikeSpeedLimit, s.CarSpeedLimit)
	return err
}
