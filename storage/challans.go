package storage

import (
	"database/sql"
	"fmt"
)

// InsertChallan persists a challan if none exists for its violation yet.
// The violation_id uniqueness constraint makes repeat calls no-ops, which is
// what keeps citation creation idempotent under concurrent task execution.
// Returns true when this call created the record.
func (db *DB) InsertChallan(c *Challan) (bool, error) {
	res, err := db.Exec(`
		INSERT INTO challans (id, violation_id, user_id, challan_number,
			violation_type, fine_amount, plate_number, plate_readable,
			preset, notes, image_path, pdf_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(violation_id) DO NOTHING`,
		c.ID, c.ViolationID, c.UserID, c.ChallanNumber, c.ViolationType,
		c.FineAmount, nullable(c.PlateNumber), c.PlateReadable, c.Preset,
		nullable(c.Notes), nullable(c.ImagePath), nullable(c.PDFPath))
	if err != nil {
		return false, fmt.Errorf("failed to insert challan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ChallanByViolation fetches the challan issued for a violation, or nil.
func (db *DB) ChallanByViolation(violationID string) (*Challan, error) {
	row := db.QueryRow(challanSelect+` WHERE violation_id = ?`, violationID)
	c, err := scanChallan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetChallan fetches one challan by id.
func (db *DB) GetChallan(id string) (*Challan, error) {
	row := db.QueryRow(challanSelect+` WHERE id = ?`, id)
	c, err := scanChallan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("challan %s not found", id)
	}
	return c, err
}

// ListChallans returns challans newest first.
func (db *DB) ListChallans(limit int) ([]*Challan, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := db.Query(challanSelect+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Challan
	for rows.Next() {
		c, err := scanChallan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateChallanPlate attaches a retroactively recovered plate number. This
// is the only mutation allowed on a challan after creation.
func (db *DB) UpdateChallanPlate(id, plateNumber, notes string) error {
	_, err := db.Exec(`
		UPDATE challans
		SET plate_number = ?, plate_readable = 1, preset = 0, notes = ?
		WHERE id = ?`,
		plateNumber, notes, id)
	return err
}

// SetChallanPDF records the path of the generated challan document.
func (db *DB) SetChallanPDF(id, pdfPath string) error {
	_, err := db.Exec(`UPDATE challans SET pdf_path = ? WHERE id = ?`, pdfPath, id)
	return err
}

const challanSelect = `
	SELECT id, violation_id, user_id, challan_number, violation_type,
	       fine_amount, COALESCE(plate_number, ''), plate_readable, preset,
	       COALESCE(notes, ''), COALESCE(image_path, ''),
	       COALESCE(pdf_path, ''), created_at
	FROM challans`

func scanChallan(row rowScanner) (*Challan, error) {
	var c Challan
	err := row.Scan(&c.ID, &c.ViolationID, &c.UserID, &c.ChallanNumber,
		&c.ViolationType, &c.FineAmount, &c.PlateNumber, &c.PlateReadable,
		&c.Preset, &c.Notes, &c.ImagePath, &c.PDFPath, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
