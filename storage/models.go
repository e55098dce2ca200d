package storage

import "time"

// Job statuses shared by video and photo records.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Video is one uploaded video processing job.
type Video struct {
	ID              string
	UserID          string
	Filename        string
	OriginalPath    string
	ProcessedPath   string
	Status          string
	TotalViolations int
	FPS             float64
	CreatedAt       time.Time
}

// Photo is one uploaded or crop-derived photo record.
type Photo struct {
	ID            string
	UserID        string
	Filename      string
	OriginalPath  string
	ProcessedPath string
	Status        string
	Width         int
	Height        int
	CreatedAt     time.Time
}

// Violation is the persisted form of a classified violation event.
// Created once and immutable after creation apart from the plate/challan
// back-references attached by citation processing.
type Violation struct {
	ID            string
	UserID        string
	VideoID       string
	PhotoID       string
	ViolationType string
	Timestamp     float64
	TrackID       int
	Speed         *float64
	Confidence    float64
	BBox          string // JSON [x1,y1,x2,y2]
	PlateNumber   string
	PlateReadable *bool
	ChallanNumber string
	ImagePath     string
	CreatedAt     time.Time
}

// Challan is a citation issued against one violation. At most one exists
// per violation id.
type Challan struct {
	ID            string
	ViolationID   string
	UserID        string
	ChallanNumber string
	ViolationType string
	FineAmount    float64
	PlateNumber   string
	PlateReadable bool
	Preset        bool
	Notes         string
	ImagePath     string
	PDFPath       string
	CreatedAt     time.Time
}

// CalibrationRecord is a stored pixel-to-meter calibration for one user.
type CalibrationRecord struct {
	ID                string
	UserID            string
	Name              string
	ReferenceDistance float64
	PixelPoints       string // JSON [[x,y],[x,y]]
	SpeedLimit        float64
	CreatedAt         time.Time
}

// UserSettings carries a user's speed limit preferences. Zero means unset.
type UserSettings struct {
	UserID         string
	SpeedLimit     float64
	BikeSpeedLimit float64
	CarSpeedLimit  float64
}
