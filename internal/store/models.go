package store

import "time"

// Upload is the durable record for one processed clip. Finished flips
// false to true exactly once; records are never deleted by the pipeline.
type Upload struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
	File        string    `gorm:"size:255;not null" json:"file"`
	Owner       uint      `gorm:"index;not null" json:"owner"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"size:1024" json:"description"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Tag         string    `gorm:"size:64" json:"tag,omitempty"`
	Finished    bool      `gorm:"default:false;index" json:"finished"`
	Visible     bool      `gorm:"default:true" json:"visible"`
	// Edited points at the parent record when this clip is the output
	// of an edit operation.
	Edited *uint `gorm:"index" json:"edited,omitempty"`
}

// Alert types. Every durable state transition of a job writes exactly
// one alert row.
const (
	AlertProcessing = "processing"
	AlertFinished   = "finished"
	AlertError      = "error"
)

// Alert is one audit row. UploadID is nil only when the failure happened
// before a record existed; UploadName then carries the label instead.
type Alert struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	Owner      uint   `gorm:"index;not null"`
	Type       string `gorm:"size:16;not null;index"`
	UploadID   *uint  `gorm:"index"`
	UploadName string `gorm:"size:255"`
	Message    string `gorm:"size:1024"`
}

// Preset is a named crop/tag configuration selectable per upload.
// Crop applies only when all three dimensions are present.
type Preset struct {
	ID              uint `gorm:"primaryKey"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DisplayName     *string `gorm:"size:64"`
	CropWidth       *int
	CropHeight      *int
	CropSourceWidth *int
}
