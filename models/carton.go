package models

import (
	"time"

	"gorm.io/datatypes"
)

// Carton is one digitized carton of a planche. Grid holds the full 3x9
// layout (0 = blank cell) and Numbers the 15 values, both as JSON so a
// carton row round-trips without a cell table. A scan that could not be
// completed keeps its row with Failed set so the front-end can offer
// manual correction instead of silently dropping the slot.
type Carton struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	PlancheID uint           `gorm:"index;not null;uniqueIndex:idx_planche_pos"`
	Position  int            `gorm:"not null;uniqueIndex:idx_planche_pos"` // 0..11 slot on the planche
	Grid      datatypes.JSON `gorm:"type:jsonb"`                           // [3][9]int
	Numbers   datatypes.JSON `gorm:"type:jsonb"`                           // []int, 15 ascending values
	// SerialNumber is the printed manufacturer serial, excluded from play.
	SerialNumber string  `gorm:"size:32"`
	Confidence   float64 `gorm:"not null;default:0"`
	RawText      string  `gorm:"size:2048"` // aggregate OCR text kept for review
	Failed       bool    `gorm:"default:false;index"`
	FailedReason string  `gorm:"size:255"`
}
