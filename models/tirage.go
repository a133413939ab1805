package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tirage is a cached parsed prize listing. The raw source text is kept so
// a listing can be re-parsed after a parser fix without re-scraping, and
// FetchedAt tells the caller how stale the cache is.
type Tirage struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      uint           `gorm:"index;not null"`
	Name        string         `gorm:"size:255;not null"`
	RawText     string         `gorm:"type:text"`
	Lots        datatypes.JSON `gorm:"type:jsonb"` // []lots.Lot, sorted by number
	Confidence  float64        `gorm:"not null;default:0"`
	Pass        string         `gorm:"size:16"` // parser pass that produced Lots
	Synthesized int            `gorm:"not null;default:0"`
	FetchedAt   time.Time      `gorm:"index;not null"`
}
