package models

import (
	"time"

	"gorm.io/datatypes"
)

// Partie is one game session of a loto evening. The called-number log is
// the only mutable game state that gets persisted; per-carton progress is
// always recomputed from it, never stored. LotGroup/LotTier persist the
// prize cursor so a session can be resumed mid-evening.
type Partie struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"size:255;not null"`
	Status    string `gorm:"size:32;not null;default:active"` // active | finished
	// PlancheIDs lists the planches in play, as JSON ([]uint).
	PlancheIDs datatypes.JSON `gorm:"type:jsonb"`
	// CalledNumbers is the append-only call log, as JSON ([]loto.CalledNumber).
	CalledNumbers datatypes.JSON `gorm:"type:jsonb"`
	TirageID      *uint          `gorm:"index"` // selected prize list (nullable)
	LotGroup      int            `gorm:"not null;default:0"`
	LotTier       string         `gorm:"size:16;not null;default:quine"`
}

// WinRecord is one detected (or manually recorded) win of a partie, kept
// for the evening's history. Rows are deleted when the triggering call is
// undone; they are derived state, not a source of truth.
type WinRecord struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	PartieID  uint   `gorm:"index;not null"`
	CartonID  string `gorm:"size:64;not null"`
	PlancheID uint   `gorm:"index"`
	Tier      string `gorm:"size:16;not null"`
	Number    int    `gorm:"not null"` // the call that completed the tier
	CallOrder int    `gorm:"not null"`
	// Position is the 1-based carton slot announced to the caller.
	Position     int    `gorm:"not null"`
	SerialNumber string `gorm:"size:32"`
}
