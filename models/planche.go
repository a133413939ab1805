package models

import "time"

// Planche is one scanned sheet of cartons belonging to a user. The original
// photo stays on disk under the scan base dir; ImagePath is its public
// relative path.
type Planche struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
	UserID    uint       `gorm:"index;not null"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Name      string     `gorm:"size:255;not null"`
	ImagePath string     `gorm:"size:512"`
	// Cartons is a one-to-many relation from Planche to Carton
	Cartons []Carton `gorm:"foreignKey:PlancheID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
