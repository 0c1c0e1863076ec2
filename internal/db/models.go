package db

import (
	"time"

	"gorm.io/datatypes"
)

// Player is the advisory play-count record, keyed by the stable email
// identity rather than any connection-scoped id.
type Player struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"size:254;uniqueIndex;not null"`
	Plays        int       `gorm:"not null;default:0"`
	LastPlayedAt time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// Event logs room lifecycle transitions for operator visibility.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomCode  string         `gorm:"size:32;index;not null"`
	Type      string         `gorm:"size:48;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}
