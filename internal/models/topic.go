package models

import (
	"time"
)

type Topic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	// Filled by listing queries, not stored.
	RoomCount int `gorm:"-" json:"room_count"`
}
