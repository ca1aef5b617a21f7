package models

import (
	"time"
)

type Room struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	HostID       uint      `gorm:"not null;index" json:"host_id"`
	Host         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"host"`
	TopicID      uint      `gorm:"not null;index" json:"topic_id"`
	Topic        Topic     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"topic"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Participants []User    `gorm:"many2many:room_participants;" json:"participants"`
	Score        int       `gorm:"default:0" json:"score"` // sum of vote values, maintained by ScoreService
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	MessageCount int `gorm:"-" json:"message_count"`
}
