package models

import (
	"time"
)

// PostVote is a user's single vote on a room. A missing row is the neutral
// state; stored values are only +1 or -1.
type PostVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_room_vote" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	RoomID    uint      `gorm:"not null;uniqueIndex:idx_user_room_vote;index" json:"room_id"`
	Room      Room      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
