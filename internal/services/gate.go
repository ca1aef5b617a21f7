package services

import (
	"studybud/internal/models"
)

// PaywalledTopicSlug is the topic whose rooms require a paid subscription.
const PaywalledTopicSlug = "jobs-referrals"

// topicVisible is the single visibility rule every read path goes through.
func topicVisible(isPaid bool, slug string) bool {
	if slug == "" {
		// topic not loaded; fail closed
		return false
	}
	return slug != PaywalledTopicSlug || isPaid
}

func isPaid(user *models.User) bool {
	return user != nil && user.IsPaid
}

// CanViewTopic reports whether user may browse rooms of topic.
// A nil user is treated as unpaid.
func CanViewTopic(user *models.User, topic models.Topic) bool {
	return topicVisible(isPaid(user), topic.Slug)
}

// CanView reports whether user may view room. The room's Topic must be
// loaded; a room without one is never visible.
func CanView(user *models.User, room *models.Room) bool {
	if room == nil {
		return false
	}
	return CanViewTopic(user, room.Topic)
}

// FilterVisibleRooms returns the rooms user may view, in input order.
func FilterVisibleRooms(user *models.User, rooms []models.Room) []models.Room {
	visible := make([]models.Room, 0, len(rooms))
	for i := range rooms {
		if CanView(user, &rooms[i]) {
			visible = append(visible, rooms[i])
		}
	}
	return visible
}

// checkRoomAccess maps the gate to ErrAccessDenied.
func checkRoomAccess(user *models.User, room *models.Room) error {
	if !CanView(user, room) {
		return ErrAccessDenied
	}
	return nil
}
