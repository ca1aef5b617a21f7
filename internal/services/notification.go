package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"studybud/internal/logging"
	"studybud/internal/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewNotificationService(db *gorm.DB, logger *slog.Logger) *NotificationService {
	return &NotificationService{db: db, logger: logging.Resolve(logger)}
}

// NotifyRoomMessage tells the room host that actor posted in their room.
// Failures are logged; they never fail the post.
func (s *NotificationService) NotifyRoomMessage(ctx context.Context, room *models.Room, actor *models.User) {
	roomID := room.ID
	n := models.Notification{
		UserID:  room.HostID,
		ActorID: &actor.ID,
		RoomID:  &roomID,
		Type:    models.NotificationTypeRoomMessage,
		Reason: fmt.Sprintf(`posted in <a href="/room/%d">%s</a>`,
			room.ID, html.EscapeString(room.Name)),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.logger.Error("create notification failed", "room_id", room.ID, "user_id", room.HostID, "error", err)
	}
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
