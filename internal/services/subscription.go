package services

import (
	"context"
	"fmt"
	"log/slog"

	"studybud/internal/logging"
	"studybud/internal/models"

	"gorm.io/gorm"
)

// SubscriptionService flips the demo paid flag. It is the only writer of
// User.IsPaid; there is no billing behind it.
type SubscriptionService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewSubscriptionService(db *gorm.DB, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, logger: logging.Resolve(logger)}
}

// Subscribe marks user as paid. Calling it on a paid user is a no-op.
func (s *SubscriptionService) Subscribe(ctx context.Context, user *models.User) error {
	return s.setPaid(ctx, user, true)
}

// Unsubscribe clears the paid flag. Calling it on an unpaid user is a no-op.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, user *models.User) error {
	return s.setPaid(ctx, user, false)
}

func (s *SubscriptionService) setPaid(ctx context.Context, user *models.User, paid bool) error {
	if user == nil {
		return ErrAuthenticationRequired
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("is_paid", paid)
	if res.Error != nil {
		return fmt.Errorf("update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	was := user.IsPaid
	user.IsPaid = paid
	if was != paid {
		s.logger.Info("demo subscription changed", "user_id", user.ID, "is_paid", paid)
	}
	return nil
}
