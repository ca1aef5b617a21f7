package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"studybud/internal/logging"
	"studybud/internal/models"
	"studybud/internal/utils"

	"gorm.io/gorm"
)

const minPasswordLength = 8

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type SettingsInput struct {
	Username string
	Bio      string
	Avatar   string

	// Both empty leaves the password alone.
	OldPassword string
	NewPassword string
}

// AccountService handles registration, login and profile settings. It never
// writes IsPaid; see SubscriptionService.
type AccountService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAccountService(db *gorm.DB, logger *slog.Logger) *AccountService {
	return &AccountService{db: db, logger: logging.Resolve(logger)}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// Authenticate checks credentials and returns the user.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UpdateSettings changes username, bio and avatar, and the password when
// one is given. Nothing is written unless every field is valid.
func (s *AccountService) UpdateSettings(ctx context.Context, user *models.User, in SettingsInput) error {
	if user == nil {
		return ErrAuthenticationRequired
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || len([]rune(username)) > 64 {
		return fmt.Errorf("%w: username must be 1-64 characters", ErrInvalidInput)
	}
	bio := strings.TrimSpace(in.Bio)
	if len([]rune(bio)) > 200 {
		return fmt.Errorf("%w: bio is limited to 200 characters", ErrInvalidInput)
	}
	avatar := user.Avatar
	if in.Avatar != "" {
		if !utils.IsAvatarChoice(in.Avatar) {
			return fmt.Errorf("%w: unknown avatar", ErrInvalidInput)
		}
		avatar = in.Avatar
	}

	updates := map[string]interface{}{
		"username": username,
		"bio":      bio,
		"avatar":   avatar,
	}
	var hash string
	if in.OldPassword != "" || in.NewPassword != "" {
		var err error
		if hash, err = newPasswordHash(user, in.OldPassword, in.NewPassword); err != nil {
			return err
		}
		updates["password"] = hash
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	user.Username = username
	user.Bio = bio
	user.Avatar = avatar
	if hash != "" {
		user.Password = hash
		s.logger.Info("password changed", "user_id", user.ID)
	}
	return nil
}

// newPasswordHash checks the current password and hashes the new one.
func newPasswordHash(user *models.User, oldPassword, newPassword string) (string, error) {
	if !utils.CheckPasswordHash(oldPassword, user.Password) {
		return "", ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
