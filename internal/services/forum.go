package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"studybud/internal/logging"
	"studybud/internal/models"
	"studybud/internal/utils"

	"gorm.io/gorm"
)

const (
	SortRecent = "recent"
	SortHot    = "hot"

	topicsCacheKey = "topics:all"
	topicsCacheTTL = 10 * time.Minute
)

// RoomFilter narrows a room listing. Empty fields match everything.
type RoomFilter struct {
	TopicSlug string
	Query     string
	Sort      string
}

// RoomListing is the result of ListRooms. Topic is set when the listing was
// scoped by topic.
type RoomListing struct {
	Rooms []models.Room
	Topic *models.Topic
}

// RoomInput carries the editable room fields.
type RoomInput struct {
	TopicSlug   string
	Name        string
	Description string
}

// ProfileView is a user's public page as seen by a viewer.
type ProfileView struct {
	User     models.User
	Rooms    []models.Room
	Messages []models.Message
}

// ForumService implements rooms, messages and topics. Every read goes
// through the access gate in gate.go.
type ForumService struct {
	db            *gorm.DB
	notifications *NotificationService
	cache         *utils.GlobalCache
	logger        *slog.Logger
}

func NewForumService(db *gorm.DB, notifications *NotificationService, cache *utils.GlobalCache, logger *slog.Logger) *ForumService {
	if cache == nil {
		cache = utils.GetCache()
	}
	return &ForumService{
		db:            db,
		notifications: notifications,
		cache:         cache,
		logger:        logging.Resolve(logger),
	}
}

// findRoom loads a room with its topic and host.
func findRoom(ctx context.Context, db *gorm.DB, id uint) (*models.Room, error) {
	var room models.Room
	err := db.WithContext(ctx).Preload("Topic").Preload("Host").First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %d: %w", id, err)
	}
	return &room, nil
}

func (s *ForumService) findTopic(ctx context.Context, slug string) (*models.Topic, error) {
	var topic models.Topic
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load topic %s: %w", slug, err)
	}
	return &topic, nil
}

// ListRooms returns the rooms visible to user. A topic filter naming a topic
// the user may not browse fails with ErrAccessDenied, the same outcome as
// opening one of its rooms directly.
func (s *ForumService) ListRooms(ctx context.Context, user *models.User, f RoomFilter) (RoomListing, error) {
	var listing RoomListing

	q := s.db.WithContext(ctx).Joins("Topic").Preload("Host")

	if slug := strings.TrimSpace(f.TopicSlug); slug != "" {
		topic, err := s.findTopic(ctx, slug)
		if err != nil {
			return listing, err
		}
		if !CanViewTopic(user, *topic) {
			return listing, ErrAccessDenied
		}
		listing.Topic = topic
		q = q.Where("rooms.topic_id = ?", topic.ID)
	}

	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		pattern := "%" + term + "%"
		q = q.Where(`LOWER(rooms.name) LIKE ? OR LOWER(rooms.description) LIKE ? OR LOWER("Topic"."name") LIKE ?`,
			pattern, pattern, pattern)
	}

	var rooms []models.Room
	if err := q.Order("rooms.updated_at DESC, rooms.created_at DESC").Find(&rooms).Error; err != nil {
		return listing, fmt.Errorf("list rooms: %w", err)
	}

	rooms = FilterVisibleRooms(user, rooms)
	if err := s.fillMessageCounts(ctx, rooms); err != nil {
		return listing, err
	}
	if f.Sort == SortHot {
		if err := s.sortHot(ctx, rooms); err != nil {
			return listing, err
		}
	}

	listing.Rooms = rooms
	return listing, nil
}

func (s *ForumService) fillMessageCounts(ctx context.Context, rooms []models.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	ids := make([]uint, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}

	type countResult struct {
		RoomID uint
		Count  int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Select("room_id, COUNT(*) AS count").
		Where("room_id IN ?", ids).
		Group("room_id").
		Scan(&results).Error
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	counts := make(map[uint]int, len(results))
	for _, r := range results {
		counts[r.RoomID] = r.Count
	}
	for i := range rooms {
		rooms[i].MessageCount = counts[rooms[i].ID]
	}
	return nil
}

func (s *ForumService) sortHot(ctx context.Context, rooms []models.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	ids := make([]uint, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}

	type tally struct {
		RoomID uint
		Up     int
		Down   int
	}
	var tallies []tally
	err := s.db.WithContext(ctx).Model(&models.PostVote{}).
		Select("room_id, SUM(CASE WHEN value > 0 THEN 1 ELSE 0 END) AS up, SUM(CASE WHEN value < 0 THEN 1 ELSE 0 END) AS down").
		Where("room_id IN ?", ids).
		Group("room_id").
		Scan(&tallies).Error
	if err != nil {
		return fmt.Errorf("tally votes: %w", err)
	}

	byRoom := make(map[uint]tally, len(tallies))
	for _, t := range tallies {
		byRoom[t.RoomID] = t
	}
	hot := make(map[uint]float64, len(rooms))
	for _, r := range rooms {
		t := byRoom[r.ID]
		hot[r.ID] = utils.HotScore(r.UpdatedAt, t.Up, t.Down, r.MessageCount)
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return hot[rooms[i].ID] > hot[rooms[j].ID]
	})
	return nil
}

// GetRoom returns a room with its participants. ErrNotFound and
// ErrAccessDenied are distinct outcomes.
func (s *ForumService) GetRoom(ctx context.Context, user *models.User, id uint) (*models.Room, error) {
	room, err := findRoom(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := checkRoomAccess(user, room); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(room).Order("users.id ASC").Association("Participants").Find(&room.Participants); err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	return room, nil
}

// RoomMessages lists a room's messages oldest first. Callers check access
// through GetRoom first.
func (s *ForumService) RoomMessages(ctx context.Context, roomID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CreateRoom creates a room hosted by user.
func (s *ForumService) CreateRoom(ctx context.Context, user *models.User, in RoomInput) (*models.Room, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}
	topic, err := s.findTopic(ctx, strings.TrimSpace(in.TopicSlug))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown topic", ErrInvalidInput)
		}
		return nil, err
	}
	if !CanViewTopic(user, *topic) {
		return nil, ErrAccessDenied
	}

	room := models.Room{
		HostID:      user.ID,
		TopicID:     topic.ID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	room.Topic = *topic
	room.Host = *user

	s.logger.Info("room created", "room_id", room.ID, "host_id", user.ID, "topic", topic.Slug)
	return &room, nil
}

// UpdateRoom edits a room. Only the host may update it.
func (s *ForumService) UpdateRoom(ctx context.Context, user *models.User, id uint, in RoomInput) (*models.Room, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	room, err := findRoom(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if room.HostID != user.ID {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}

	topic := &room.Topic
	if slug := strings.TrimSpace(in.TopicSlug); slug != "" && slug != room.Topic.Slug {
		if topic, err = s.findTopic(ctx, slug); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown topic", ErrInvalidInput)
			}
			return nil, err
		}
		if !CanViewTopic(user, *topic) {
			return nil, ErrAccessDenied
		}
	}

	err = s.db.WithContext(ctx).Model(room).Updates(map[string]interface{}{
		"name":        name,
		"description": strings.TrimSpace(in.Description),
		"topic_id":    topic.ID,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	room.Name = name
	room.Description = strings.TrimSpace(in.Description)
	room.TopicID = topic.ID
	room.Topic = *topic
	return room, nil
}

// DeleteRoom removes a room with its messages, votes and participant links.
// Only the host may delete it.
func (s *ForumService) DeleteRoom(ctx context.Context, user *models.User, id uint) error {
	if user == nil {
		return ErrAuthenticationRequired
	}
	room, err := findRoom(ctx, s.db, id)
	if err != nil {
		return err
	}
	if room.HostID != user.ID {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(room).Association("Participants").Clear(); err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.PostVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(room).Error
	})
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	s.logger.Info("room deleted", "room_id", room.ID, "host_id", user.ID)
	return nil
}

// PostMessage appends a message to a room and adds the author to the
// room's participants if they are not there yet.
func (s *ForumService) PostMessage(ctx context.Context, user *models.User, roomID uint, body string) (*models.Message, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrInvalidInput)
	}
	room, err := findRoom(ctx, s.db, roomID)
	if err != nil {
		return nil, err
	}
	if err := checkRoomAccess(user, room); err != nil {
		return nil, err
	}

	msg := models.Message{RoomID: room.ID, UserID: user.ID, Body: body}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		// The join table's composite key makes a repeat append a no-op.
		if err := tx.Model(&models.Room{ID: room.ID}).Association("Participants").Append(user); err != nil {
			return err
		}
		return tx.Model(&models.Room{}).Where("id = ?", room.ID).UpdateColumn("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	msg.User = *user
	msg.Room = *room

	if s.notifications != nil && room.HostID != user.ID {
		s.notifications.NotifyRoomMessage(ctx, room, user)
	}
	return &msg, nil
}

// DeleteMessage removes a message. Only its author may delete it.
func (s *ForumService) DeleteMessage(ctx context.Context, user *models.User, id uint) (*models.Message, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	var msg models.Message
	err := s.db.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg.UserID != user.ID {
		return nil, ErrForbidden
	}
	if err := s.db.WithContext(ctx).Delete(&msg).Error; err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	return &msg, nil
}

// ListTopics returns every topic with the number of rooms in it. Topics are
// immutable, so the list itself is cached.
func (s *ForumService) ListTopics(ctx context.Context) ([]models.Topic, error) {
	cached, err := s.cache.GetOrLoad(topicsCacheKey, topicsCacheTTL, func() (interface{}, error) {
		var topics []models.Topic
		if err := s.db.WithContext(ctx).Order("id ASC").Find(&topics).Error; err != nil {
			return nil, fmt.Errorf("list topics: %w", err)
		}
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	base := cached.([]models.Topic)
	topics := make([]models.Topic, len(base))
	copy(topics, base)

	type countResult struct {
		TopicID uint
		Count   int
	}
	var results []countResult
	err = s.db.WithContext(ctx).Model(&models.Room{}).
		Select("topic_id, COUNT(*) AS count").
		Group("topic_id").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("count rooms: %w", err)
	}
	counts := make(map[uint]int, len(results))
	for _, r := range results {
		counts[r.TopicID] = r.Count
	}
	for i := range topics {
		topics[i].RoomCount = counts[topics[i].ID]
	}
	return topics, nil
}

// RecentActivity returns the newest messages in rooms user may view.
func (s *ForumService) RecentActivity(ctx context.Context, user *models.User, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var messages []models.Message
	err := s.db.WithContext(ctx).Preload("User").Preload("Room.Topic").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return visibleMessages(user, messages), nil
}

func visibleMessages(user *models.User, messages []models.Message) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for i := range messages {
		if CanView(user, &messages[i].Room) {
			out = append(out, messages[i])
		}
	}
	return out
}

// Profile builds the public profile of userID as seen by viewer.
func (s *ForumService) Profile(ctx context.Context, viewer *models.User, userID uint) (*ProfileView, error) {
	var view ProfileView
	err := s.db.WithContext(ctx).First(&view.User, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	var rooms []models.Room
	err = s.db.WithContext(ctx).Preload("Topic").Preload("Host").
		Where("host_id = ?", userID).
		Order("updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("list hosted rooms: %w", err)
	}
	view.Rooms = FilterVisibleRooms(viewer, rooms)
	if err := s.fillMessageCounts(ctx, view.Rooms); err != nil {
		return nil, err
	}

	var messages []models.Message
	err = s.db.WithContext(ctx).Preload("User").Preload("Room.Topic").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(20).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list user messages: %w", err)
	}
	view.Messages = visibleMessages(viewer, messages)
	return &view, nil
}
