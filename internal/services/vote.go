package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"studybud/internal/logging"
	"studybud/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Direction is the requested vote direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: vote direction %q", ErrInvalidInput, s)
}

// Value maps up to +1 and down to -1.
func (d Direction) Value() int {
	if d == DirectionUp {
		return 1
	}
	return -1
}

func (d Direction) state() voteState {
	if d == DirectionUp {
		return voteUp
	}
	return voteDown
}

// voteState is the decoded form of a nullable signed vote row.
type voteState int

const (
	voteNone voteState = iota
	voteUp
	voteDown
)

func stateOf(v *models.PostVote) voteState {
	switch {
	case v == nil:
		return voteNone
	case v.Value > 0:
		return voteUp
	case v.Value < 0:
		return voteDown
	default:
		return voteNone
	}
}

type VoteAction int

const (
	VoteCreate VoteAction = iota + 1
	VoteFlip
	VoteDelete
)

func (a VoteAction) String() string {
	switch a {
	case VoteCreate:
		return "create"
	case VoteFlip:
		return "flip"
	case VoteDelete:
		return "delete"
	}
	return "unknown"
}

// VoteOutcome is the write ApplyVote decided on. Value is the value to store
// for Create and Flip and zero for Delete.
type VoteOutcome struct {
	Action VoteAction
	Value  int
}

// ApplyVote computes the next vote state from the stored vote (nil when the
// user has not voted) and the requested direction. Repeating the stored
// direction removes the vote; the opposite direction flips it in place.
func ApplyVote(existing *models.PostVote, dir Direction) VoteOutcome {
	want := dir.Value()
	switch stateOf(existing) {
	case voteNone:
		if existing != nil {
			// zero-valued row; repair it in place
			return VoteOutcome{Action: VoteFlip, Value: want}
		}
		return VoteOutcome{Action: VoteCreate, Value: want}
	case dir.state():
		return VoteOutcome{Action: VoteDelete}
	default:
		return VoteOutcome{Action: VoteFlip, Value: want}
	}
}

// VoteService persists vote toggles.
type VoteService struct {
	db     *gorm.DB
	scores *ScoreService
	logger *slog.Logger
}

// NewVoteService builds a VoteService. scores may be nil, in which case room
// tallies are not refreshed.
func NewVoteService(db *gorm.DB, scores *ScoreService, logger *slog.Logger) *VoteService {
	return &VoteService{db: db, scores: scores, logger: logging.Resolve(logger)}
}

// voteAttempts bounds the read-modify-write loop: one try plus one retry
// after a unique-index collision.
const voteAttempts = 2

// Vote toggles user's vote on a room. The room must be visible to the user.
func (s *VoteService) Vote(ctx context.Context, user *models.User, roomID uint, dir Direction) (VoteOutcome, error) {
	if user == nil {
		return VoteOutcome{}, ErrAuthenticationRequired
	}
	room, err := findRoom(ctx, s.db, roomID)
	if err != nil {
		return VoteOutcome{}, err
	}
	if err := checkRoomAccess(user, room); err != nil {
		return VoteOutcome{}, err
	}

	for attempt := 1; attempt <= voteAttempts; attempt++ {
		outcome, err := s.toggle(ctx, user.ID, roomID, dir)
		if err == nil {
			s.logger.Info("vote applied",
				"user_id", user.ID,
				"room_id", roomID,
				"direction", string(dir),
				"action", outcome.Action.String(),
			)
			if s.scores != nil {
				s.scores.ScheduleUpdate(roomID)
			}
			return outcome, nil
		}
		if !isUniqueViolation(err) {
			return VoteOutcome{}, fmt.Errorf("apply vote: %w", err)
		}
		s.logger.Warn("vote collided with concurrent write",
			"user_id", user.ID,
			"room_id", roomID,
			"attempt", attempt,
		)
	}
	return VoteOutcome{}, ErrConflictRetry
}

func (s *VoteService) toggle(ctx context.Context, userID, roomID uint, dir Direction) (VoteOutcome, error) {
	var outcome VoteOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PostVote
		var current *models.PostVote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND room_id = ?", userID, roomID).
			First(&existing).Error
		switch {
		case err == nil:
			current = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		outcome = ApplyVote(current, dir)
		switch outcome.Action {
		case VoteCreate:
			return tx.Create(&models.PostVote{UserID: userID, RoomID: roomID, Value: outcome.Value}).Error
		case VoteFlip:
			return tx.Model(current).Update("value", outcome.Value).Error
		case VoteDelete:
			return tx.Delete(current).Error
		}
		return nil
	})
	return outcome, err
}

// Current returns the user's stored vote value on a room, 0 when none.
func (s *VoteService) Current(ctx context.Context, userID, roomID uint) (int, error) {
	var vote models.PostVote
	err := s.db.WithContext(ctx).Where("user_id = ? AND room_id = ?", userID, roomID).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return vote.Value, nil
}

// Tally counts up and down votes on a room.
func (s *VoteService) Tally(ctx context.Context, roomID uint) (up, down int64, err error) {
	q := s.db.WithContext(ctx).Model(&models.PostVote{})
	if err = q.Where("room_id = ? AND value > 0", roomID).Count(&up).Error; err != nil {
		return 0, 0, err
	}
	q = s.db.WithContext(ctx).Model(&models.PostVote{})
	if err = q.Where("room_id = ? AND value < 0", roomID).Count(&down).Error; err != nil {
		return 0, 0, err
	}
	return up, down, nil
}
