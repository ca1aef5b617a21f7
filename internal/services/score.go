package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"studybud/internal/logging"
	"studybud/internal/models"

	"gorm.io/gorm"
)

const (
	scoreQueueSize = 1000
	scoreBatchSize = 50
)

// ScoreService keeps Room.Score equal to the sum of the room's vote values.
// Updates are queued, de-duplicated and flushed in batches by Run.
type ScoreService struct {
	db       *gorm.DB
	logger   *slog.Logger
	interval time.Duration

	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex
}

func NewScoreService(db *gorm.DB, interval time.Duration, logger *slog.Logger) *ScoreService {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ScoreService{
		db:       db,
		logger:   logging.Resolve(logger),
		interval: interval,
		queue:    make(chan uint, scoreQueueSize),
		pending:  make(map[uint]bool),
	}
}

// ScheduleUpdate queues a recount for roomID. It never blocks; a room that is
// already queued is skipped.
func (s *ScoreService) ScheduleUpdate(roomID uint) {
	s.mu.Lock()
	if s.pending[roomID] {
		s.mu.Unlock()
		return
	}
	s.pending[roomID] = true
	s.mu.Unlock()

	select {
	case s.queue <- roomID:
	default:
		s.mu.Lock()
		delete(s.pending, roomID)
		s.mu.Unlock()
		s.logger.Warn("score queue full, skipping room", "room_id", roomID)
	}
}

// Run processes queued recounts until ctx is done, then flushes what it has
// collected and whatever is still queued.
func (s *ScoreService) Run(ctx context.Context) {
	batch := make([]uint, 0, scoreBatchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case roomID := <-s.queue:
			batch = append(batch, roomID)
			if len(batch) >= scoreBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			batch = s.drainQueue(batch)
			if len(batch) > 0 {
				s.processBatch(context.WithoutCancel(ctx), batch)
			}
			return
		}
	}
}

// drainQueue appends everything still buffered in the queue to batch.
func (s *ScoreService) drainQueue(batch []uint) []uint {
	for {
		select {
		case roomID := <-s.queue:
			batch = append(batch, roomID)
		default:
			return batch
		}
	}
}

func (s *ScoreService) processBatch(ctx context.Context, roomIDs []uint) {
	for _, roomID := range roomIDs {
		if _, err := s.Recount(ctx, roomID); err != nil {
			s.logger.Error("score recount failed", "room_id", roomID, "error", err)
		}

		s.mu.Lock()
		delete(s.pending, roomID)
		s.mu.Unlock()
	}
}

// Recount recomputes and stores a room's score synchronously.
func (s *ScoreService) Recount(ctx context.Context, roomID uint) (int, error) {
	var sum struct{ Total int }
	err := s.db.WithContext(ctx).Model(&models.PostVote{}).
		Select("COALESCE(SUM(value), 0) AS total").
		Where("room_id = ?", roomID).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum votes: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		UpdateColumn("score", sum.Total).Error
	if err != nil {
		return 0, fmt.Errorf("store score: %w", err)
	}
	return sum.Total, nil
}
