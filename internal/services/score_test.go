package services

import (
	"context"
	"testing"
	"time"

	"studybud/internal/models"
)

func roomScore(t *testing.T, f *fixture, id uint) int {
	t.Helper()
	var room models.Room
	if err := f.db.First(&room, id).Error; err != nil {
		t.Fatal(err)
	}
	return room.Score
}

func TestRecountSumsVotes(t *testing.T) {
	f := newFixture(t)
	scores := NewScoreService(f.db, time.Hour, nil)
	votes := NewVoteService(f.db, nil, nil)
	ctx := context.Background()
	third := createUser(t, f.db, "user3")

	votes.Vote(ctx, f.user, f.generalRoom.ID, DirectionUp)
	votes.Vote(ctx, f.other, f.generalRoom.ID, DirectionUp)
	votes.Vote(ctx, third, f.generalRoom.ID, DirectionDown)

	got, err := scores.Recount(ctx, f.generalRoom.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("Expected score 1, got %d", got)
	}
	if s := roomScore(t, f, f.generalRoom.ID); s != 1 {
		t.Errorf("Expected stored score 1, got %d", s)
	}

	empty, err := scores.Recount(ctx, f.jobsRoom.ID)
	if err != nil || empty != 0 {
		t.Errorf("Expected 0 for a room without votes, got %d, %v", empty, err)
	}
}

func TestScoreServiceFlushesOnShutdown(t *testing.T) {
	f := newFixture(t)
	// a long interval means only the shutdown flush can write
	scores := NewScoreService(f.db, time.Hour, nil)
	votes := NewVoteService(f.db, scores, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scores.Run(ctx)
		close(done)
	}()

	if _, err := votes.Vote(context.Background(), f.user, f.generalRoom.ID, DirectionUp); err != nil {
		t.Fatal(err)
	}
	// let Run pick the room off the queue before stopping it
	deadline := time.Now().Add(2 * time.Second)
	for len(scores.queue) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s := roomScore(t, f, f.generalRoom.ID); s != 1 {
		t.Errorf("Expected score 1 after flush, got %d", s)
	}
}

func TestScheduleUpdateDeduplicates(t *testing.T) {
	f := newFixture(t)
	scores := NewScoreService(f.db, time.Hour, nil)

	scores.ScheduleUpdate(f.generalRoom.ID)
	scores.ScheduleUpdate(f.generalRoom.ID)
	scores.ScheduleUpdate(f.jobsRoom.ID)

	if n := len(scores.queue); n != 2 {
		t.Errorf("Expected 2 queued rooms, got %d", n)
	}
}

func TestScoreServiceDrainsQueueOnShutdown(t *testing.T) {
	f := newFixture(t)
	scores := NewScoreService(f.db, time.Hour, nil)
	votes := NewVoteService(f.db, scores, nil)

	ctx := context.Background()
	votes.Vote(ctx, f.user, f.generalRoom.ID, DirectionUp)
	votes.Vote(ctx, f.other, f.generalRoom.ID, DirectionUp)
	f.setPaid(t, f.user, true)
	votes.Vote(ctx, f.user, f.jobsRoom.ID, DirectionDown)

	// stopped before it ever ran: everything is still buffered
	stopped, cancel := context.WithCancel(ctx)
	cancel()
	scores.Run(stopped)

	if s := roomScore(t, f, f.generalRoom.ID); s != 2 {
		t.Errorf("Expected general room score 2, got %d", s)
	}
	if s := roomScore(t, f, f.jobsRoom.ID); s != -1 {
		t.Errorf("Expected jobs room score -1, got %d", s)
	}
	if n := len(scores.queue); n != 0 {
		t.Errorf("Expected empty queue, got %d", n)
	}
}
