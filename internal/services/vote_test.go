package services

import (
	"context"
	"errors"
	"testing"

	"studybud/internal/models"

	"gorm.io/gorm"
)

func TestApplyVote(t *testing.T) {
	up := &models.PostVote{Value: 1}
	down := &models.PostVote{Value: -1}

	tests := []struct {
		name     string
		existing *models.PostVote
		dir      Direction
		want     VoteOutcome
	}{
		{"no vote up", nil, DirectionUp, VoteOutcome{Action: VoteCreate, Value: 1}},
		{"no vote down", nil, DirectionDown, VoteOutcome{Action: VoteCreate, Value: -1}},
		{"up then up", up, DirectionUp, VoteOutcome{Action: VoteDelete}},
		{"down then down", down, DirectionDown, VoteOutcome{Action: VoteDelete}},
		{"up then down", up, DirectionDown, VoteOutcome{Action: VoteFlip, Value: -1}},
		{"down then up", down, DirectionUp, VoteOutcome{Action: VoteFlip, Value: 1}},
		{"zero row repaired", &models.PostVote{Value: 0}, DirectionUp, VoteOutcome{Action: VoteFlip, Value: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyVote(tt.existing, tt.dir); got != tt.want {
				t.Errorf("ApplyVote = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// stored replays an outcome onto a nullable vote.
func stored(prev *models.PostVote, o VoteOutcome) *models.PostVote {
	switch o.Action {
	case VoteCreate, VoteFlip:
		return &models.PostVote{Value: o.Value}
	default:
		return nil
	}
}

func TestApplyVoteSequences(t *testing.T) {
	// up, up returns to the neutral state
	state := stored(nil, ApplyVote(nil, DirectionUp))
	second := ApplyVote(state, DirectionUp)
	if second.Action != VoteDelete || stored(state, second) != nil {
		t.Errorf("up twice should delete, got %+v", second)
	}

	// up, down, down
	state = stored(nil, ApplyVote(nil, DirectionUp))
	flip := ApplyVote(state, DirectionDown)
	if flip != (VoteOutcome{Action: VoteFlip, Value: -1}) {
		t.Fatalf("Expected Flip(-1), got %+v", flip)
	}
	state = stored(state, flip)
	if got := ApplyVote(state, DirectionDown); got.Action != VoteDelete {
		t.Errorf("down after flip to down should delete, got %+v", got)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("up"); err != nil || d.Value() != 1 {
		t.Errorf("up: %v %v", d, err)
	}
	if d, err := ParseDirection("down"); err != nil || d.Value() != -1 {
		t.Errorf("down: %v %v", d, err)
	}
	if _, err := ParseDirection("sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func countVotes(t *testing.T, gdb *gorm.DB, userID, roomID uint) []models.PostVote {
	t.Helper()
	var votes []models.PostVote
	if err := gdb.Where("user_id = ? AND room_id = ?", userID, roomID).Find(&votes).Error; err != nil {
		t.Fatal(err)
	}
	return votes
}

func TestVoteToggleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewVoteService(f.db, nil, nil)

	if _, err := svc.Vote(ctx, f.user, f.generalRoom.ID, DirectionUp); err != nil {
		t.Fatalf("vote up: %v", err)
	}
	votes := countVotes(t, f.db, f.user.ID, f.generalRoom.ID)
	if len(votes) != 1 || votes[0].Value != 1 {
		t.Fatalf("Expected one +1 vote, got %+v", votes)
	}

	out, err := svc.Vote(ctx, f.user, f.generalRoom.ID, DirectionUp)
	if err != nil {
		t.Fatalf("vote up again: %v", err)
	}
	if out.Action != VoteDelete {
		t.Errorf("Expected delete, got %s", out.Action)
	}
	if votes := countVotes(t, f.db, f.user.ID, f.generalRoom.ID); len(votes) != 0 {
		t.Fatalf("Expected no votes, got %+v", votes)
	}

	if _, err := svc.Vote(ctx, f.user, f.generalRoom.ID, DirectionDown); err != nil {
		t.Fatalf("vote down: %v", err)
	}
	votes = countVotes(t, f.db, f.user.ID, f.generalRoom.ID)
	if len(votes) != 1 || votes[0].Value != -1 {
		t.Fatalf("Expected one -1 vote, got %+v", votes)
	}
}

func TestVoteFlipKeepsRowIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewVoteService(f.db, nil, nil)

	if _, err := svc.Vote(ctx, f.user, f.generalRoom.ID, DirectionUp); err != nil {
		t.Fatal(err)
	}
	before := countVotes(t, f.db, f.user.ID, f.generalRoom.ID)

	out, err := svc.Vote(ctx, f.user, f.generalRoom.ID, DirectionDown)
	if err != nil {
		t.Fatal(err)
	}
	if out != (VoteOutcome{Action: VoteFlip, Value: -1}) {
		t.Errorf("Expected Flip(-1), got %+v", out)
	}
	after := countVotes(t, f.db, f.user.ID, f.generalRoom.ID)
	if len(after) != 1 || after[0].ID != before[0].ID || after[0].Value != -1 {
		t.Errorf("flip should update row %d in place, got %+v", before[0].ID, after)
	}

	if v, err := svc.Current(ctx, f.user.ID, f.generalRoom.ID); err != nil || v != -1 {
		t.Errorf("Current = %d, %v", v, err)
	}
}

func TestVoteRespectsGateAndMissingRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewVoteService(f.db, nil, nil)

	if _, err := svc.Vote(ctx, f.other, f.jobsRoom.ID, DirectionUp); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.Vote(ctx, f.other, 9999, DirectionUp); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Vote(ctx, nil, f.generalRoom.ID, DirectionUp); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("Expected ErrAuthenticationRequired, got %v", err)
	}
}

// injectRivalVote inserts a competing row right before the vote insert, the
// way a concurrent request would.
func injectRivalVote(t *testing.T, gdb *gorm.DB, times *int) {
	t.Helper()
	err := gdb.Callback().Create().Before("gorm:create").Register("test:rival_vote", func(tx *gorm.DB) {
		vote, ok := tx.Statement.Dest.(*models.PostVote)
		if !ok || *times == 0 {
			return
		}
		*times--
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO post_votes (user_id, room_id, value, created_at, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
				vote.UserID, vote.RoomID, vote.Value)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestVoteRetriesOnceAfterUniqueViolation(t *testing.T) {
	f := newFixture(t)
	rivals := 1
	injectRivalVote(t, f.db, &rivals)
	svc := NewVoteService(f.db, nil, nil)

	out, err := svc.Vote(context.Background(), f.user, f.generalRoom.ID, DirectionUp)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if out.Action != VoteCreate {
		t.Errorf("Expected create on retry, got %s", out.Action)
	}
	if rivals != 0 {
		t.Errorf("rival insert did not run")
	}
	if votes := countVotes(t, f.db, f.user.ID, f.generalRoom.ID); len(votes) != 1 {
		t.Errorf("Expected exactly one vote row, got %d", len(votes))
	}
}

func TestVoteSurfacesConflictAfterSecondCollision(t *testing.T) {
	f := newFixture(t)
	rivals := 2
	injectRivalVote(t, f.db, &rivals)
	svc := NewVoteService(f.db, nil, nil)

	_, err := svc.Vote(context.Background(), f.user, f.generalRoom.ID, DirectionUp)
	if !errors.Is(err, ErrConflictRetry) {
		t.Fatalf("Expected ErrConflictRetry, got %v", err)
	}
	if votes := countVotes(t, f.db, f.user.ID, f.generalRoom.ID); len(votes) != 0 {
		t.Errorf("failed attempts must roll back, got %d rows", len(votes))
	}
}

func TestVoteTally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewVoteService(f.db, nil, nil)

	svc.Vote(ctx, f.user, f.generalRoom.ID, DirectionUp)
	svc.Vote(ctx, f.other, f.generalRoom.ID, DirectionDown)

	up, down, err := svc.Tally(ctx, f.generalRoom.ID)
	if err != nil {
		t.Fatal(err)
	}
	if up != 1 || down != 1 {
		t.Errorf("Expected 1 up / 1 down, got %d / %d", up, down)
	}
}
