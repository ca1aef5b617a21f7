package services

import (
	"context"
	"errors"
	"testing"
)

func TestNotificationReadAndDeleteAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	forum, notifications := newTestForum(t, f)
	ctx := context.Background()

	if _, err := forum.PostMessage(ctx, f.other, f.generalRoom.ID, "ping"); err != nil {
		t.Fatal(err)
	}
	list, err := notifications.List(ctx, f.user.ID, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("Expected one notification, got %d (%v)", len(list), err)
	}
	id := list[0].ID

	if err := notifications.MarkRead(ctx, f.other.ID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user's notification, got %v", err)
	}
	if err := notifications.MarkRead(ctx, f.user.ID, id); err != nil {
		t.Fatal(err)
	}
	if n, _ := notifications.UnreadCount(ctx, f.user.ID); n != 0 {
		t.Errorf("Expected 0 unread, got %d", n)
	}

	if err := notifications.Delete(ctx, f.other.ID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := notifications.Delete(ctx, f.user.ID, id); err != nil {
		t.Fatal(err)
	}
	if list, _ := notifications.List(ctx, f.user.ID, 0); len(list) != 0 {
		t.Errorf("Expected empty list after delete, got %d", len(list))
	}
}
