package services

import (
	"testing"

	"studybud/internal/models"
)

func gateRooms() []models.Room {
	jobs := models.Topic{ID: 1, Slug: PaywalledTopicSlug, Name: "Jobs & Referrals"}
	general := models.Topic{ID: 2, Slug: "general", Name: "General"}
	python := models.Topic{ID: 3, Slug: "python", Name: "Python"}
	return []models.Room{
		{ID: 10, TopicID: 2, Topic: general},
		{ID: 11, TopicID: 1, Topic: jobs},
		{ID: 12, TopicID: 3, Topic: python},
		{ID: 13, TopicID: 1, Topic: jobs},
	}
}

func TestCanViewUnpaidNeverSeesPaywalledRooms(t *testing.T) {
	unpaid := &models.User{ID: 1, IsPaid: false}
	for _, room := range gateRooms() {
		r := room
		want := r.Topic.Slug != PaywalledTopicSlug
		if got := CanView(unpaid, &r); got != want {
			t.Errorf("CanView(unpaid, room %d/%s) = %v, want %v", r.ID, r.Topic.Slug, got, want)
		}
	}
}

func TestCanViewPaidSeesEverything(t *testing.T) {
	paid := &models.User{ID: 1, IsPaid: true}
	for _, room := range gateRooms() {
		r := room
		if !CanView(paid, &r) {
			t.Errorf("paid user should see room %d (%s)", r.ID, r.Topic.Slug)
		}
	}
}

func TestCanViewNilUserIsUnpaid(t *testing.T) {
	rooms := gateRooms()
	if CanView(nil, &rooms[1]) {
		t.Error("anonymous user must not see paywalled room")
	}
	if !CanView(nil, &rooms[0]) {
		t.Error("anonymous user should see general room")
	}
}

func TestCanViewFailsClosedWithoutTopic(t *testing.T) {
	paid := &models.User{IsPaid: true}
	if CanView(paid, &models.Room{ID: 1, TopicID: 4}) {
		t.Error("room without loaded topic must not be visible")
	}
	if CanView(paid, nil) {
		t.Error("nil room must not be visible")
	}
}

func TestFilterVisibleRoomsPreservesOrder(t *testing.T) {
	rooms := gateRooms()

	got := FilterVisibleRooms(&models.User{IsPaid: false}, rooms)
	want := []uint{10, 12}
	if len(got) != len(want) {
		t.Fatalf("Expected %d rooms, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected room %d, got %d", i, id, got[i].ID)
		}
	}

	all := FilterVisibleRooms(&models.User{IsPaid: true}, rooms)
	for i := range rooms {
		if all[i].ID != rooms[i].ID {
			t.Errorf("paid filter changed order at %d", i)
		}
	}
}

func TestCanViewTopicMatchesRoomRule(t *testing.T) {
	jobs := models.Topic{Slug: PaywalledTopicSlug}
	for _, paid := range []bool{false, true} {
		u := &models.User{IsPaid: paid}
		room := models.Room{Topic: jobs}
		if CanViewTopic(u, jobs) != CanView(u, &room) {
			t.Errorf("topic and room rule disagree for paid=%v", paid)
		}
	}
}
