package services

import (
	"fmt"
	"strings"
	"testing"

	"studybud/internal/db"
	"studybud/internal/models"

	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	user        *models.User
	other       *models.User
	jobsTopic   models.Topic
	general     models.Topic
	jobsRoom    models.Room
	generalRoom models.Room
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.SeedTopics(gdb); err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name string) *models.User {
	t.Helper()
	u := models.User{Username: name, Email: name + "@th-deg.de", Password: "x"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func topicBySlug(t *testing.T, gdb *gorm.DB, slug string) models.Topic {
	t.Helper()
	var topic models.Topic
	if err := gdb.Where("slug = ?", slug).First(&topic).Error; err != nil {
		t.Fatalf("topic %s: %v", slug, err)
	}
	return topic
}

func createRoom(t *testing.T, gdb *gorm.DB, host *models.User, topic models.Topic, name string) models.Room {
	t.Helper()
	r := models.Room{HostID: host.ID, TopicID: topic.ID, Name: name, Description: name}
	if err := gdb.Create(&r).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}
	r.Topic = topic
	return r
}

// newFixture mirrors the usual setup: one user hosting a jobs-referrals
// room and a general room.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := openTestDB(t)
	f := &fixture{db: gdb}
	f.user = createUser(t, gdb, "user1")
	f.other = createUser(t, gdb, "user2")
	f.jobsTopic = topicBySlug(t, gdb, PaywalledTopicSlug)
	f.general = topicBySlug(t, gdb, "general")
	f.jobsRoom = createRoom(t, gdb, f.user, f.jobsTopic, "Jobs Room")
	f.generalRoom = createRoom(t, gdb, f.user, f.general, "General Room")
	return f
}

func (f *fixture) setPaid(t *testing.T, u *models.User, paid bool) {
	t.Helper()
	if err := f.db.Model(&models.User{}).Where("id = ?", u.ID).Update("is_paid", paid).Error; err != nil {
		t.Fatal(err)
	}
	u.IsPaid = paid
}

func roomIDs(rooms []models.Room) map[uint]bool {
	ids := make(map[uint]bool, len(rooms))
	for _, r := range rooms {
		ids[r.ID] = true
	}
	return ids
}
