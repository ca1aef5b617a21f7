package db

import (
	"errors"
	"fmt"
	"log/slog"

	"studybud/internal/config"
	"studybud/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// DefaultTopics are seeded on first start. The jobs-referrals topic is the
// paywalled one.
var DefaultTopics = []models.Topic{
	{Slug: "general", Name: "General", Description: "Anything goes"},
	{Slug: "jobs-referrals", Name: "Jobs & Referrals", Description: "Openings, referrals and hiring threads for subscribers"},
	{Slug: "python", Name: "Python", Description: "Python study groups"},
	{Slug: "go", Name: "Go", Description: "Go study groups"},
	{Slug: "career", Name: "Career", Description: "Interviews, CVs and growth"},
}

// Init opens the configured database, migrates it, seeds topics and stores
// the handle in DB.
func Init(cfg config.Config, log *slog.Logger) error {
	gdb, err := Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	log.Info("database connection established", "driver", cfg.DBDriver)

	if err := Migrate(gdb); err != nil {
		return err
	}
	log.Info("database migration completed")

	created, err := SeedTopics(gdb)
	if err != nil {
		return err
	}
	if created > 0 {
		log.Info("initial topics created", "count", created)
	}

	DB = gdb
	return nil
}

// Open connects with the named driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if driver == "sqlite" {
		// A single connection keeps in-memory databases alive and avoids
		// SQLITE_BUSY between writers.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Room{},
		&models.Message{},
		&models.PostVote{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// SeedTopics inserts DefaultTopics that are missing by slug and reports how
// many were created.
func SeedTopics(gdb *gorm.DB) (int, error) {
	created := 0
	for _, topic := range DefaultTopics {
		var existing models.Topic
		err := gdb.Where("slug = ?", topic.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("lookup topic %s: %w", topic.Slug, err)
		}
		t := topic
		if err := gdb.Create(&t).Error; err != nil {
			return created, fmt.Errorf("seed topic %s: %w", topic.Slug, err)
		}
		created++
	}
	return created, nil
}
