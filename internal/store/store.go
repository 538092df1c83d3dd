package store

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tempus/internal/model"
)

// Store bundles the repositories over one gorm connection.
type Store struct {
	DB         *gorm.DB
	Posts      *Posts
	Campaigns  *Campaigns
	Strategies *Strategies
	Targets    *Targets
	Quota      *QuotaCounters
	Logs       *EngagementLogs
}

// Open opens (or creates) the sqlite database at path and migrates the schema.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.Post{},
		&model.ExecutionLog{},
		&model.Campaign{},
		&model.Strategy{},
		&model.EngagementTarget{},
		&model.EngagementLogEntry{},
		&model.QuotaCounter{},
	); err != nil {
		return nil, err
	}
	return &Store{
		DB:         db,
		Posts:      &Posts{db: db},
		Campaigns:  &Campaigns{db: db},
		Strategies: &Strategies{db: db},
		Targets:    &Targets{db: db},
		Quota:      &QuotaCounters{db: db},
		Logs:       &EngagementLogs{db: db},
	}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
