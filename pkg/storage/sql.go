package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cofure/cofure/pkg/core"
)

// counterRow is the persisted form of a named counter.
type counterRow struct {
	Name  string `gorm:"primaryKey"`
	Value int
}

func (counterRow) TableName() string { return "counters" }

// signalRow is the persisted last-signal mark for a symbol.
type signalRow struct {
	Symbol string `gorm:"primaryKey"`
	At     time.Time
}

func (signalRow) TableName() string { return "signal_marks" }

// SQLStorage implements core.StateStorage using a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// FromSQLite creates a SQLite-backed storage at the given path
func FromSQLite(path string) (core.StateStorage, error) {
	return FromSQL(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// FromSQL creates a new SQL storage instance
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (core.StateStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&counterRow{}, &signalRow{})
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{
		db: db,
	}, nil
}

// IncrCounter adds delta to the named counter and returns the new value
func (s *SQLStorage) IncrCounter(name string, delta int) (int, error) {
	var row counterRow

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "name = ?", name)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read counter: %w", result.Error)
		}

		row.Name = name
		row.Value += delta

		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to store counter: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return row.Value, nil
}

// Counter returns the named counter, zero when never incremented
func (s *SQLStorage) Counter(name string) (int, error) {
	var row counterRow

	result := s.db.First(&row, "name = ?", name)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to read counter: %w", result.Error)
	}

	return row.Value, nil
}

// MarkSignal records the instant a signal was emitted for symbol
func (s *SQLStorage) MarkSignal(symbol string, at time.Time) error {
	row := signalRow{Symbol: symbol, At: at.UTC()}

	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to store signal mark: %w", err)
	}

	return nil
}

// LastSignal returns the last signal instant for symbol, ok=false when none
func (s *SQLStorage) LastSignal(symbol string) (time.Time, bool, error) {
	var row signalRow

	result := s.db.First(&row, "symbol = ?", symbol)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if result.Error != nil {
		return time.Time{}, false, fmt.Errorf("failed to read signal mark: %w", result.Error)
	}

	return row.At, true, nil
}

// Reset clears all counters and signal marks for a new day
func (s *SQLStorage) Reset() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&counterRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear counters: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&signalRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear signal marks: %w", err)
		}
		return nil
	})
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
