// Package storage persists the bot's day state: cycle counters and
// per-symbol signal cooldown marks.
package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/cofure/cofure/pkg/core"
)

const (
	counterPrefix = "counter:"
	signalPrefix  = "signal:"
)

// BuntStorage implements core.StateStorage using BuntDB.
type BuntStorage struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory storage
func FromMemory() (core.StateStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (core.StateStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string) (core.StateStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	return &BuntStorage{
		db: db,
	}, nil
}

// IncrCounter adds delta to the named counter and returns the new value
func (b *BuntStorage) IncrCounter(name string, delta int) (int, error) {
	var value int

	err := b.db.Update(func(tx *buntdb.Tx) error {
		key := counterPrefix + name

		current, err := tx.Get(key)
		if err != nil && err != buntdb.ErrNotFound {
			return fmt.Errorf("failed to read counter: %w", err)
		}
		if current != "" {
			value, err = strconv.Atoi(current)
			if err != nil {
				return fmt.Errorf("corrupt counter %q: %w", name, err)
			}
		}

		value += delta
		_, _, err = tx.Set(key, strconv.Itoa(value), nil)
		if err != nil {
			return fmt.Errorf("failed to store counter: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return value, nil
}

// Counter returns the named counter, zero when never incremented
func (b *BuntStorage) Counter(name string) (int, error) {
	var value int

	err := b.db.View(func(tx *buntdb.Tx) error {
		current, err := tx.Get(counterPrefix + name)
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read counter: %w", err)
		}

		value, err = strconv.Atoi(current)
		if err != nil {
			return fmt.Errorf("corrupt counter %q: %w", name, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return value, nil
}

// MarkSignal records the instant a signal was emitted for symbol
func (b *BuntStorage) MarkSignal(symbol string, at time.Time) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(signalPrefix+symbol, at.UTC().Format(time.RFC3339), nil)
		if err != nil {
			return fmt.Errorf("failed to store signal mark: %w", err)
		}
		return nil
	})
}

// LastSignal returns the last signal instant for symbol, ok=false when none
func (b *BuntStorage) LastSignal(symbol string) (time.Time, bool, error) {
	var (
		at time.Time
		ok bool
	)

	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(signalPrefix + symbol)
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read signal mark: %w", err)
		}

		at, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Errorf("corrupt signal mark %q: %w", symbol, err)
		}

		ok = true
		return nil
	})
	if err != nil {
		return time.Time{}, false, err
	}

	return at, ok, nil
}

// Reset clears all counters and signal marks for a new day
func (b *BuntStorage) Reset() error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		err := tx.AscendKeys("*", func(key, _ string) bool {
			if strings.HasPrefix(key, counterPrefix) || strings.HasPrefix(key, signalPrefix) {
				keys = append(keys, key)
			}
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		for _, key := range keys {
			if _, err := tx.Delete(key); err != nil {
				return fmt.Errorf("failed to delete %q: %w", key, err)
			}
		}

		return nil
	})
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
