package persistence

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// PgAdvisoryLocker serializes scheduled runs across replicas using
// PostgreSQL session advisory locks keyed by hashtext(name).
//
// On non-postgres dialects (the in-memory SQLite used by tests) it
// degrades to a process-local mutex per name, which preserves the
// single-process semantics the tests exercise.
type PgAdvisoryLocker struct {
	db *gorm.DB

	mu    sync.Mutex
	local map[string]bool
}

// NewPgAdvisoryLocker creates a new advisory locker
func NewPgAdvisoryLocker(db *gorm.DB) *PgAdvisoryLocker {
	return &PgAdvisoryLocker{db: db, local: make(map[string]bool)}
}

func (l *PgAdvisoryLocker) isPostgres() bool {
	return l.db.Dialector.Name() == "postgres"
}

// TryLock attempts to acquire the named lock without blocking
func (l *PgAdvisoryLocker) TryLock(ctx context.Context, name string) (bool, error) {
	if !l.isPostgres() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.local[name] {
			return false, nil
		}
		l.local[name] = true
		return true, nil
	}

	var acquired bool
	err := l.db.WithContext(ctx).
		Raw("SELECT pg_try_advisory_lock(hashtext(?))", name).
		Scan(&acquired).Error
	if err != nil {
		return false, fmt.Errorf("failed to acquire advisory lock %q: %w", name, err)
	}
	return acquired, nil
}

// Unlock releases the named lock
func (l *PgAdvisoryLocker) Unlock(ctx context.Context, name string) error {
	if !l.isPostgres() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.local, name)
		return nil
	}

	var released bool
	err := l.db.WithContext(ctx).
		Raw("SELECT pg_advisory_unlock(hashtext(?))", name).
		Scan(&released).Error
	if err != nil {
		return fmt.Errorf("failed to release advisory lock %q: %w", name, err)
	}
	return nil
}
