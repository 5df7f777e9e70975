package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Locker hands out short-lived Redis locks for arbitrary keys. It never
// touches the database pool, so holding a key cannot starve the queries made
// under it.
type Locker struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewLocker creates a Locker backed by redisClient, which must not be nil.
func NewLocker(redisClient *redis.Client, ttl time.Duration) *Locker {
	return &Locker{redis: redisClient, ttl: ttl}
}

// TryLock makes a single non-blocking attempt to lock key. When it returns
// true the caller must invoke the returned release func.
func (l *Locker) TryLock(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	lock := NewRedisLock(l.redis, key, l.ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock.Release, true, nil
}

// =============================================================================
// PostgreSQL Advisory Lock (process-wide jobs such as migrations)
// =============================================================================
// pg_try_advisory_lock / pg_advisory_unlock are session-scoped, so the lock
// pins one pooled connection between Acquire and Release. The lock is
// released automatically if that connection drops. Callers must leave the
// pool room for whatever they run while holding it.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock. Returns true if successful.
// Uses pg_try_advisory_lock which returns immediately (non-blocking).
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns its connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
