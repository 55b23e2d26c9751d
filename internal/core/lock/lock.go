// Package lock provides single-owner leases keyed by string, used to keep a
// job on exactly one worker at a time.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when another owner holds the key.
var ErrNotAcquired = errors.New("lock: held by another owner")

// Locker hands out expiring leases.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	Key   string
	Token string

	release func(ctx context.Context) error
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.release == nil {
		return nil
	}
	fn := l.release
	l.release = nil
	return fn(ctx)
}

// JobKey is the lock key guarding one ingestion job.
func JobKey(jobID string) string { return "job:" + jobID }
