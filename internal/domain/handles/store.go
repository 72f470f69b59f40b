// Package handles keeps rendered outputs addressable until their owner releases them.
package handles

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, released or expired handles.
var ErrNotFound = errors.New("handle not found")

// Handle is one rendered output owned by a job.
type Handle struct {
	ID          string    `json:"id"`
	JobID       string    `json:"jobId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"data,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

func (h Handle) Expired(now time.Time) bool {
	return !h.ExpiresAt.IsZero() && now.After(h.ExpiresAt)
}

// Store holds handles. Release and ReleaseJob are idempotent.
type Store interface {
	Put(ctx context.Context, h Handle) (Handle, error)
	Get(ctx context.Context, id string) (Handle, error)
	Release(ctx context.Context, id string) error
	ReleaseJob(ctx context.Context, jobID string) (int, error)
	// List returns the live handles of a job without their data, oldest first.
	List(ctx context.Context, jobID string) ([]Handle, error)
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	SQLite *SQLiteConfig
	Memory *MemoryConfig
}

type MemoryConfig struct {
	GCInterval time.Duration
}

type SQLiteConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const defaultTTL = 30 * time.Minute

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultTTL
	}
	return ttl
}

// stamp fills the id-independent bookkeeping fields.
func stamp(h *Handle, ttl time.Duration) {
	now := time.Now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	if h.ExpiresAt.IsZero() && ttl > 0 {
		h.ExpiresAt = h.CreatedAt.Add(ttl)
	}
}
