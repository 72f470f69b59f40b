package handles

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	items       map[string]Handle
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-process handle store with a background expiry sweep.
func NewMemory(cfg Config) Store {
	cleanup := time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]Handle),
		ttl:         ttlOrDefault(cfg.TTL),
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Put(_ context.Context, h Handle) (Handle, error) {
	if h.JobID == "" {
		return Handle{}, fmt.Errorf("job id required")
	}
	if h.ID == "" {
		h.ID = newID()
	}
	stamp(&h, s.ttl)

	s.mutex.Lock()
	s.items[h.ID] = h
	s.mutex.Unlock()
	return h, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Handle, error) {
	s.mutex.RLock()
	h, ok := s.items[id]
	s.mutex.RUnlock()
	if !ok || h.Expired(time.Now()) {
		return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

func (s *memoryStore) Release(_ context.Context, id string) error {
	s.mutex.Lock()
	delete(s.items, id)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) ReleaseJob(_ context.Context, jobID string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	released := 0
	for id, h := range s.items {
		if h.JobID == jobID {
			delete(s.items, id)
			released++
		}
	}
	return released, nil
}

func (s *memoryStore) List(_ context.Context, jobID string) ([]Handle, error) {
	now := time.Now()
	s.mutex.RLock()
	out := make([]Handle, 0)
	for _, h := range s.items {
		if h.JobID == jobID && !h.Expired(now) {
			h.Data = nil
			out = append(out, h)
		}
	}
	s.mutex.RUnlock()

	sortHandles(out)
	return out, nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for id, h := range s.items {
		if h.Expired(now) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	var bytes int64
	for _, h := range s.items {
		if !h.Expired(now) {
			active++
			bytes += int64(len(h.Data))
		}
	}
	return map[string]any{
		"type":        DriverMemory,
		"total":       len(s.items),
		"active":      active,
		"bytes":       bytes,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}

func sortHandles(hs []Handle) {
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].CreatedAt.Equal(hs[j].CreatedAt) {
			return hs[i].ID < hs[j].ID
		}
		return hs[i].CreatedAt.Before(hs[j].CreatedAt)
	})
}
