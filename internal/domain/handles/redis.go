package handles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// redisStore keeps each handle under <prefix>h:<id> and a per-job id set under <prefix>j:<job>.
// Both carry the handle TTL, so expiry needs no sweep.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed handle store and pings the server.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "image-sizer:handle:"
	}

	return &redisStore{
		client: client,
		ttl:    ttlOrDefault(cfg.TTL),
		prefix: prefix,
	}, nil
}

func (s *redisStore) handleKey(id string) string {
	return s.prefix + "h:" + id
}

func (s *redisStore) jobKey(jobID string) string {
	return s.prefix + "j:" + jobID
}

func (s *redisStore) Put(ctx context.Context, h Handle) (Handle, error) {
	if h.JobID == "" {
		return Handle{}, fmt.Errorf("job id required")
	}
	if h.ID == "" {
		h.ID = newID()
	}
	stamp(&h, s.ttl)

	data, err := sonic.Marshal(h)
	if err != nil {
		return Handle{}, err
	}
	expiry := time.Until(h.ExpiresAt)
	if expiry <= 0 {
		return Handle{}, fmt.Errorf("handle %s already expired", h.ID)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.handleKey(h.ID), data, expiry)
	pipe.SAdd(ctx, s.jobKey(h.JobID), h.ID)
	pipe.Expire(ctx, s.jobKey(h.JobID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return Handle{}, err
	}
	return h, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (Handle, error) {
	raw, err := s.client.Get(ctx, s.handleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Handle{}, err
	}
	var h Handle
	if err := sonic.Unmarshal(raw, &h); err != nil {
		return Handle{}, err
	}
	if h.Expired(time.Now()) {
		_ = s.Release(ctx, id)
		return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

func (s *redisStore) Release(ctx context.Context, id string) error {
	h, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.handleKey(id))
	pipe.SRem(ctx, s.jobKey(h.JobID), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) ReleaseJob(ctx context.Context, jobID string) (int, error) {
	ids, err := s.client.SMembers(ctx, s.jobKey(jobID)).Result()
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.handleKey(id))
	}
	keys = append(keys, s.jobKey(jobID))

	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	// the job set itself is not a handle
	released := int(deleted)
	if len(ids) > 0 {
		released--
	}
	return max(released, 0), nil
}

func (s *redisStore) List(ctx context.Context, jobID string) ([]Handle, error) {
	ids, err := s.client.SMembers(ctx, s.jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Handle{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.handleKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]Handle, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var h Handle
		if err := sonic.UnmarshalString(str, &h); err != nil {
			return nil, err
		}
		if h.Expired(now) {
			continue
		}
		h.Data = nil
		out = append(out, h)
	}
	sortHandles(out)
	return out, nil
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis expires keys via TTL.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	var cursor uint64
	total := 0
	pattern := s.prefix + "h:*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		total += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}
	return map[string]any{
		"type":        DriverRedis,
		"total":       total,
		"prefix":      strings.TrimSuffix(s.prefix, ":"),
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
