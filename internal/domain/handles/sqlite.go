package handles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// handleRecord maps the output_handles table created by the storage migrations.
// Times are stored in UTC so that SQL comparisons on them are ordered.
type handleRecord struct {
	ID          string `gorm:"primaryKey"`
	JobID       string `gorm:"index"`
	Filename    string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

func (handleRecord) TableName() string {
	return "output_handles"
}

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed handle store on an already migrated database.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: ttlOrDefault(cfg.TTL),
	}, nil
}

func (s *sqliteStore) Put(ctx context.Context, h Handle) (Handle, error) {
	if h.JobID == "" {
		return Handle{}, fmt.Errorf("job id required")
	}
	if h.ID == "" {
		h.ID = newID()
	}
	stamp(&h, s.ttl)

	record := toRecord(h)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", h.ID).Delete(&handleRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return Handle{}, err
	}
	return h, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Handle, error) {
	var record handleRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Handle{}, err
	}

	h := fromRecord(record)
	if h.Expired(time.Now()) {
		return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

func (s *sqliteStore) Release(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&handleRecord{}).Error
}

func (s *sqliteStore) ReleaseJob(ctx context.Context, jobID string) (int, error) {
	res := s.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&handleRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (s *sqliteStore) List(ctx context.Context, jobID string) ([]Handle, error) {
	var records []handleRecord
	err := s.db.WithContext(ctx).
		Select("id", "job_id", "filename", "content_type", "created_at", "expires_at").
		Where("job_id = ? AND (expires_at IS NULL OR expires_at > ?)", jobID, time.Now().UTC()).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]Handle, 0, len(records))
	for _, r := range records {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now().UTC()).
		Delete(&handleRecord{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&handleRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        DriverSQLite,
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func toRecord(h Handle) handleRecord {
	r := handleRecord{
		ID:          h.ID,
		JobID:       h.JobID,
		Filename:    h.Filename,
		ContentType: h.ContentType,
		Data:        h.Data,
		CreatedAt:   h.CreatedAt.UTC(),
	}
	if !h.ExpiresAt.IsZero() {
		exp := h.ExpiresAt.UTC()
		r.ExpiresAt = &exp
	}
	return r
}

func fromRecord(r handleRecord) Handle {
	h := Handle{
		ID:          r.ID,
		JobID:       r.JobID,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Data:        r.Data,
		CreatedAt:   r.CreatedAt,
	}
	if r.ExpiresAt != nil {
		h.ExpiresAt = *r.ExpiresAt
	}
	return h
}
