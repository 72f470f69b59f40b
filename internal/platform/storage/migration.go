package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"image-sizer-go/internal/platform/errors"
)

// Migration is one versioned, forward-only schema change.
type Migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB) error
}

// MigrationRecord marks an applied migration.
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

type MigrationManager struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrationManager(db *gorm.DB, migrations ...Migration) *MigrationManager {
	return &MigrationManager{db: db, migrations: migrations}
}

// RunMigrations applies, in order, every migration not yet recorded. Each one
// commits together with its record so a crash never leaves it half applied.
func (m *MigrationManager) RunMigrations() (int, error) {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return 0, errors.Wrap(errors.KindStorage, "migration.create_table", "failed to create migration table", err)
	}

	var versions []string
	if err := m.db.Model(&MigrationRecord{}).Pluck("version", &versions).Error; err != nil {
		return 0, errors.Wrap(errors.KindStorage, "migration.applied", "failed to read applied migrations", err)
	}
	applied := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}

	ran := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version()]; ok {
			continue
		}
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{
				Version:   mig.Version(),
				Name:      mig.Description(),
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return ran, errors.Wrap(errors.KindStorage, "migration.up", fmt.Sprintf("migration %s failed", mig.Version()), err)
		}
		ran++
	}
	return ran, nil
}

// History lists applied migrations, oldest first.
func (m *MigrationManager) History() ([]MigrationRecord, error) {
	var records []MigrationRecord
	if err := m.db.Order("id ASC").Find(&records).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "migration.history", "failed to read migration history", err)
	}
	return records, nil
}
