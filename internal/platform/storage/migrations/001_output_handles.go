package migrations

import (
	"gorm.io/gorm"
)

// Migration001OutputHandles creates the table backing the sqlite handle store.
type Migration001OutputHandles struct{}

func (m *Migration001OutputHandles) Version() string {
	return "001_output_handles"
}

func (m *Migration001OutputHandles) Description() string {
	return "Create output_handles table"
}

func (m *Migration001OutputHandles) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS output_handles (
			id VARCHAR(64) PRIMARY KEY,
			job_id VARCHAR(64) NOT NULL,
			filename VARCHAR(255) NOT NULL,
			content_type VARCHAR(64) NOT NULL,
			data BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME
		)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_output_handles_job_id ON output_handles(job_id)`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_output_handles_expires_at ON output_handles(expires_at)`).Error
}
