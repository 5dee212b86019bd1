package queue

import (
	"context"
	"time"

	"github.com/shashiranjanraj/giftkart/pkg/logger"
)

// FailedJobRecord is a job that exhausted its retries.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// persistFailed keeps the failure in memory and, when UseDB was called,
// writes it to failed_jobs.
func (m *Manager) persistFailed(typeName string, payload []byte, lastErr error, attempts int) {
	now := time.Now()

	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{Type: typeName, Err: lastErr, FailedAt: now, Attempts: attempts})
	db := m.db
	m.mu.Unlock()

	if db == nil {
		return
	}

	record := FailedJobRecord{
		JobType:  typeName,
		Payload:  string(payload),
		Attempts: attempts,
		FailedAt: now,
	}
	if lastErr != nil {
		record.Error = lastErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("queue: persist failed job", "type", typeName, "error", err)
	}
}
