package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType names one configured reminder kind.
type NotificationType string

const (
	NotifCertReminder NotificationType = "CERT_REMINDER"
	NotifBatch        NotificationType = "BATCH_NOTIFICATION"
	NotifExpired      NotificationType = "EXPIRED_NOTICE"
)

// Notification is one queued reminder for one employee, with a reference
// back to the entity that caused it. Send failures are recorded on the
// row rather than retried by the scheduler.
type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Type         NotificationType `gorm:"size:25;index"`
	EmployeeID   uuid.UUID        `gorm:"type:uuid;index"`
	Title        string           `gorm:"size:200"`
	Body         string           `gorm:"type:text"`
	RelatedType  string           `gorm:"size:30"`
	RelatedID    *uuid.UUID       `gorm:"type:uuid"`
	Read         bool             `gorm:"not null;default:false"`
	Success      bool
	ErrorMessage string     `gorm:"size:512"`
	SentAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// NotificationSchedule configures one notification type's daily run.
// LastRun guards against re-sending within the same day; it stays
// untouched when a run is skipped.
type NotificationSchedule struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Type        NotificationType `gorm:"size:25;uniqueIndex"`
	Active      bool
	TimeOfDay   string `gorm:"size:5"` // "HH:MM", local time
	SkipWeekend bool
	LastRun     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
