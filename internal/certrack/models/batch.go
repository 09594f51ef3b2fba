package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BatchType classifies a training/certification event and decides which
// eligibility counter a passed participation feeds.
type BatchType string

const (
	BatchTraining    BatchType = "TRAINING"
	BatchRefreshment BatchType = "REFRESHMENT"
	BatchExtension   BatchType = "EXTENSION"
)

// BatchResult is the per-employee outcome of a batch.
type BatchResult string

const (
	BatchResultRegistered BatchResult = "REGISTERED"
	BatchResultPassed     BatchResult = "PASSED"
	BatchResultFailed     BatchResult = "FAILED"
)

// Batch is a scheduled training or certification event against one rule.
type Batch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255"`
	Type      BatchType `gorm:"size:15"`
	RuleID    uuid.UUID `gorm:"type:uuid;index"`
	StartDate time.Time `gorm:"type:date"`
	EndDate   time.Time `gorm:"type:date"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// EmployeeBatch is one employee's participation in a batch.
type EmployeeBatch struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey"`
	BatchID    uuid.UUID   `gorm:"type:uuid;uniqueIndex:idx_batch_employee"`
	EmployeeID uuid.UUID   `gorm:"type:uuid;uniqueIndex:idx_batch_employee"`
	Result     BatchResult `gorm:"size:15"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
