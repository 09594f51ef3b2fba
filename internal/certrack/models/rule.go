package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificationRule is a (certification, level, subfield) tuple carrying
// the validity window policy. The tuple is unique.
type CertificationRule struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Certification string    `gorm:"size:100;uniqueIndex:idx_rule_tuple"`
	Level         string    `gorm:"size:50;uniqueIndex:idx_rule_tuple"`
	Subfield      string    `gorm:"size:100;uniqueIndex:idx_rule_tuple"`
	// ValidityMonths is how long an issued certification stays valid.
	ValidityMonths int
	// ReminderMonths is the window before expiry in which the holder is DUE.
	ReminderMonths int
	// MandatoryAfterHireMonths is the grace period a new hire has to obtain
	// the certification before it counts as EXPIRED.
	MandatoryAfterHireMonths int
	CreatedAt                time.Time
	UpdatedAt                time.Time
	DeletedAt                gorm.DeletedAt `gorm:"index"`
}

// JobCertificationMapping links a job position to a rule it requires.
type JobCertificationMapping struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobPositionID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_job_rule"`
	RuleID        uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_job_rule"`
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}
