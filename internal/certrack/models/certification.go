package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificationStatus is the state machine of an actual certificate
// record, independent of the derived eligibility status.
type CertificationStatus string

const (
	CertificationActive      CertificationStatus = "ACTIVE"
	CertificationExpired     CertificationStatus = "EXPIRED"
	CertificationInvalidated CertificationStatus = "INVALIDATED"
)

// EmployeeCertification is one issued certificate tied to an employee
// and the rule it satisfies.
type EmployeeCertification struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID           `gorm:"type:uuid;index"`
	RuleID     uuid.UUID           `gorm:"type:uuid;index"`
	Number     string              `gorm:"size:100"`
	IssuedAt   time.Time           `gorm:"type:date"`
	ValidFrom  time.Time           `gorm:"type:date"`
	ValidUntil time.Time           `gorm:"type:date;index"`
	FileURL    string              `gorm:"size:512"`
	Status     CertificationStatus `gorm:"size:15;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
