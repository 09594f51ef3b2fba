package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EligibilityStatus is the derived certification standing of an employee
// against one rule.
type EligibilityStatus string

const (
	// EligibilityNotYetCertified means no certification exists yet but the
	// post-hire grace window has not passed.
	EligibilityNotYetCertified EligibilityStatus = "NOT_YET_CERTIFIED"
	// EligibilityActive means a certification is held and outside its
	// reminder window.
	EligibilityActive EligibilityStatus = "ACTIVE"
	// EligibilityDue means the held certification expires within the rule's
	// reminder window.
	EligibilityDue EligibilityStatus = "DUE"
	// EligibilityExpired means the certification lapsed, or the grace window
	// passed without one.
	EligibilityExpired EligibilityStatus = "EXPIRED"
)

// EligibilitySource records why the (employee, rule) pair exists.
type EligibilitySource string

const (
	// SourceByJob derives from the employee's job position mappings.
	SourceByJob EligibilitySource = "BY_JOB"
	// SourceByName derives from an explicit per-employee exception.
	SourceByName EligibilitySource = "BY_NAME"
)

// EmployeeEligibility is the derived row per (employee, rule) pair. The
// pair is unique; recomputation upserts against it.
type EmployeeEligibility struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey"`
	EmployeeID       uuid.UUID         `gorm:"type:uuid;uniqueIndex:idx_employee_rule"`
	RuleID           uuid.UUID         `gorm:"type:uuid;uniqueIndex:idx_employee_rule"`
	Status           EligibilityStatus `gorm:"size:20;index"`
	Source           EligibilitySource `gorm:"size:10"`
	DueDate          *time.Time        `gorm:"type:date"`
	TrainingCount    int
	RefreshmentCount int
	ExtensionCount   int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// EmployeeEligibilityException overrides standard derivation for one
// (employee, rule) pair. Excluded suppresses the pair entirely; a
// non-excluded exception adds the pair with source BY_NAME. An inactive
// exception is ignored, not deleted.
type EmployeeEligibilityException struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_exception_pair"`
	RuleID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_exception_pair"`
	Excluded   bool
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
