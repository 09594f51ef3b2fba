package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType labels what happened in a history snapshot.
type ActionType string

const (
	ActionCreated ActionType = "CREATED"
	ActionUpdated ActionType = "UPDATED"
	ActionDeleted ActionType = "DELETED"
	ActionMutasi  ActionType = "MUTASI"
	ActionRehired ActionType = "REHIRED"
	ActionResign  ActionType = "RESIGN"
)

// History rows are append-only audit facts. They reference their source
// entity but outlive it, and are never updated or deleted once written.

// EmployeeHistory snapshots an employee mutation, including the org
// placement names before the change.
type EmployeeHistory struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EmployeeID      uuid.UUID  `gorm:"type:uuid;index"`
	NIP             string     `gorm:"size:32;index"`
	Name            string     `gorm:"size:255"`
	Status          EmployeeStatus `gorm:"size:10"`
	ActionType      ActionType `gorm:"size:10"`
	OldRegionalName string     `gorm:"size:255"`
	OldDivisionName string     `gorm:"size:255"`
	OldUnitName     string     `gorm:"size:255"`
	OldJobTitle     string     `gorm:"size:255"`
	NewRegionalName string     `gorm:"size:255"`
	NewDivisionName string     `gorm:"size:255"`
	NewUnitName     string     `gorm:"size:255"`
	NewJobTitle     string     `gorm:"size:255"`
	CreatedAt       time.Time
}

// CertificationRuleHistory snapshots a rule mutation.
type CertificationRuleHistory struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RuleID         uuid.UUID  `gorm:"type:uuid;index"`
	Certification  string     `gorm:"size:100"`
	Level          string     `gorm:"size:50"`
	Subfield       string     `gorm:"size:100"`
	ValidityMonths int
	ReminderMonths int
	ActionType     ActionType `gorm:"size:10"`
	CreatedAt      time.Time
}

// EmployeeCertificationHistory snapshots a certificate mutation.
type EmployeeCertificationHistory struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey"`
	CertificationID uuid.UUID           `gorm:"type:uuid;index"`
	EmployeeID      uuid.UUID           `gorm:"type:uuid;index"`
	RuleID          uuid.UUID           `gorm:"type:uuid"`
	Number          string              `gorm:"size:100"`
	ValidUntil      time.Time           `gorm:"type:date"`
	Status          CertificationStatus `gorm:"size:15"`
	ActionType      ActionType          `gorm:"size:10"`
	CreatedAt       time.Time
}

// JobCertificationMappingHistory snapshots a mapping toggle.
type JobCertificationMappingHistory struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MappingID     uuid.UUID  `gorm:"type:uuid;index"`
	JobPositionID uuid.UUID  `gorm:"type:uuid"`
	RuleID        uuid.UUID  `gorm:"type:uuid"`
	Active        bool
	ActionType    ActionType `gorm:"size:10"`
	CreatedAt     time.Time
}
