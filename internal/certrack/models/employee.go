// Package models defines the domain entities for the certification
// tracking service, configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmployeeStatus represents the employment state of an employee.
type EmployeeStatus string

const (
	// EmployeeActive marks a currently employed person.
	EmployeeActive EmployeeStatus = "ACTIVE"
	// EmployeeResign marks an employee absent from the latest roster.
	EmployeeResign EmployeeStatus = "RESIGN"
	// EmployeeMutasi marks an employee whose org placement changed.
	EmployeeMutasi EmployeeStatus = "MUTASI"
)

// PositionKind distinguishes the primary placement from the secondary one.
type PositionKind string

const (
	PositionPrimary   PositionKind = "PRIMARY"
	PositionSecondary PositionKind = "SECONDARY"
)

// Gender of an employee as carried on the roster.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Employee is identified by its NIP. An employee owns its positions;
// deleting the employee cascades to them.
type Employee struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey"`
	NIP       string             `gorm:"column:nip;size:32;uniqueIndex"`
	Name      string             `gorm:"size:255"`
	Email     string             `gorm:"size:255"`
	Gender    Gender             `gorm:"size:10"`
	HireDate  time.Time          `gorm:"type:date"`
	Status    EmployeeStatus     `gorm:"size:10;index"`
	Positions []EmployeePosition `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// EmployeePosition is one org placement of an employee. At most one
// non-deleted PRIMARY and one non-deleted SECONDARY exist per employee.
type EmployeePosition struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	EmployeeID    uuid.UUID    `gorm:"type:uuid;index"`
	Kind          PositionKind `gorm:"size:10"`
	RegionalID    uuid.UUID    `gorm:"type:uuid"`
	DivisionID    uuid.UUID    `gorm:"type:uuid"`
	UnitID        uuid.UUID    `gorm:"type:uuid"`
	JobPositionID uuid.UUID    `gorm:"type:uuid;index"`
	EffectiveDate time.Time    `gorm:"type:date"`
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// Primary returns the active primary position, or nil.
func (e *Employee) Primary() *EmployeePosition {
	return e.position(PositionPrimary)
}

// Secondary returns the active secondary position, or nil.
func (e *Employee) Secondary() *EmployeePosition {
	return e.position(PositionSecondary)
}

func (e *Employee) position(kind PositionKind) *EmployeePosition {
	for i := range e.Positions {
		p := &e.Positions[i]
		if p.Kind == kind && p.Active {
			return p
		}
	}
	return nil
}

// SamePlacement reports whether two positions reference the same
// regional, division, unit and job. Nil-safe on both sides.
func SamePlacement(a, b *EmployeePosition) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.RegionalID == b.RegionalID &&
		a.DivisionID == b.DivisionID &&
		a.UnitID == b.UnitID &&
		a.JobPositionID == b.JobPositionID
}
