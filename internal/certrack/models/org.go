package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgKind names one of the four reference tables the resolver manages.
type OrgKind string

const (
	OrgRegional    OrgKind = "regional"
	OrgDivision    OrgKind = "division"
	OrgUnit        OrgKind = "unit"
	OrgJobPosition OrgKind = "job_position"
)

// Regional is a top-level org area, created on demand from roster text.
type Regional struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Division struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Unit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// JobPosition is a job title; certification rules attach to it through
// JobCertificationMapping.
type JobPosition struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
