// Package db implements the persistence layer on top of GORM, exposing a
// Repository with typed query and mutation methods per entity group.
package db

import (
	"context"
	"fmt"

	"github.com/danupranata/certrack/internal/certrack/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate creates or updates the schema for every tracked entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Regional{},
		&models.Division{},
		&models.Unit{},
		&models.JobPosition{},
		&models.Employee{},
		&models.EmployeePosition{},
		&models.CertificationRule{},
		&models.JobCertificationMapping{},
		&models.EmployeeEligibility{},
		&models.EmployeeEligibilityException{},
		&models.EmployeeCertification{},
		&models.EmployeeHistory{},
		&models.CertificationRuleHistory{},
		&models.EmployeeCertificationHistory{},
		&models.JobCertificationMappingHistory{},
		&models.Batch{},
		&models.EmployeeBatch{},
		&models.Notification{},
		&models.NotificationSchedule{},
	)
}

// NewWithDB wraps an existing GORM handle; tests use it with SQLite.
func NewWithDB(gdb *gorm.DB) *Repository {
	return &Repository{db: gdb}
}

// WithTransaction runs fn inside one transaction; fn receives a Repository
// bound to the transaction handle.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
