package db

import (
	"context"
	"errors"
	"time"

	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateCertification(ctx context.Context, cert *models.EmployeeCertification) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *Repository) GetCertification(ctx context.Context, id uuid.UUID) (*models.EmployeeCertification, error) {
	var cert models.EmployeeCertification
	result := r.db.WithContext(ctx).First(&cert, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &cert, nil
}

func (r *Repository) SaveCertification(ctx context.Context, cert *models.EmployeeCertification) error {
	return r.db.WithContext(ctx).Save(cert).Error
}

// ListCertificationsByEmployee returns the employee's non-deleted
// certificates, newest validity first.
func (r *Repository) ListCertificationsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.EmployeeCertification, error) {
	var certs []models.EmployeeCertification
	result := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("valid_until DESC").
		Find(&certs)
	return certs, result.Error
}

// InvalidateCertifications marks every live certificate of an employee as
// INVALIDATED, used when the employee resigns.
func (r *Repository) InvalidateCertifications(ctx context.Context, employeeID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.EmployeeCertification{}).
		Where("employee_id = ? AND status <> ?", employeeID, models.CertificationInvalidated).
		Update("status", models.CertificationInvalidated).Error
}

// ListCertificationsExpiringBy returns live certificates with valid_until
// inside (now, until]; the scheduler narrows per-rule reminder windows.
func (r *Repository) ListCertificationsExpiringBy(ctx context.Context, now, until time.Time) ([]models.EmployeeCertification, error) {
	var certs []models.EmployeeCertification
	result := r.db.WithContext(ctx).
		Where("status = ? AND valid_until > ? AND valid_until <= ?", models.CertificationActive, now, until).
		Find(&certs)
	return certs, result.Error
}

// ListExpiredCertifications returns non-invalidated certificates whose
// valid_until has passed.
func (r *Repository) ListExpiredCertifications(ctx context.Context, now time.Time) ([]models.EmployeeCertification, error) {
	var certs []models.EmployeeCertification
	result := r.db.WithContext(ctx).
		Where("status <> ? AND valid_until < ?", models.CertificationInvalidated, now).
		Find(&certs)
	return certs, result.Error
}
