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

func (r *Repository) CreateEmployee(ctx context.Context, emp *models.Employee) error {
	result := r.db.WithContext(ctx).Create(emp)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateNIP
		}
		return result.Error
	}
	return nil
}

// CreateEmployees inserts employees in fixed-size batches. Chunks run
// sequentially so a later chunk observes earlier inserts.
func (r *Repository) CreateEmployees(ctx context.Context, emps []*models.Employee, chunkSize int) error {
	if len(emps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(emps, chunkSize).Error
}

func (r *Repository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var emp models.Employee
	result := r.db.WithContext(ctx).Preload("Positions").First(&emp, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &emp, nil
}

// FindEmployeeByNIP looks up an employee by NIP including resigned ones,
// with positions preloaded.
func (r *Repository) FindEmployeeByNIP(ctx context.Context, nip string) (*models.Employee, error) {
	var emp models.Employee
	result := r.db.WithContext(ctx).Preload("Positions").First(&emp, "nip = ?", nip)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &emp, nil
}

func (r *Repository) CountActiveEmployees(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("status IN ?", []models.EmployeeStatus{models.EmployeeActive, models.EmployeeMutasi}).
		Count(&count)
	return count, result.Error
}

// ListActiveEmployees returns every non-resigned employee with positions.
func (r *Repository) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	var emps []models.Employee
	result := r.db.WithContext(ctx).Preload("Positions").
		Where("status IN ?", []models.EmployeeStatus{models.EmployeeActive, models.EmployeeMutasi}).
		Find(&emps)
	return emps, result.Error
}

func (r *Repository) SaveEmployee(ctx context.Context, emp *models.Employee) error {
	result := r.db.WithContext(ctx).Omit("Positions").Save(emp)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) CreatePositions(ctx context.Context, positions []models.EmployeePosition) error {
	if len(positions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&positions).Error
}

// DeactivatePositions clears the active flag on every position of an
// employee without deleting the rows.
func (r *Repository) DeactivatePositions(ctx context.Context, employeeID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.EmployeePosition{}).
		Where("employee_id = ?", employeeID).
		Update("active", false).Error
}

// ReplacePositions soft-deletes the employee's current positions and
// installs the given ones.
func (r *Repository) ReplacePositions(ctx context.Context, employeeID uuid.UUID, positions []models.EmployeePosition) error {
	if err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Delete(&models.EmployeePosition{}).Error; err != nil {
		return err
	}
	now := time.Now()
	for i := range positions {
		positions[i].EmployeeID = employeeID
		if positions[i].ID == uuid.Nil {
			positions[i].ID = uuid.New()
		}
		positions[i].CreatedAt = now
	}
	return r.CreatePositions(ctx, positions)
}
