package db

import (
	"context"
	"errors"

	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateRule(ctx context.Context, rule *models.CertificationRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *Repository) GetRule(ctx context.Context, id uuid.UUID) (*models.CertificationRule, error) {
	var rule models.CertificationRule
	result := r.db.WithContext(ctx).First(&rule, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &rule, nil
}

func (r *Repository) ListRules(ctx context.Context) ([]models.CertificationRule, error) {
	var rules []models.CertificationRule
	result := r.db.WithContext(ctx).Find(&rules)
	return rules, result.Error
}

// RulesByID loads all rules into a lookup map.
func (r *Repository) RulesByID(ctx context.Context) (map[uuid.UUID]models.CertificationRule, error) {
	rules, err := r.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.CertificationRule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}
	return byID, nil
}

func (r *Repository) CreateMapping(ctx context.Context, m *models.JobCertificationMapping) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) SaveMapping(ctx context.Context, m *models.JobCertificationMapping) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *Repository) GetMapping(ctx context.Context, id uuid.UUID) (*models.JobCertificationMapping, error) {
	var m models.JobCertificationMapping
	result := r.db.WithContext(ctx).First(&m, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &m, nil
}

// ListActiveMappingsForJobs returns active job-to-rule mappings for the
// given job positions.
func (r *Repository) ListActiveMappingsForJobs(ctx context.Context, jobIDs []uuid.UUID) ([]models.JobCertificationMapping, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	var mappings []models.JobCertificationMapping
	result := r.db.WithContext(ctx).
		Where("job_position_id IN ? AND active = ?", jobIDs, true).
		Find(&mappings)
	return mappings, result.Error
}

func (r *Repository) CreateException(ctx context.Context, exc *models.EmployeeEligibilityException) error {
	return r.db.WithContext(ctx).Create(exc).Error
}

func (r *Repository) SaveException(ctx context.Context, exc *models.EmployeeEligibilityException) error {
	return r.db.WithContext(ctx).Save(exc).Error
}

// ListExceptions returns every exception row for an employee, active or
// not; callers decide what an inactive row means.
func (r *Repository) ListExceptions(ctx context.Context, employeeID uuid.UUID) ([]models.EmployeeEligibilityException, error) {
	var excs []models.EmployeeEligibilityException
	result := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Find(&excs)
	return excs, result.Error
}
