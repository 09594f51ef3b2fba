package db

import (
	"context"

	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
)

// History rows are append-only; the repository deliberately exposes no
// update or delete for them.

func (r *Repository) AppendEmployeeHistory(ctx context.Context, h *models.EmployeeHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repository) AppendRuleHistory(ctx context.Context, h *models.CertificationRuleHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repository) AppendCertificationHistory(ctx context.Context, h *models.EmployeeCertificationHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repository) AppendMappingHistory(ctx context.Context, h *models.JobCertificationMappingHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repository) ListEmployeeHistory(ctx context.Context, employeeID uuid.UUID) ([]models.EmployeeHistory, error) {
	var rows []models.EmployeeHistory
	result := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at").
		Find(&rows)
	return rows, result.Error
}
