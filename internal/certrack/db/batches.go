package db

import (
	"context"
	"time"

	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateBatch(ctx context.Context, b *models.Batch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) RegisterEmployeeBatch(ctx context.Context, eb *models.EmployeeBatch) error {
	return r.db.WithContext(ctx).Create(eb).Error
}

func (r *Repository) SaveEmployeeBatch(ctx context.Context, eb *models.EmployeeBatch) error {
	return r.db.WithContext(ctx).Save(eb).Error
}

// CountPassedBatches counts batches of one type and rule the employee
// passed, feeding the eligibility counters.
func (r *Repository) CountPassedBatches(ctx context.Context, employeeID, ruleID uuid.UUID, batchType models.BatchType) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.EmployeeBatch{}).
		Joins("JOIN batches ON batches.id = employee_batches.batch_id").
		Where("employee_batches.employee_id = ?", employeeID).
		Where("employee_batches.result = ?", models.BatchResultPassed).
		Where("batches.rule_id = ?", ruleID).
		Where("batches.type = ?", batchType).
		Where("batches.deleted_at IS NULL").
		Count(&count)
	return count, result.Error
}

// ListUpcomingBatches returns batches starting inside [from, to).
func (r *Repository) ListUpcomingBatches(ctx context.Context, from, to time.Time) ([]models.Batch, error) {
	var batches []models.Batch
	result := r.db.WithContext(ctx).
		Where("start_date >= ? AND start_date < ?", from, to).
		Find(&batches)
	return batches, result.Error
}

// ListBatchParticipants returns the employee ids registered on a batch.
func (r *Repository) ListBatchParticipants(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).Model(&models.EmployeeBatch{}).
		Where("batch_id = ?", batchID).
		Pluck("employee_id", &ids)
	return ids, result.Error
}
