package db

import (
	"context"

	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// UpsertEligibility writes an eligibility row keyed on the unique
// (employee_id, rule_id) pair. The conflict clause is the only
// concurrency safeguard between overlapping recomputations for the same
// employee.
func (r *Repository) UpsertEligibility(ctx context.Context, el *models.EmployeeEligibility) error {
	if el.ID == uuid.Nil {
		el.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "employee_id"}, {Name: "rule_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "source", "due_date",
			"training_count", "refreshment_count", "extension_count",
			"updated_at", "deleted_at",
		}),
	}).Create(el).Error
}

func (r *Repository) ListEligibilityByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.EmployeeEligibility, error) {
	var rows []models.EmployeeEligibility
	result := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("rule_id").
		Find(&rows)
	return rows, result.Error
}

func (r *Repository) ListEligibilityByRule(ctx context.Context, ruleID uuid.UUID) ([]models.EmployeeEligibility, error) {
	var rows []models.EmployeeEligibility
	result := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Order("employee_id").
		Find(&rows)
	return rows, result.Error
}

// RetireEligibilityExcept soft-deletes eligibility rows of an employee
// whose rule is no longer implied by jobs or exceptions.
func (r *Repository) RetireEligibilityExcept(ctx context.Context, employeeID uuid.UUID, keepRuleIDs []uuid.UUID) error {
	q := r.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if len(keepRuleIDs) > 0 {
		q = q.Where("rule_id NOT IN ?", keepRuleIDs)
	}
	return q.Delete(&models.EmployeeEligibility{}).Error
}
