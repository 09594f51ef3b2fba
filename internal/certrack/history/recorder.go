// Package history appends immutable audit snapshots for every employee,
// rule, certification and mapping mutation. Rows are write-once and are
// never read back into the reconciliation logic.
package history

import (
	"context"

	"github.com/danupranata/certrack/internal/certrack/db"
	"github.com/danupranata/certrack/internal/certrack/models"
	"go.uber.org/zap"
)

// Store is the append-only slice of the repository the recorder writes to.
type Store interface {
	AppendEmployeeHistory(ctx context.Context, h *models.EmployeeHistory) error
	AppendRuleHistory(ctx context.Context, h *models.CertificationRuleHistory) error
	AppendCertificationHistory(ctx context.Context, h *models.EmployeeCertificationHistory) error
	AppendMappingHistory(ctx context.Context, h *models.JobCertificationMappingHistory) error
	OrgNames(ctx context.Context, pos *models.EmployeePosition) (regional, division, unit, job string)
}

var _ Store = (*db.Repository)(nil)

type Recorder struct {
	store  Store
	logger *zap.Logger
}

func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.Named("history_recorder"),
	}
}

// Employee snapshots an employee mutation. oldPrimary is the primary
// position before the change, nil for new employees; its org names are
// captured so the audit trail survives later org renames.
func (r *Recorder) Employee(ctx context.Context, emp *models.Employee, action models.ActionType, oldPrimary *models.EmployeePosition) error {
	h := &models.EmployeeHistory{
		EmployeeID: emp.ID,
		NIP:        emp.NIP,
		Name:       emp.Name,
		Status:     emp.Status,
		ActionType: action,
	}
	if oldPrimary != nil {
		h.OldRegionalName, h.OldDivisionName, h.OldUnitName, h.OldJobTitle = r.store.OrgNames(ctx, oldPrimary)
	}
	h.NewRegionalName, h.NewDivisionName, h.NewUnitName, h.NewJobTitle = r.store.OrgNames(ctx, emp.Primary())
	return r.store.AppendEmployeeHistory(ctx, h)
}

// Rule snapshots a certification rule mutation.
func (r *Recorder) Rule(ctx context.Context, rule *models.CertificationRule, action models.ActionType) error {
	return r.store.AppendRuleHistory(ctx, &models.CertificationRuleHistory{
		RuleID:         rule.ID,
		Certification:  rule.Certification,
		Level:          rule.Level,
		Subfield:       rule.Subfield,
		ValidityMonths: rule.ValidityMonths,
		ReminderMonths: rule.ReminderMonths,
		ActionType:     action,
	})
}

// Certification snapshots a certificate mutation.
func (r *Recorder) Certification(ctx context.Context, cert *models.EmployeeCertification, action models.ActionType) error {
	return r.store.AppendCertificationHistory(ctx, &models.EmployeeCertificationHistory{
		CertificationID: cert.ID,
		EmployeeID:      cert.EmployeeID,
		RuleID:          cert.RuleID,
		Number:          cert.Number,
		ValidUntil:      cert.ValidUntil,
		Status:          cert.Status,
		ActionType:      action,
	})
}

// Mapping snapshots a job-to-rule mapping toggle.
func (r *Recorder) Mapping(ctx context.Context, m *models.JobCertificationMapping, action models.ActionType) error {
	return r.store.AppendMappingHistory(ctx, &models.JobCertificationMappingHistory{
		MappingID:     m.ID,
		JobPositionID: m.JobPositionID,
		RuleID:        m.RuleID,
		Active:        m.Active,
		ActionType:    action,
	})
}
