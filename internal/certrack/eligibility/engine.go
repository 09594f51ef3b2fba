// Package eligibility derives per-employee-per-rule certification
// eligibility rows and keeps them consistent as certifications change.
package eligibility

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/danupranata/certrack/internal/certrack/db"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the repository surface the engine recomputes through.
type Store interface {
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListActiveMappingsForJobs(ctx context.Context, jobIDs []uuid.UUID) ([]models.JobCertificationMapping, error)
	ListExceptions(ctx context.Context, employeeID uuid.UUID) ([]models.EmployeeEligibilityException, error)
	ListCertificationsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.EmployeeCertification, error)
	RulesByID(ctx context.Context) (map[uuid.UUID]models.CertificationRule, error)
	CountPassedBatches(ctx context.Context, employeeID, ruleID uuid.UUID, batchType models.BatchType) (int64, error)
	UpsertEligibility(ctx context.Context, el *models.EmployeeEligibility) error
	RetireEligibilityExcept(ctx context.Context, employeeID uuid.UUID, keepRuleIDs []uuid.UUID) error
}

var _ Store = (*db.Repository)(nil)

// Engine recomputes eligibility for one employee at a time. Runs for
// different employees are independent; within one employee the unique
// (employee, rule) constraint makes concurrent runs converge.
type Engine struct {
	store  Store
	logger *zap.Logger
	// now is swappable for tests.
	now func() time.Time
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.Named("eligibility_engine"),
		now:    time.Now,
	}
}

// Recompute re-derives every eligibility row of one employee. It is
// idempotent: rerunning without intervening data changes rewrites the
// same rows, never duplicates.
func (en *Engine) Recompute(ctx context.Context, employeeID uuid.UUID) error {
	emp, err := en.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("load employee: %w", err)
	}

	sources, err := en.ruleSources(ctx, emp)
	if err != nil {
		return err
	}

	rules, err := en.store.RulesByID(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	certs, err := en.store.ListCertificationsByEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("load certifications: %w", err)
	}
	best := bestCertificate(certs)

	keep := make([]uuid.UUID, 0, len(sources))
	for ruleID := range sources {
		keep = append(keep, ruleID)
	}
	sort.Slice(keep, func(i, j int) bool { return keep[i].String() < keep[j].String() })

	now := en.now()
	for _, ruleID := range keep {
		rule, ok := rules[ruleID]
		if !ok {
			en.logger.Warn("mapping references missing rule",
				zap.String("rule_id", ruleID.String()),
				zap.String("employee_id", employeeID.String()),
			)
			continue
		}
		status, due := DeriveStatus(&rule, emp.HireDate, best[ruleID], now)

		row := &models.EmployeeEligibility{
			EmployeeID: employeeID,
			RuleID:     ruleID,
			Status:     status,
			Source:     sources[ruleID],
			DueDate:    &due,
		}
		if err := en.fillCounters(ctx, row); err != nil {
			return err
		}
		if err := en.store.UpsertEligibility(ctx, row); err != nil {
			return fmt.Errorf("upsert eligibility: %w", err)
		}
	}

	if err := en.store.RetireEligibilityExcept(ctx, employeeID, keep); err != nil {
		return fmt.Errorf("retire stale eligibility: %w", err)
	}

	en.logger.Debug("recomputed eligibility",
		zap.String("employee_id", employeeID.String()),
		zap.Int("rules", len(keep)),
	)
	return nil
}

// ruleSources builds the (rule -> source) set implied by the employee's
// active positions, then applies exceptions: an active excluded exception
// removes the pair, an active included one adds it as BY_NAME. Inactive
// exceptions are ignored.
func (en *Engine) ruleSources(ctx context.Context, emp *models.Employee) (map[uuid.UUID]models.EligibilitySource, error) {
	var jobIDs []uuid.UUID
	for i := range emp.Positions {
		p := &emp.Positions[i]
		if p.Active {
			jobIDs = append(jobIDs, p.JobPositionID)
		}
	}

	sources := make(map[uuid.UUID]models.EligibilitySource)
	mappings, err := en.store.ListActiveMappingsForJobs(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("load job mappings: %w", err)
	}
	for _, m := range mappings {
		sources[m.RuleID] = models.SourceByJob
	}

	exceptions, err := en.store.ListExceptions(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("load exceptions: %w", err)
	}
	for _, exc := range exceptions {
		if !exc.Active {
			continue
		}
		if exc.Excluded {
			delete(sources, exc.RuleID)
		} else {
			sources[exc.RuleID] = models.SourceByName
		}
	}
	return sources, nil
}

func (en *Engine) fillCounters(ctx context.Context, row *models.EmployeeEligibility) error {
	counts := []struct {
		typ  models.BatchType
		dest *int
	}{
		{models.BatchTraining, &row.TrainingCount},
		{models.BatchRefreshment, &row.RefreshmentCount},
		{models.BatchExtension, &row.ExtensionCount},
	}
	for _, c := range counts {
		n, err := en.store.CountPassedBatches(ctx, row.EmployeeID, row.RuleID, c.typ)
		if err != nil {
			return fmt.Errorf("count %s batches: %w", c.typ, err)
		}
		*c.dest = int(n)
	}
	return nil
}
