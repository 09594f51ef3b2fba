// Package importer reconciles an uploaded employee roster against the
// current employee and position state, classifying each row and applying
// the resulting plan in sequential chunks.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/events"
	"github.com/danupranata/certrack/internal/certrack/history"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/danupranata/certrack/internal/certrack/resolver"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultChunkSize = 200
	// rosterGuardRatio aborts a live import whose roster is smaller than
	// this share of the active headcount, protecting against a truncated
	// file mass-resigning the workforce.
	rosterGuardRatio = 0.6
)

// Provisioner handles account lifecycle side effects after the import
// transaction commits. Failures are logged and swallowed.
type Provisioner interface {
	ActivateAccount(ctx context.Context, emp *models.Employee) error
	DeactivateAccount(ctx context.Context, emp *models.Employee) error
}

// EventProducer publishes post-commit domain events.
type EventProducer interface {
	Produce(eventType events.EventType, employeeID uuid.UUID)
}

// Result summarizes one import run.
type Result struct {
	DryRun    bool
	Created   int
	Updated   int
	Mutated   int
	Rehired   int
	Resigned  int
	Unchanged int
	Errors    []string
}

// sideEffects collects work deferred until after the commit.
type sideEffects struct {
	activated []*models.Employee
	rehired   []uuid.UUID
	resigned  []*models.Employee
}

type Planner struct {
	repo        *db.Repository
	provisioner Provisioner
	producer    EventProducer
	logger      *zap.Logger
	chunkSize   int
}

// NewPlanner constructs a Planner. chunkSize <= 0 selects the default.
func NewPlanner(repo *db.Repository, provisioner Provisioner, producer EventProducer, logger *zap.Logger, chunkSize int) *Planner {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Planner{
		repo:        repo,
		provisioner: provisioner,
		producer:    producer,
		logger:      logger.Named("import_planner"),
		chunkSize:   chunkSize,
	}
}

// Apply reconciles the roster. With dryRun the plan is computed and
// counted but nothing is persisted and the safety guard is bypassed.
// Row-level failures land in Result.Errors; the guard violation is the
// only error that aborts the whole import.
func (p *Planner) Apply(ctx context.Context, rows []RosterRow, dryRun bool) (*Result, error) {
	res := &Result{DryRun: dryRun}
	rows, seen := dedupeRows(rows, res)

	if !dryRun {
		active, err := p.repo.CountActiveEmployees(ctx)
		if err != nil {
			return nil, fmt.Errorf("count active employees: %w", err)
		}
		if active > 0 && float64(len(rows)) < rosterGuardRatio*float64(active) {
			return nil, fmt.Errorf("%w: %d rows against %d active employees",
				e.ErrRosterTooSmall, len(rows), active)
		}
	}

	var fx sideEffects
	if dryRun {
		if err := p.run(ctx, p.repo, rows, seen, true, res, &fx); err != nil {
			return nil, err
		}
		return res, nil
	}

	err := p.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		return p.run(ctx, repo, rows, seen, false, res, &fx)
	})
	if err != nil {
		return nil, err
	}
	p.applySideEffects(ctx, &fx)

	p.logger.Info("import applied",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("mutated", res.Mutated),
		zap.Int("rehired", res.Rehired),
		zap.Int("resigned", res.Resigned),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// run processes the roster rows in order, in chunks, then sweeps
// resignations. repo is transaction-bound on live runs; the resolver is
// bound to the same handle so later chunks observe earlier creations.
func (p *Planner) run(ctx context.Context, repo *db.Repository, rows []RosterRow, seen map[string]bool, dryRun bool, res *Result, fx *sideEffects) error {
	resv := resolver.New(repo, p.logger, dryRun)
	rec := history.NewRecorder(repo, p.logger)

	var pending []*models.Employee
	flush := func() error {
		if dryRun || len(pending) == 0 {
			pending = nil
			return nil
		}
		if err := repo.CreateEmployees(ctx, pending, p.chunkSize); err != nil {
			return fmt.Errorf("persist new employees: %w", err)
		}
		for _, emp := range pending {
			if err := rec.Employee(ctx, emp, models.ActionCreated, nil); err != nil {
				return err
			}
			fx.activated = append(fx.activated, emp)
		}
		pending = nil
		return nil
	}

	for i := range rows {
		row := &rows[i]
		if err := p.applyRow(ctx, repo, resv, rec, row, dryRun, res, fx, &pending); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", row.Row, err))
		}
		if (i+1)%p.chunkSize == 0 {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	return p.sweepResigned(ctx, repo, rec, seen, dryRun, res, fx)
}

func (p *Planner) applyRow(ctx context.Context, repo *db.Repository, resv *resolver.Resolver, rec *history.Recorder, row *RosterRow, dryRun bool, res *Result, fx *sideEffects, pending *[]*models.Employee) error {
	if row.NIP == "" {
		return fmt.Errorf("%w: missing NIP", e.ErrInvalidInput)
	}

	positions, err := p.resolvePositions(ctx, resv, row)
	if err != nil {
		return err
	}

	emp, err := repo.FindEmployeeByNIP(ctx, row.NIP)
	if errors.Is(err, e.ErrNotFound) {
		res.Created++
		if dryRun {
			return nil
		}
		newEmp := &models.Employee{
			ID:        uuid.New(),
			NIP:       row.NIP,
			Name:      row.Name,
			Email:     row.Email,
			Gender:    normalizeGender(row.Gender),
			HireDate:  row.EffectiveDate,
			Status:    models.EmployeeActive,
			Positions: positions,
		}
		*pending = append(*pending, newEmp)
		return nil
	}
	if err != nil {
		return err
	}

	if emp.Status == models.EmployeeResign {
		return p.rehire(ctx, repo, rec, emp, row, positions, dryRun, res, fx)
	}
	return p.reconcileActive(ctx, repo, rec, emp, row, positions, dryRun, res)
}

// rehire reactivates a resigned employee whose NIP reappeared. The action
// is MUTASI when the new placement differs from the last known one,
// REHIRED otherwise.
func (p *Planner) rehire(ctx context.Context, repo *db.Repository, rec *history.Recorder, emp *models.Employee, row *RosterRow, positions []models.EmployeePosition, dryRun bool, res *Result, fx *sideEffects) error {
	oldPrimary := lastPosition(emp, models.PositionPrimary)
	oldSecondary := lastPosition(emp, models.PositionSecondary)

	action := models.ActionRehired
	if !models.SamePlacement(oldPrimary, positionOf(positions, models.PositionPrimary)) ||
		!models.SamePlacement(oldSecondary, positionOf(positions, models.PositionSecondary)) {
		action = models.ActionMutasi
	}

	res.Rehired++
	if dryRun {
		return nil
	}

	emp.Status = models.EmployeeActive
	emp.Name = row.Name
	emp.Email = row.Email
	emp.Gender = normalizeGender(row.Gender)
	if err := repo.SaveEmployee(ctx, emp); err != nil {
		return fmt.Errorf("reactivate employee: %w", err)
	}
	if err := repo.ReplacePositions(ctx, emp.ID, positions); err != nil {
		return fmt.Errorf("rewrite positions: %w", err)
	}
	emp.Positions = positions
	if err := rec.Employee(ctx, emp, action, oldPrimary); err != nil {
		return err
	}
	fx.activated = append(fx.activated, emp)
	fx.rehired = append(fx.rehired, emp.ID)
	return nil
}

// reconcileActive diffs an active employee against its roster row.
// Placement diffs, including a secondary-only change, classify as
// MUTASI; profile-only diffs as UPDATED.
func (p *Planner) reconcileActive(ctx context.Context, repo *db.Repository, rec *history.Recorder, emp *models.Employee, row *RosterRow, positions []models.EmployeePosition, dryRun bool, res *Result) error {
	curPrimary := emp.Primary()
	curSecondary := emp.Secondary()
	newPrimary := positionOf(positions, models.PositionPrimary)
	newSecondary := positionOf(positions, models.PositionSecondary)

	placementChanged := !models.SamePlacement(curPrimary, newPrimary)
	secondaryPlacementChanged := !models.SamePlacement(curSecondary, newSecondary)

	if placementChanged || secondaryPlacementChanged {
		res.Mutated++
		if dryRun {
			return nil
		}
		emp.Status = models.EmployeeMutasi
		emp.Name = row.Name
		emp.Email = row.Email
		emp.Gender = normalizeGender(row.Gender)
		if err := repo.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("update employee: %w", err)
		}
		if err := repo.ReplacePositions(ctx, emp.ID, positions); err != nil {
			return fmt.Errorf("rewrite positions: %w", err)
		}
		emp.Positions = positions
		return rec.Employee(ctx, emp, models.ActionMutasi, curPrimary)
	}

	gender := normalizeGender(row.Gender)
	if emp.Name != row.Name || emp.Email != row.Email || emp.Gender != gender {
		res.Updated++
		if dryRun {
			return nil
		}
		emp.Name = row.Name
		emp.Email = row.Email
		emp.Gender = gender
		if err := repo.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("update employee: %w", err)
		}
		return rec.Employee(ctx, emp, models.ActionUpdated, nil)
	}

	res.Unchanged++
	return nil
}

// sweepResigned marks every active employee absent from the roster as
// RESIGN and deactivates its positions.
func (p *Planner) sweepResigned(ctx context.Context, repo *db.Repository, rec *history.Recorder, seen map[string]bool, dryRun bool, res *Result, fx *sideEffects) error {
	actives, err := repo.ListActiveEmployees(ctx)
	if err != nil {
		return fmt.Errorf("list active employees: %w", err)
	}
	for i := range actives {
		emp := &actives[i]
		if seen[emp.NIP] {
			continue
		}
		res.Resigned++
		if dryRun {
			continue
		}
		oldPrimary := emp.Primary()
		emp.Status = models.EmployeeResign
		if err := repo.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("resign employee %s: %w", emp.NIP, err)
		}
		if err := repo.DeactivatePositions(ctx, emp.ID); err != nil {
			return fmt.Errorf("deactivate positions of %s: %w", emp.NIP, err)
		}
		if err := rec.Employee(ctx, emp, models.ActionResign, oldPrimary); err != nil {
			return err
		}
		fx.resigned = append(fx.resigned, emp)
	}
	return nil
}

// applySideEffects runs the post-commit hooks. All of them are
// best-effort: the import already committed, so failures are logged but
// never propagated.
func (p *Planner) applySideEffects(ctx context.Context, fx *sideEffects) {
	if p.provisioner != nil {
		for _, emp := range fx.activated {
			if err := p.provisioner.ActivateAccount(ctx, emp); err != nil {
				p.logger.Warn("account activation failed",
					zap.String("nip", emp.NIP), zap.Error(err))
			}
		}
	}
	for _, emp := range fx.resigned {
		if p.provisioner != nil {
			if err := p.provisioner.DeactivateAccount(ctx, emp); err != nil {
				p.logger.Warn("account deactivation failed",
					zap.String("nip", emp.NIP), zap.Error(err))
			}
		}
		if err := p.repo.InvalidateCertifications(ctx, emp.ID); err != nil {
			p.logger.Warn("certification invalidation failed",
				zap.String("nip", emp.NIP), zap.Error(err))
		}
		if p.producer != nil {
			p.producer.Produce(events.CertificationInvalidated, emp.ID)
		}
	}
	if p.producer != nil {
		for _, id := range fx.rehired {
			p.producer.Produce(events.EmployeeRehired, id)
		}
	}
}

func (p *Planner) resolvePositions(ctx context.Context, resv *resolver.Resolver, row *RosterRow) ([]models.EmployeePosition, error) {
	primary, err := resolveOne(ctx, resv, models.PositionPrimary,
		row.Regional, row.Division, row.Unit, row.JobTitle, row.EffectiveDate)
	if err != nil {
		return nil, err
	}
	positions := []models.EmployeePosition{*primary}

	if row.HasSecondary {
		secondary, err := resolveOne(ctx, resv, models.PositionSecondary,
			row.Regional2, row.Division2, row.Unit2, row.JobTitle2, row.EffectiveDate2)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *secondary)
	}
	return positions, nil
}

func resolveOne(ctx context.Context, resv *resolver.Resolver, kind models.PositionKind, regional, division, unit, job string, effective time.Time) (*models.EmployeePosition, error) {
	regID, err := resv.Resolve(ctx, models.OrgRegional, regional)
	if err != nil {
		return nil, fmt.Errorf("regional %q: %w", regional, err)
	}
	divID, err := resv.Resolve(ctx, models.OrgDivision, division)
	if err != nil {
		return nil, fmt.Errorf("division %q: %w", division, err)
	}
	unitID, err := resv.Resolve(ctx, models.OrgUnit, unit)
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", unit, err)
	}
	jobID, err := resv.Resolve(ctx, models.OrgJobPosition, job)
	if err != nil {
		return nil, fmt.Errorf("job title %q: %w", job, err)
	}
	return &models.EmployeePosition{
		ID:            uuid.New(),
		Kind:          kind,
		RegionalID:    regID,
		DivisionID:    divID,
		UnitID:        unitID,
		JobPositionID: jobID,
		EffectiveDate: effective,
		Active:        true,
	}, nil
}

// dedupeRows drops repeated NIPs, keeping the first occurrence, and
// reports one error entry per duplicate naming every row it appeared on.
func dedupeRows(rows []RosterRow, res *Result) ([]RosterRow, map[string]bool) {
	byNIP := make(map[string][]int)
	for _, r := range rows {
		if r.NIP != "" {
			byNIP[r.NIP] = append(byNIP[r.NIP], r.Row)
		}
	}

	seen := make(map[string]bool, len(rows))
	reported := make(map[string]bool)
	kept := rows[:0:0]
	for _, r := range rows {
		seen[r.NIP] = true
		if len(byNIP[r.NIP]) > 1 {
			if reported[r.NIP] {
				continue
			}
			reported[r.NIP] = true
			res.Errors = append(res.Errors,
				fmt.Sprintf("duplicate NIP %s at rows %v", r.NIP, byNIP[r.NIP]))
		}
		kept = append(kept, r)
	}
	return kept, seen
}

func positionOf(positions []models.EmployeePosition, kind models.PositionKind) *models.EmployeePosition {
	for i := range positions {
		if positions[i].Kind == kind {
			return &positions[i]
		}
	}
	return nil
}

// lastPosition returns the most recent position of a kind regardless of
// the active flag, the "last known state" a rehire compares against.
func lastPosition(emp *models.Employee, kind models.PositionKind) *models.EmployeePosition {
	var last *models.EmployeePosition
	for i := range emp.Positions {
		p := &emp.Positions[i]
		if p.Kind != kind {
			continue
		}
		if last == nil || p.CreatedAt.After(last.CreatedAt) {
			last = p
		}
	}
	return last
}

func normalizeGender(s string) models.Gender {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE", "L", "LAKI-LAKI":
		return models.GenderMale
	case "F", "FEMALE", "P", "PEREMPUAN":
		return models.GenderFemale
	}
	return ""
}
