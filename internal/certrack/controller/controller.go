// Package controller implements the core business logic (service layer)
// for certification rules, certificates, mappings and batches,
// orchestrating repository operations, history snapshots and events.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/events"
	"github.com/danupranata/certrack/internal/certrack/history"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, employeeID uuid.UUID)
}

// CertificationService mutates certification state. Every committed
// change to an employee's certifications produces a post-commit event so
// eligibility recomputes for that employee only.
type CertificationService struct {
	repo     *db.Repository
	producer EventProducer
	logger   *zap.Logger
}

func NewCertificationService(repo *db.Repository, producer EventProducer, logger *zap.Logger) *CertificationService {
	return &CertificationService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("certification_service"),
	}
}

// CreateRule stores a new certification rule and its CREATED snapshot.
func (s *CertificationService) CreateRule(ctx context.Context, rule *models.CertificationRule) (*models.CertificationRule, error) {
	if rule.Certification == "" {
		return nil, fmt.Errorf("%w: certification name required", e.ErrInvalidInput)
	}
	if rule.ValidityMonths <= 0 || rule.ReminderMonths < 0 || rule.MandatoryAfterHireMonths < 0 {
		return nil, fmt.Errorf("%w: invalid validity window", e.ErrInvalidInput)
	}

	rule.ID = uuid.New()
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.CreateRule(ctx, rule); err != nil {
			return err
		}
		return history.NewRecorder(repo, s.logger).Rule(ctx, rule, models.ActionCreated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// IssueCertification records a newly issued certificate. An empty
// ValidUntil is derived from the rule's validity window.
func (s *CertificationService) IssueCertification(ctx context.Context, cert *models.EmployeeCertification) (*models.EmployeeCertification, error) {
	if _, err := s.repo.GetEmployee(ctx, cert.EmployeeID); err != nil {
		return nil, fmt.Errorf("employee: %w", err)
	}
	rule, err := s.repo.GetRule(ctx, cert.RuleID)
	if err != nil {
		return nil, fmt.Errorf("rule: %w", err)
	}
	if cert.ValidFrom.IsZero() {
		cert.ValidFrom = cert.IssuedAt
	}
	if cert.ValidUntil.IsZero() {
		cert.ValidUntil = cert.ValidFrom.AddDate(0, rule.ValidityMonths, 0)
	}
	if !cert.ValidUntil.After(cert.ValidFrom) {
		return nil, fmt.Errorf("%w: valid_until not after valid_from", e.ErrInvalidInput)
	}

	cert.ID = uuid.New()
	cert.Status = models.CertificationActive
	err = s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.CreateCertification(ctx, cert); err != nil {
			return err
		}
		return history.NewRecorder(repo, s.logger).Certification(ctx, cert, models.ActionCreated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create certification: %w", err)
	}
	go func() {
		s.producer.Produce(events.CertificationCreated, cert.EmployeeID)
	}()
	return cert, nil
}

// UpdateCertification rewrites a certificate's mutable fields.
func (s *CertificationService) UpdateCertification(ctx context.Context, cert *models.EmployeeCertification) (*models.EmployeeCertification, error) {
	existing, err := s.repo.GetCertification(ctx, cert.ID)
	if err != nil {
		return nil, err
	}
	existing.Number = cert.Number
	existing.ValidFrom = cert.ValidFrom
	existing.ValidUntil = cert.ValidUntil
	existing.FileURL = cert.FileURL
	if cert.Status != "" {
		existing.Status = cert.Status
	}

	err = s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.SaveCertification(ctx, existing); err != nil {
			return err
		}
		return history.NewRecorder(repo, s.logger).Certification(ctx, existing, models.ActionUpdated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update certification: %w", err)
	}
	go func() {
		s.producer.Produce(events.CertificationUpdated, existing.EmployeeID)
	}()
	return existing, nil
}

// InvalidateCertification revokes one certificate.
func (s *CertificationService) InvalidateCertification(ctx context.Context, id uuid.UUID) error {
	cert, err := s.repo.GetCertification(ctx, id)
	if err != nil {
		return err
	}
	cert.Status = models.CertificationInvalidated

	err = s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.SaveCertification(ctx, cert); err != nil {
			return err
		}
		return history.NewRecorder(repo, s.logger).Certification(ctx, cert, models.ActionDeleted)
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate certification: %w", err)
	}
	go func() {
		s.producer.Produce(events.CertificationInvalidated, cert.EmployeeID)
	}()
	return nil
}

// CreateMapping attaches a rule to a job position.
func (s *CertificationService) CreateMapping(ctx context.Context, m *models.JobCertificationMapping) (*models.JobCertificationMapping, error) {
	m.ID = uuid.New()
	m.Active = true
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.CreateMapping(ctx, m); err != nil {
			return err
		}
		return history.NewRecorder(repo, s.logger).Mapping(ctx, m, models.ActionCreated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping: %w", err)
	}
	return m, nil
}

// SetMappingActive toggles a mapping without deleting it.
func (s *CertificationService) SetMappingActive(ctx context.Context, id uuid.UUID, active bool) error {
	m, err := s.repo.GetMapping(ctx, id)
	if err != nil {
		return err
	}
	if m.Active == active {
		return nil
	}
	m.Active = active
	err = s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.SaveMapping(ctx, m); err != nil {
			return err
		}
		return history.NewRecorder(repo, s.logger).Mapping(ctx, m, models.ActionUpdated)
	})
	if err != nil {
		return fmt.Errorf("failed to toggle mapping: %w", err)
	}
	return nil
}

// SetException installs or updates an eligibility exception for one
// (employee, rule) pair.
func (s *CertificationService) SetException(ctx context.Context, exc *models.EmployeeEligibilityException) error {
	if _, err := s.repo.GetEmployee(ctx, exc.EmployeeID); err != nil {
		return fmt.Errorf("employee: %w", err)
	}
	if _, err := s.repo.GetRule(ctx, exc.RuleID); err != nil {
		return fmt.Errorf("rule: %w", err)
	}
	if exc.ID == uuid.Nil {
		exc.ID = uuid.New()
		if err := s.repo.CreateException(ctx, exc); err != nil {
			return fmt.Errorf("failed to create exception: %w", err)
		}
	} else if err := s.repo.SaveException(ctx, exc); err != nil {
		return fmt.Errorf("failed to update exception: %w", err)
	}
	go func() {
		s.producer.Produce(events.CertificationUpdated, exc.EmployeeID)
	}()
	return nil
}

// CreateBatch schedules a new training/certification event.
func (s *CertificationService) CreateBatch(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	if b.Name == "" {
		return nil, fmt.Errorf("%w: batch name required", e.ErrInvalidInput)
	}
	if _, err := s.repo.GetRule(ctx, b.RuleID); err != nil {
		return nil, fmt.Errorf("rule: %w", err)
	}
	b.ID = uuid.New()
	if err := s.repo.CreateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	return b, nil
}

// RecordBatchResult stores one participant's outcome and signals the
// eligibility engine, since passed batches feed the counters.
func (s *CertificationService) RecordBatchResult(ctx context.Context, eb *models.EmployeeBatch) error {
	if _, err := s.repo.GetEmployee(ctx, eb.EmployeeID); err != nil {
		return fmt.Errorf("employee: %w", err)
	}
	if eb.ID == uuid.Nil {
		eb.ID = uuid.New()
		eb.CreatedAt = time.Now()
		if err := s.repo.RegisterEmployeeBatch(ctx, eb); err != nil {
			return fmt.Errorf("failed to register participation: %w", err)
		}
	} else if err := s.repo.SaveEmployeeBatch(ctx, eb); err != nil {
		return fmt.Errorf("failed to record batch result: %w", err)
	}
	go func() {
		s.producer.Produce(events.BatchResultRecorded, eb.EmployeeID)
	}()
	return nil
}
