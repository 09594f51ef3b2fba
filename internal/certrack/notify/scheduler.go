// Package notify implements the daily reminder scheduler and the mail
// worker pool it dispatches through.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the repository surface the scheduler scans and writes.
type Store interface {
	GetSchedule(ctx context.Context, typ models.NotificationType) (*models.NotificationSchedule, error)
	AdvanceScheduleLastRun(ctx context.Context, typ models.NotificationType, ranAt time.Time) error
	ListCertificationsExpiringBy(ctx context.Context, now, until time.Time) ([]models.EmployeeCertification, error)
	ListExpiredCertifications(ctx context.Context, now time.Time) ([]models.EmployeeCertification, error)
	RulesByID(ctx context.Context) (map[uuid.UUID]models.CertificationRule, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListUpcomingBatches(ctx context.Context, from, to time.Time) ([]models.Batch, error)
	ListBatchParticipants(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error)
}

var _ Store = (*db.Repository)(nil)

// batchNoticeWindow is how far ahead BATCH_NOTIFICATION looks.
const batchNoticeWindow = 7 * 24 * time.Hour

type Scheduler struct {
	store  Store
	pool   *Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewScheduler(store Store, pool *Pool, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		pool:   pool,
		logger: logger.Named("notification_scheduler"),
		now:    time.Now,
	}
}

// ShouldRun decides whether a schedule fires now. LastRun is compared by
// calendar day so a type never fires twice in one day; skipped days
// (inactive, weekend, already ran, before time-of-day) leave LastRun
// untouched.
func ShouldRun(s *models.NotificationSchedule, now time.Time) bool {
	if s == nil || !s.Active {
		return false
	}
	if s.SkipWeekend {
		switch now.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	if s.LastRun != nil && sameDay(*s.LastRun, now) {
		return false
	}
	if s.TimeOfDay != "" {
		at, err := time.Parse("15:04", s.TimeOfDay)
		if err == nil {
			fires := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
			if now.Before(fires) {
				return false
			}
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// RunType executes one notification type's daily scan if its schedule
// allows, then advances LastRun.
func (s *Scheduler) RunType(ctx context.Context, typ models.NotificationType) error {
	sched, err := s.store.GetSchedule(ctx, typ)
	if errors.Is(err, e.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load schedule %s: %w", typ, err)
	}

	now := s.now()
	if !ShouldRun(sched, now) {
		return nil
	}

	switch typ {
	case models.NotifCertReminder:
		err = s.runCertReminder(ctx, now)
	case models.NotifExpired:
		err = s.runExpiredNotice(ctx, now)
	case models.NotifBatch:
		err = s.runBatchNotice(ctx, now)
	default:
		return fmt.Errorf("%w: unknown notification type %q", e.ErrInvalidInput, typ)
	}
	if err != nil {
		return err
	}

	if err := s.store.AdvanceScheduleLastRun(ctx, typ, now); err != nil {
		return fmt.Errorf("advance last run: %w", err)
	}
	return nil
}

// runCertReminder notifies holders of certificates that entered their
// rule's reminder window.
func (s *Scheduler) runCertReminder(ctx context.Context, now time.Time) error {
	rules, err := s.store.RulesByID(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	maxMonths := 0
	for _, rule := range rules {
		if rule.ReminderMonths > maxMonths {
			maxMonths = rule.ReminderMonths
		}
	}
	if maxMonths == 0 {
		return nil
	}

	certs, err := s.store.ListCertificationsExpiringBy(ctx, now, now.AddDate(0, maxMonths, 0))
	if err != nil {
		return fmt.Errorf("scan expiring certifications: %w", err)
	}

	sent := 0
	for i := range certs {
		cert := &certs[i]
		rule, ok := rules[cert.RuleID]
		if !ok {
			continue
		}
		reminderStart := cert.ValidUntil.AddDate(0, -rule.ReminderMonths, 0)
		if now.Before(reminderStart) {
			continue
		}
		title := fmt.Sprintf("Certification %s expires on %s", rule.Certification, cert.ValidUntil.Format("2006-01-02"))
		body := fmt.Sprintf("Your %s (%s/%s) certification number %s is due for renewal by %s.",
			rule.Certification, rule.Level, rule.Subfield, cert.Number, cert.ValidUntil.Format("2006-01-02"))
		if err := s.notify(ctx, models.NotifCertReminder, cert, title, body); err != nil {
			s.logger.Warn("failed to enqueue reminder",
				zap.String("certification_id", cert.ID.String()), zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Info("cert reminder run complete", zap.Int("notified", sent))
	return nil
}

// runExpiredNotice notifies holders of certificates already past their
// validity.
func (s *Scheduler) runExpiredNotice(ctx context.Context, now time.Time) error {
	rules, err := s.store.RulesByID(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	certs, err := s.store.ListExpiredCertifications(ctx, now)
	if err != nil {
		return fmt.Errorf("scan expired certifications: %w", err)
	}

	sent := 0
	for i := range certs {
		cert := &certs[i]
		rule, ok := rules[cert.RuleID]
		if !ok {
			continue
		}
		title := fmt.Sprintf("Certification %s expired", rule.Certification)
		body := fmt.Sprintf("Your %s (%s/%s) certification number %s expired on %s.",
			rule.Certification, rule.Level, rule.Subfield, cert.Number, cert.ValidUntil.Format("2006-01-02"))
		if err := s.notify(ctx, models.NotifExpired, cert, title, body); err != nil {
			s.logger.Warn("failed to enqueue expired notice",
				zap.String("certification_id", cert.ID.String()), zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Info("expired notice run complete", zap.Int("notified", sent))
	return nil
}

// runBatchNotice reminds registered participants of batches starting
// within the coming week.
func (s *Scheduler) runBatchNotice(ctx context.Context, now time.Time) error {
	batches, err := s.store.ListUpcomingBatches(ctx, now, now.Add(batchNoticeWindow))
	if err != nil {
		return fmt.Errorf("scan upcoming batches: %w", err)
	}
	sent := 0
	for i := range batches {
		b := &batches[i]
		participants, err := s.store.ListBatchParticipants(ctx, b.ID)
		if err != nil {
			s.logger.Warn("failed to list batch participants",
				zap.String("batch_id", b.ID.String()), zap.Error(err))
			continue
		}
		for _, employeeID := range participants {
			title := fmt.Sprintf("Upcoming batch: %s", b.Name)
			body := fmt.Sprintf("Batch %s starts on %s.", b.Name, b.StartDate.Format("2006-01-02"))
			n := &models.Notification{
				Type:        models.NotifBatch,
				EmployeeID:  employeeID,
				Title:       title,
				Body:        body,
				RelatedType: "batch",
				RelatedID:   &b.ID,
			}
			if err := s.dispatch(ctx, n); err != nil {
				s.logger.Warn("failed to enqueue batch notice",
					zap.String("batch_id", b.ID.String()), zap.Error(err))
				continue
			}
			sent++
		}
	}
	s.logger.Info("batch notice run complete", zap.Int("notified", sent))
	return nil
}

// notify builds one notification for the certificate's holder with a
// related-entity reference back to the certificate.
func (s *Scheduler) notify(ctx context.Context, typ models.NotificationType, cert *models.EmployeeCertification, title, body string) error {
	n := &models.Notification{
		Type:        typ,
		EmployeeID:  cert.EmployeeID,
		Title:       title,
		Body:        body,
		RelatedType: "employee_certification",
		RelatedID:   &cert.ID,
	}
	return s.dispatch(ctx, n)
}

// dispatch persists the notification row and hands delivery to the pool.
func (s *Scheduler) dispatch(ctx context.Context, n *models.Notification) error {
	emp, err := s.store.GetEmployee(ctx, n.EmployeeID)
	if err != nil {
		return fmt.Errorf("load employee: %w", err)
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if s.pool != nil && emp.Email != "" {
		s.pool.Enqueue(n.ID, emp.Email, n.Title, n.Body)
	}
	return nil
}
