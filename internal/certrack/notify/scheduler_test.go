package notify

import (
	"context"
	"testing"
	"time"

	"github.com/danupranata/certrack/internal/certrack/db"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/danupranata/certrack/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) *db.Repository {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return db.NewWithDB(gdb)
}

func TestShouldRun(t *testing.T) {
	// a Monday morning
	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	saturday := time.Date(2025, 6, 7, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		sched *models.NotificationSchedule
		at    time.Time
		want  bool
	}{
		{"nil schedule", nil, now, false},
		{"inactive", &models.NotificationSchedule{Active: false}, now, false},
		{"active no constraints", &models.NotificationSchedule{Active: true}, now, true},
		{"weekend skipped", &models.NotificationSchedule{Active: true, SkipWeekend: true}, saturday, false},
		{"weekend allowed when not skipping", &models.NotificationSchedule{Active: true}, saturday, true},
		{
			"already ran today",
			&models.NotificationSchedule{Active: true, LastRun: utils.Ptr(now.Add(-2 * time.Hour))},
			now, false,
		},
		{
			"ran yesterday",
			&models.NotificationSchedule{Active: true, LastRun: utils.Ptr(now.AddDate(0, 0, -1))},
			now, true,
		},
		{
			"before time of day",
			&models.NotificationSchedule{Active: true, TimeOfDay: "10:00"},
			now, false,
		},
		{
			"after time of day",
			&models.NotificationSchedule{Active: true, TimeOfDay: "08:00"},
			now, true,
		},
		{
			"unparseable time of day ignored",
			&models.NotificationSchedule{Active: true, TimeOfDay: "later"},
			now, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRun(tt.sched, tt.at))
		})
	}
}

type schedulerFixture struct {
	repo  *db.Repository
	sched *Scheduler
	now   time.Time
	emp   *models.Employee
	rule  *models.CertificationRule
}

func setupScheduler(t *testing.T) *schedulerFixture {
	repo := setupRepo(t)
	ctx := context.Background()

	emp := &models.Employee{
		ID:       uuid.New(),
		NIP:      "100",
		Name:     "Andi",
		Email:    "andi@bank.example",
		Status:   models.EmployeeActive,
		HireDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateEmployee(ctx, emp))

	rule := &models.CertificationRule{
		ID:             uuid.New(),
		Certification:  "Manajemen Risiko",
		Level:          "1",
		ValidityMonths: 24,
		ReminderMonths: 3,
	}
	require.NoError(t, repo.CreateRule(ctx, rule))

	s := NewScheduler(repo, nil, zaptest.NewLogger(t))
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	return &schedulerFixture{repo: repo, sched: s, now: now, emp: emp, rule: rule}
}

func (f *schedulerFixture) activateSchedule(t *testing.T, typ models.NotificationType) {
	require.NoError(t, f.repo.SaveSchedule(context.Background(), &models.NotificationSchedule{
		Type:   typ,
		Active: true,
	}))
}

func TestRunTypeCertReminder(t *testing.T) {
	f := setupScheduler(t)
	ctx := context.Background()
	f.activateSchedule(t, models.NotifCertReminder)

	inWindow := &models.EmployeeCertification{
		ID: uuid.New(), EmployeeID: f.emp.ID, RuleID: f.rule.ID,
		Status: models.CertificationActive, ValidUntil: f.now.AddDate(0, 1, 0),
	}
	outOfWindow := &models.EmployeeCertification{
		ID: uuid.New(), EmployeeID: f.emp.ID, RuleID: f.rule.ID,
		Status: models.CertificationActive, ValidUntil: f.now.AddDate(2, 0, 0),
	}
	require.NoError(t, f.repo.CreateCertification(ctx, inWindow))
	require.NoError(t, f.repo.CreateCertification(ctx, outOfWindow))

	require.NoError(t, f.sched.RunType(ctx, models.NotifCertReminder))

	rows, err := f.repo.ListNotifications(ctx, f.emp.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the certificate inside its reminder window is notified")
	assert.Equal(t, models.NotifCertReminder, rows[0].Type)
	require.NotNil(t, rows[0].RelatedID)
	assert.Equal(t, inWindow.ID, *rows[0].RelatedID)

	sched, err := f.repo.GetSchedule(ctx, models.NotifCertReminder)
	require.NoError(t, err)
	require.NotNil(t, sched.LastRun)
	assert.True(t, sameDay(*sched.LastRun, f.now))
}

func TestRunTypeSkipsWhenAlreadyRanToday(t *testing.T) {
	f := setupScheduler(t)
	ctx := context.Background()

	earlier := f.now.Add(-3 * time.Hour)
	require.NoError(t, f.repo.SaveSchedule(ctx, &models.NotificationSchedule{
		Type:    models.NotifCertReminder,
		Active:  true,
		LastRun: &earlier,
	}))
	require.NoError(t, f.repo.CreateCertification(ctx, &models.EmployeeCertification{
		ID: uuid.New(), EmployeeID: f.emp.ID, RuleID: f.rule.ID,
		Status: models.CertificationActive, ValidUntil: f.now.AddDate(0, 1, 0),
	}))

	require.NoError(t, f.sched.RunType(ctx, models.NotifCertReminder))

	rows, err := f.repo.ListNotifications(ctx, f.emp.ID, false)
	require.NoError(t, err)
	assert.Empty(t, rows)

	sched, err := f.repo.GetSchedule(ctx, models.NotifCertReminder)
	require.NoError(t, err)
	require.NotNil(t, sched.LastRun)
	assert.WithinDuration(t, earlier, *sched.LastRun, time.Second, "a skipped run leaves LastRun untouched")
}

func TestRunTypeSkipsWeekend(t *testing.T) {
	f := setupScheduler(t)
	ctx := context.Background()

	require.NoError(t, f.repo.SaveSchedule(ctx, &models.NotificationSchedule{
		Type:        models.NotifCertReminder,
		Active:      true,
		SkipWeekend: true,
	}))
	require.NoError(t, f.repo.CreateCertification(ctx, &models.EmployeeCertification{
		ID: uuid.New(), EmployeeID: f.emp.ID, RuleID: f.rule.ID,
		Status: models.CertificationActive, ValidUntil: f.now.AddDate(0, 1, 0),
	}))

	// a Saturday
	f.sched.now = func() time.Time { return time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, f.sched.RunType(ctx, models.NotifCertReminder))

	rows, err := f.repo.ListNotifications(ctx, f.emp.ID, false)
	require.NoError(t, err)
	assert.Empty(t, rows)

	sched, err := f.repo.GetSchedule(ctx, models.NotifCertReminder)
	require.NoError(t, err)
	assert.Nil(t, sched.LastRun, "a weekend skip must not advance LastRun")
}

func TestRunTypeWithoutScheduleIsNoop(t *testing.T) {
	f := setupScheduler(t)
	assert.NoError(t, f.sched.RunType(context.Background(), models.NotifExpired))
}

func TestRunTypeExpiredNotice(t *testing.T) {
	f := setupScheduler(t)
	ctx := context.Background()
	f.activateSchedule(t, models.NotifExpired)

	require.NoError(t, f.repo.CreateCertification(ctx, &models.EmployeeCertification{
		ID: uuid.New(), EmployeeID: f.emp.ID, RuleID: f.rule.ID,
		Status: models.CertificationActive, ValidUntil: f.now.AddDate(0, -1, 0),
	}))

	require.NoError(t, f.sched.RunType(ctx, models.NotifExpired))

	rows, err := f.repo.ListNotifications(ctx, f.emp.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotifExpired, rows[0].Type)
}

func TestRunTypeBatchNotice(t *testing.T) {
	f := setupScheduler(t)
	ctx := context.Background()
	f.activateSchedule(t, models.NotifBatch)

	soon := &models.Batch{
		ID: uuid.New(), Name: "MR refresher", Type: models.BatchRefreshment,
		RuleID: f.rule.ID, StartDate: f.now.AddDate(0, 0, 3),
	}
	far := &models.Batch{
		ID: uuid.New(), Name: "MR next quarter", Type: models.BatchRefreshment,
		RuleID: f.rule.ID, StartDate: f.now.AddDate(0, 1, 0),
	}
	require.NoError(t, f.repo.CreateBatch(ctx, soon))
	require.NoError(t, f.repo.CreateBatch(ctx, far))
	for _, b := range []*models.Batch{soon, far} {
		require.NoError(t, f.repo.RegisterEmployeeBatch(ctx, &models.EmployeeBatch{
			ID: uuid.New(), BatchID: b.ID, EmployeeID: f.emp.ID, Result: models.BatchResultRegistered,
		}))
	}

	require.NoError(t, f.sched.RunType(ctx, models.NotifBatch))

	rows, err := f.repo.ListNotifications(ctx, f.emp.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only batches starting within the notice window are announced")
	assert.Equal(t, models.NotifBatch, rows[0].Type)
	require.NotNil(t, rows[0].RelatedID)
	assert.Equal(t, soon.ID, *rows[0].RelatedID)
}
