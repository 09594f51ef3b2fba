package eligibility

import (
	"testing"
	"time"

	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rule := &models.CertificationRule{
		ValidityMonths:           24,
		ReminderMonths:           3,
		MandatoryAfterHireMonths: 6,
	}

	cert := func(validUntil time.Time) *models.EmployeeCertification {
		return &models.EmployeeCertification{
			Status:     models.CertificationActive,
			ValidUntil: validUntil,
		}
	}

	tests := []struct {
		name       string
		hireDate   time.Time
		cert       *models.EmployeeCertification
		wantStatus models.EligibilityStatus
		wantDue    time.Time
	}{
		{
			name:       "no certificate inside hire grace window",
			hireDate:   now.AddDate(0, -2, 0),
			cert:       nil,
			wantStatus: models.EligibilityNotYetCertified,
			wantDue:    now.AddDate(0, 4, 0),
		},
		{
			name:       "no certificate after hire grace window",
			hireDate:   now.AddDate(0, -8, 0),
			cert:       nil,
			wantStatus: models.EligibilityExpired,
			wantDue:    now.AddDate(0, -2, 0),
		},
		{
			name:       "certificate valid well beyond reminder window",
			hireDate:   now.AddDate(-2, 0, 0),
			cert:       cert(now.AddDate(0, 0, 200)),
			wantStatus: models.EligibilityActive,
			wantDue:    now.AddDate(0, 0, 200),
		},
		{
			name:       "certificate inside reminder window",
			hireDate:   now.AddDate(-2, 0, 0),
			cert:       cert(now.AddDate(0, 0, 60)),
			wantStatus: models.EligibilityDue,
			wantDue:    now.AddDate(0, 0, 60),
		},
		{
			name:       "certificate exactly at reminder boundary",
			hireDate:   now.AddDate(-2, 0, 0),
			cert:       cert(now.AddDate(0, 3, 0)),
			wantStatus: models.EligibilityDue,
			wantDue:    now.AddDate(0, 3, 0),
		},
		{
			name:       "certificate past expiry",
			hireDate:   now.AddDate(-2, 0, 0),
			cert:       cert(now.AddDate(0, 0, -1)),
			wantStatus: models.EligibilityExpired,
			wantDue:    now.AddDate(0, 0, -1),
		},
		{
			name:       "certificate expiring this instant",
			hireDate:   now.AddDate(-2, 0, 0),
			cert:       cert(now),
			wantStatus: models.EligibilityExpired,
			wantDue:    now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, due := DeriveStatus(rule, tt.hireDate, tt.cert, now)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDue, due)
		})
	}
}

func TestBestCertificate(t *testing.T) {
	ruleID := uuid.New()
	now := time.Now()

	certs := []models.EmployeeCertification{
		{RuleID: ruleID, Status: models.CertificationActive, ValidUntil: now.AddDate(1, 0, 0)},
		{RuleID: ruleID, Status: models.CertificationActive, ValidUntil: now.AddDate(2, 0, 0)},
		{RuleID: ruleID, Status: models.CertificationInvalidated, ValidUntil: now.AddDate(5, 0, 0)},
	}

	best := bestCertificate(certs)
	if assert.Contains(t, best, ruleID) {
		assert.Equal(t, certs[1].ValidUntil, best[ruleID].ValidUntil, "latest non-invalidated certificate wins")
	}
}
