package eligibility

import (
	"time"

	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
)

// DeriveStatus computes the eligibility status of one employee against
// one rule from the best certificate held (nil when none is usable) and
// the hire date.
//
//   - no certificate, inside hireDate + mandatory-after-hire window:
//     NOT_YET_CERTIFIED, due at the end of the window
//   - no certificate, window passed: EXPIRED
//   - certificate valid beyond the reminder window: ACTIVE
//   - certificate valid but within reminderMonths of expiry: DUE
//   - certificate past validUntil: EXPIRED
func DeriveStatus(rule *models.CertificationRule, hireDate time.Time, cert *models.EmployeeCertification, now time.Time) (models.EligibilityStatus, time.Time) {
	if cert == nil {
		grace := hireDate.AddDate(0, rule.MandatoryAfterHireMonths, 0)
		if now.Before(grace) {
			return models.EligibilityNotYetCertified, grace
		}
		return models.EligibilityExpired, grace
	}

	if !cert.ValidUntil.After(now) {
		return models.EligibilityExpired, cert.ValidUntil
	}
	reminderStart := cert.ValidUntil.AddDate(0, -rule.ReminderMonths, 0)
	if !now.Before(reminderStart) {
		return models.EligibilityDue, cert.ValidUntil
	}
	return models.EligibilityActive, cert.ValidUntil
}

// bestCertificate picks the certificate with the latest validity per
// rule, ignoring invalidated ones.
func bestCertificate(certs []models.EmployeeCertification) map[uuid.UUID]*models.EmployeeCertification {
	best := make(map[uuid.UUID]*models.EmployeeCertification)
	for i := range certs {
		c := &certs[i]
		if c.Status == models.CertificationInvalidated {
			continue
		}
		cur, ok := best[c.RuleID]
		if !ok || c.ValidUntil.After(cur.ValidUntil) {
			best[c.RuleID] = c
		}
	}
	return best
}
