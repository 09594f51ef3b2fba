package db

import (
	"context"
	"errors"
	"time"

	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// RecordNotificationResult stores the outcome of one send attempt on the
// notification row.
func (r *Repository) RecordNotificationResult(ctx context.Context, id uuid.UUID, success bool, errMsg string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"success":       success,
			"error_message": errMsg,
			"sent_at":       sentAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, employeeID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Where("employee_id = ?", employeeID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var rows []models.Notification
	result := q.Order("created_at DESC").Find(&rows)
	return rows, result.Error
}

func (r *Repository) GetSchedule(ctx context.Context, typ models.NotificationType) (*models.NotificationSchedule, error) {
	var s models.NotificationSchedule
	result := r.db.WithContext(ctx).First(&s, "type = ?", typ)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &s, nil
}

func (r *Repository) SaveSchedule(ctx context.Context, s *models.NotificationSchedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(s).Error
}

// AdvanceScheduleLastRun stamps the schedule after a completed run. It is
// not called on skipped days.
func (r *Repository) AdvanceScheduleLastRun(ctx context.Context, typ models.NotificationType, ranAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.NotificationSchedule{}).
		Where("type = ?", typ).
		Update("last_run", ranAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
