package db

import (
	"context"
	"errors"

	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Org lookups are case-insensitive on the name; roster text arrives in
// inconsistent casing.

func (r *Repository) findOrgByName(ctx context.Context, dest interface{}, name string) error {
	result := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(dest)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return e.ErrNotFound
		}
		return result.Error
	}
	return nil
}

func (r *Repository) FindRegionalByName(ctx context.Context, name string) (*models.Regional, error) {
	var reg models.Regional
	if err := r.findOrgByName(ctx, &reg, name); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) FindDivisionByName(ctx context.Context, name string) (*models.Division, error) {
	var div models.Division
	if err := r.findOrgByName(ctx, &div, name); err != nil {
		return nil, err
	}
	return &div, nil
}

func (r *Repository) FindUnitByName(ctx context.Context, name string) (*models.Unit, error) {
	var unit models.Unit
	if err := r.findOrgByName(ctx, &unit, name); err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *Repository) FindJobPositionByName(ctx context.Context, name string) (*models.JobPosition, error) {
	var job models.JobPosition
	if err := r.findOrgByName(ctx, &job, name); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Repository) CreateRegional(ctx context.Context, name string) (*models.Regional, error) {
	reg := &models.Regional{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(reg).Error; err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Repository) CreateDivision(ctx context.Context, name string) (*models.Division, error) {
	div := &models.Division{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(div).Error; err != nil {
		return nil, err
	}
	return div, nil
}

func (r *Repository) CreateUnit(ctx context.Context, name string) (*models.Unit, error) {
	unit := &models.Unit{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(unit).Error; err != nil {
		return nil, err
	}
	return unit, nil
}

func (r *Repository) CreateJobPosition(ctx context.Context, name string) (*models.JobPosition, error) {
	job := &models.JobPosition{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// OrgNames resolves the display names behind a position's org references,
// used when recording history snapshots. Missing rows come back empty.
func (r *Repository) OrgNames(ctx context.Context, pos *models.EmployeePosition) (regional, division, unit, job string) {
	if pos == nil {
		return "", "", "", ""
	}
	var reg models.Regional
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", pos.RegionalID).Error; err == nil {
		regional = reg.Name
	}
	var div models.Division
	if err := r.db.WithContext(ctx).First(&div, "id = ?", pos.DivisionID).Error; err == nil {
		division = div.Name
	}
	var u models.Unit
	if err := r.db.WithContext(ctx).First(&u, "id = ?", pos.UnitID).Error; err == nil {
		unit = u.Name
	}
	var jp models.JobPosition
	if err := r.db.WithContext(ctx).First(&jp, "id = ?", pos.JobPositionID).Error; err == nil {
		job = jp.Name
	}
	return regional, division, unit, job
}
