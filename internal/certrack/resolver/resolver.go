// Package resolver turns free-text org names from roster rows into
// persisted reference records, creating them on demand.
package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the subset of the repository the resolver needs.
type Store interface {
	FindRegionalByName(ctx context.Context, name string) (*models.Regional, error)
	FindDivisionByName(ctx context.Context, name string) (*models.Division, error)
	FindUnitByName(ctx context.Context, name string) (*models.Unit, error)
	FindJobPositionByName(ctx context.Context, name string) (*models.JobPosition, error)
	CreateRegional(ctx context.Context, name string) (*models.Regional, error)
	CreateDivision(ctx context.Context, name string) (*models.Division, error)
	CreateUnit(ctx context.Context, name string) (*models.Unit, error)
	CreateJobPosition(ctx context.Context, name string) (*models.JobPosition, error)
}

var _ Store = (*db.Repository)(nil)

// Resolver caches resolved names per org kind, case-insensitively. One
// resolver serves one import run; later chunks see names created by
// earlier ones through the cache.
type Resolver struct {
	store  Store
	logger *zap.Logger
	// dryRun disables creation; unresolved names come back as nil ids.
	dryRun bool
	cache  map[models.OrgKind]map[string]uuid.UUID
}

func New(store Store, logger *zap.Logger, dryRun bool) *Resolver {
	cache := make(map[models.OrgKind]map[string]uuid.UUID, 4)
	for _, kind := range []models.OrgKind{models.OrgRegional, models.OrgDivision, models.OrgUnit, models.OrgJobPosition} {
		cache[kind] = make(map[string]uuid.UUID)
	}
	return &Resolver{
		store:  store,
		logger: logger.Named("org_resolver"),
		dryRun: dryRun,
		cache:  cache,
	}
}

// Resolve maps a name of the given kind to its record id. In dry-run
// mode missing names return ErrUnresolvedName instead of being created.
func (r *Resolver) Resolve(ctx context.Context, kind models.OrgKind, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, e.ErrUnresolvedName
	}
	key := strings.ToLower(name)
	if id, ok := r.cache[kind][key]; ok {
		return id, nil
	}

	id, err := r.lookup(ctx, kind, name)
	if err == nil {
		r.cache[kind][key] = id
		return id, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return uuid.Nil, err
	}

	if r.dryRun {
		return uuid.Nil, e.ErrUnresolvedName
	}

	id, err = r.create(ctx, kind, name)
	if err != nil {
		return uuid.Nil, err
	}
	r.logger.Info("created org record",
		zap.String("kind", string(kind)),
		zap.String("name", name),
	)
	r.cache[kind][key] = id
	return id, nil
}

func (r *Resolver) lookup(ctx context.Context, kind models.OrgKind, name string) (uuid.UUID, error) {
	switch kind {
	case models.OrgRegional:
		reg, err := r.store.FindRegionalByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return reg.ID, nil
	case models.OrgDivision:
		div, err := r.store.FindDivisionByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return div.ID, nil
	case models.OrgUnit:
		unit, err := r.store.FindUnitByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return unit.ID, nil
	case models.OrgJobPosition:
		job, err := r.store.FindJobPositionByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return job.ID, nil
	}
	return uuid.Nil, e.ErrNotFound
}

func (r *Resolver) create(ctx context.Context, kind models.OrgKind, name string) (uuid.UUID, error) {
	switch kind {
	case models.OrgRegional:
		reg, err := r.store.CreateRegional(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return reg.ID, nil
	case models.OrgDivision:
		div, err := r.store.CreateDivision(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return div.ID, nil
	case models.OrgUnit:
		unit, err := r.store.CreateUnit(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return unit.ID, nil
	case models.OrgJobPosition:
		job, err := r.store.CreateJobPosition(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return job.ID, nil
	}
	return uuid.Nil, e.ErrUnresolvedName
}
