package resolver

import (
	"context"
	"testing"

	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/models"
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

func TestResolveCreatesMissingRecord(t *testing.T) {
	repo := setupRepo(t)
	r := New(repo, zaptest.NewLogger(t), false)
	ctx := context.Background()

	id, err := r.Resolve(ctx, models.OrgRegional, "Kantor Pusat")
	require.NoError(t, err)

	reg, err := repo.FindRegionalByName(ctx, "Kantor Pusat")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, id)
}

func TestResolveCaseInsensitive(t *testing.T) {
	repo := setupRepo(t)
	r := New(repo, zaptest.NewLogger(t), false)
	ctx := context.Background()

	first, err := r.Resolve(ctx, models.OrgDivision, "Divisi Kepatuhan")
	require.NoError(t, err)

	second, err := r.Resolve(ctx, models.OrgDivision, "DIVISI KEPATUHAN")
	require.NoError(t, err)
	assert.Equal(t, first, second, "name casing must not duplicate org records")
}

func TestResolveFindsExistingRecord(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	unit, err := repo.CreateUnit(ctx, "Unit Sertifikasi")
	require.NoError(t, err)

	r := New(repo, zaptest.NewLogger(t), false)
	id, err := r.Resolve(ctx, models.OrgUnit, "unit sertifikasi")
	require.NoError(t, err)
	assert.Equal(t, unit.ID, id)
}

func TestResolveCaches(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	job, err := repo.CreateJobPosition(ctx, "Analis")
	require.NoError(t, err)

	// countingStore fails every call after the first lookup; a second
	// Resolve of the same name must be served from the cache.
	r := New(&countingStore{Store: repo, budget: 1}, zaptest.NewLogger(t), false)

	id, err := r.Resolve(ctx, models.OrgJobPosition, "Analis")
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)

	id, err = r.Resolve(ctx, models.OrgJobPosition, "analis")
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)
}

func TestResolveDryRunNeverCreates(t *testing.T) {
	repo := setupRepo(t)
	r := New(repo, zaptest.NewLogger(t), true)
	ctx := context.Background()

	_, err := r.Resolve(ctx, models.OrgRegional, "Regional Baru")
	assert.ErrorIs(t, err, e.ErrUnresolvedName)

	_, err = repo.FindRegionalByName(ctx, "Regional Baru")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestResolveDryRunFindsExisting(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	reg, err := repo.CreateRegional(ctx, "Kantor Pusat")
	require.NoError(t, err)

	r := New(repo, zaptest.NewLogger(t), true)
	id, err := r.Resolve(ctx, models.OrgRegional, "Kantor Pusat")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, id)
}

func TestResolveBlankName(t *testing.T) {
	repo := setupRepo(t)
	r := New(repo, zaptest.NewLogger(t), false)

	_, err := r.Resolve(context.Background(), models.OrgUnit, "   ")
	assert.ErrorIs(t, err, e.ErrUnresolvedName)
}

type countingStore struct {
	Store
	budget int
}

func (c *countingStore) FindJobPositionByName(ctx context.Context, name string) (*models.JobPosition, error) {
	if c.budget <= 0 {
		return nil, assert.AnError
	}
	c.budget--
	return c.Store.FindJobPositionByName(ctx, name)
}
