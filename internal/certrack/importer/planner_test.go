package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/events"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockProvisioner struct {
	activated   []string
	deactivated []string
}

func (m *mockProvisioner) ActivateAccount(_ context.Context, emp *models.Employee) error {
	m.activated = append(m.activated, emp.NIP)
	return nil
}

func (m *mockProvisioner) DeactivateAccount(_ context.Context, emp *models.Employee) error {
	m.deactivated = append(m.deactivated, emp.NIP)
	return nil
}

type mockProducer struct {
	events []events.EventType
}

func (m *mockProducer) Produce(eventType events.EventType, _ uuid.UUID) {
	m.events = append(m.events, eventType)
}

type plannerFixture struct {
	repo        *db.Repository
	planner     *Planner
	provisioner *mockProvisioner
	producer    *mockProducer
}

func setupPlanner(t *testing.T) *plannerFixture {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	prov := &mockProvisioner{}
	prod := &mockProducer{}
	repo := db.NewWithDB(gdb)
	return &plannerFixture{
		repo:        repo,
		planner:     NewPlanner(repo, prov, prod, zaptest.NewLogger(t), 2),
		provisioner: prov,
		producer:    prod,
	}
}

func rosterRow(num int, nip, name string) RosterRow {
	return RosterRow{
		Row:           num,
		Regional:      "Kantor Pusat",
		Division:      "Divisi Kepatuhan",
		Unit:          "Unit Sertifikasi",
		JobTitle:      "Analis Kepatuhan",
		NIP:           nip,
		Name:          name,
		Gender:        "L",
		Email:         nip + "@bank.example",
		EffectiveDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestApplyCreatesNewEmployees(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	res, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi"), rosterRow(3, "101", "Budi")}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Empty(t, res.Errors)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, models.EmployeeActive, emp.Status)
	assert.Equal(t, models.GenderMale, emp.Gender)
	require.Len(t, emp.Positions, 1)
	assert.Equal(t, models.PositionPrimary, emp.Positions[0].Kind)

	hist, err := f.repo.ListEmployeeHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.ActionCreated, hist[0].ActionType)
	assert.Equal(t, "Kantor Pusat", hist[0].NewRegionalName)

	assert.ElementsMatch(t, []string{"100", "101"}, f.provisioner.activated)
}

func TestApplyUnchanged(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()
	rows := []RosterRow{rosterRow(2, "100", "Andi")}

	_, err := f.planner.Apply(ctx, rows, false)
	require.NoError(t, err)

	res, err := f.planner.Apply(ctx, rows, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Zero(t, res.Created)
	assert.Zero(t, res.Updated)
	assert.Zero(t, res.Mutated)
}

func TestApplyProfileUpdate(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi")}, false)
	require.NoError(t, err)

	renamed := rosterRow(2, "100", "Andi Wijaya")
	res, err := f.planner.Apply(ctx, []RosterRow{renamed}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "Andi Wijaya", emp.Name)
	assert.Equal(t, models.EmployeeActive, emp.Status, "profile update must not change employment status")
}

func TestApplyMutation(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi")}, false)
	require.NoError(t, err)

	moved := rosterRow(2, "100", "Andi")
	moved.Unit = "Unit Operasional"
	res, err := f.planner.Apply(ctx, []RosterRow{moved}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Mutated)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, models.EmployeeMutasi, emp.Status)
	require.Len(t, emp.Positions, 1, "old placement is replaced, not accumulated")

	hist, err := f.repo.ListEmployeeHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, models.ActionMutasi, hist[len(hist)-1].ActionType)
	assert.Equal(t, "Unit Sertifikasi", hist[len(hist)-1].OldUnitName)
	assert.Equal(t, "Unit Operasional", hist[len(hist)-1].NewUnitName)
}

func TestApplySecondaryOnlyChangeIsMutation(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi")}, false)
	require.NoError(t, err)

	withSecondary := rosterRow(2, "100", "Andi")
	withSecondary.HasSecondary = true
	withSecondary.Regional2 = "Kantor Pusat"
	withSecondary.Division2 = "Divisi SDM"
	withSecondary.Unit2 = "Unit Pelatihan"
	withSecondary.JobTitle2 = "Instruktur"
	withSecondary.EffectiveDate2 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	res, err := f.planner.Apply(ctx, []RosterRow{withSecondary}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Mutated, "a secondary-only placement change still classifies as a mutation")

	emp, err := f.repo.FindEmployeeByNIP(ctx, "100")
	require.NoError(t, err)
	assert.NotNil(t, emp.Secondary())
}

// threeEmployees seeds NIPs 100..102; resigning one of three keeps a
// shrunken roster above the size guard.
func threeEmployees() []RosterRow {
	return []RosterRow{
		rosterRow(2, "100", "Andi"),
		rosterRow(3, "101", "Budi"),
		rosterRow(4, "102", "Citra"),
	}
}

func TestApplyResignSweep(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, threeEmployees(), false)
	require.NoError(t, err)
	f.producer.events = nil
	f.provisioner.deactivated = nil

	without101 := []RosterRow{rosterRow(2, "100", "Andi"), rosterRow(4, "102", "Citra")}
	res, err := f.planner.Apply(ctx, without101, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resigned)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, models.EmployeeResign, emp.Status)
	assert.Nil(t, emp.Primary(), "positions of a resigned employee are deactivated")

	assert.Equal(t, []string{"101"}, f.provisioner.deactivated)
	assert.Contains(t, f.producer.events, events.CertificationInvalidated)

	// rerun with the same roster; already-resigned employees are not swept again
	res, err = f.planner.Apply(ctx, without101, false)
	require.NoError(t, err)
	assert.Zero(t, res.Resigned)
}

func TestApplyResignInvalidatesCertifications(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, threeEmployees(), false)
	require.NoError(t, err)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "101")
	require.NoError(t, err)
	cert := &models.EmployeeCertification{
		ID: uuid.New(), EmployeeID: emp.ID, RuleID: uuid.New(),
		Status: models.CertificationActive, ValidUntil: time.Now().AddDate(1, 0, 0),
	}
	require.NoError(t, f.repo.CreateCertification(ctx, cert))

	_, err = f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi"), rosterRow(4, "102", "Citra")}, false)
	require.NoError(t, err)

	reloaded, err := f.repo.GetCertification(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CertificationInvalidated, reloaded.Status)
}

func TestApplyRehireSamePlacement(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, threeEmployees(), false)
	require.NoError(t, err)
	_, err = f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi"), rosterRow(4, "102", "Citra")}, false)
	require.NoError(t, err)
	f.producer.events = nil

	res, err := f.planner.Apply(ctx, threeEmployees(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rehired)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, models.EmployeeActive, emp.Status)

	hist, err := f.repo.ListEmployeeHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.NotEmpty(t, hist)
	assert.Equal(t, models.ActionRehired, hist[len(hist)-1].ActionType,
		"returning to the same placement records REHIRED")

	assert.Contains(t, f.producer.events, events.EmployeeRehired)
}

func TestApplyRehireNewPlacement(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.planner.Apply(ctx, threeEmployees(), false)
	require.NoError(t, err)
	_, err = f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi"), rosterRow(4, "102", "Citra")}, false)
	require.NoError(t, err)

	moved := rosterRow(3, "101", "Budi")
	moved.Division = "Divisi SDM"
	res, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi"), moved, rosterRow(4, "102", "Citra")}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rehired)

	emp, err := f.repo.FindEmployeeByNIP(ctx, "101")
	require.NoError(t, err)
	hist, err := f.repo.ListEmployeeHistory(ctx, emp.ID)
	require.NoError(t, err)
	require.NotEmpty(t, hist)
	assert.Equal(t, models.ActionMutasi, hist[len(hist)-1].ActionType,
		"returning to a different placement records MUTASI")
}

func TestApplyDuplicateNIP(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	rows := []RosterRow{
		rosterRow(2, "100", "Andi"),
		rosterRow(3, "100", "Andi Duplikat"),
		rosterRow(4, "100", "Andi Lagi"),
	}
	res, err := f.planner.Apply(ctx, rows, false)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1, "all occurrences of one duplicated NIP yield a single error")
	assert.Contains(t, res.Errors[0], "duplicate NIP 100")
	assert.Contains(t, res.Errors[0], "[2 3 4]")

	assert.Equal(t, 1, res.Created, "the first occurrence is still applied")
	emp, err := f.repo.FindEmployeeByNIP(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "Andi", emp.Name)
}

func TestApplyGuardRejectsSmallRoster(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	var rows []RosterRow
	for i := 0; i < 10; i++ {
		rows = append(rows, rosterRow(i+2, fmt.Sprintf("1%02d", i), "Pegawai"))
	}
	_, err := f.planner.Apply(ctx, rows, false)
	require.NoError(t, err)

	_, err = f.planner.Apply(ctx, rows[:1], false)
	require.ErrorIs(t, err, e.ErrRosterTooSmall)

	count, err := f.repo.CountActiveEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count, "an aborted import persists nothing")
}

func TestApplyGuardBypassedOnDryRun(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	var rows []RosterRow
	for i := 0; i < 10; i++ {
		rows = append(rows, rosterRow(i+2, fmt.Sprintf("1%02d", i), "Pegawai"))
	}
	_, err := f.planner.Apply(ctx, rows, false)
	require.NoError(t, err)

	res, err := f.planner.Apply(ctx, rows[:1], true)
	require.NoError(t, err, "dry run bypasses the roster size guard")
	assert.Equal(t, 9, res.Resigned)

	count, err := f.repo.CountActiveEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}

func TestApplyDryRunPersistsNothing(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	_, err := f.repo.CreateRegional(ctx, "Kantor Pusat")
	require.NoError(t, err)
	_, err = f.repo.CreateDivision(ctx, "Divisi Kepatuhan")
	require.NoError(t, err)
	_, err = f.repo.CreateUnit(ctx, "Unit Sertifikasi")
	require.NoError(t, err)
	_, err = f.repo.CreateJobPosition(ctx, "Analis Kepatuhan")
	require.NoError(t, err)

	res, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi")}, true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Created)
	assert.Empty(t, res.Errors)

	_, err = f.repo.FindEmployeeByNIP(ctx, "100")
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.Empty(t, f.provisioner.activated)
}

func TestApplyDryRunReportsUnresolvedNames(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	res, err := f.planner.Apply(ctx, []RosterRow{rosterRow(2, "100", "Andi")}, true)
	require.NoError(t, err)

	assert.Zero(t, res.Created)
	require.Len(t, res.Errors, 1, "a dry run never creates org units, it reports them")

	_, err = f.repo.FindRegionalByName(ctx, "Kantor Pusat")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestApplyRowMissingNIP(t *testing.T) {
	f := setupPlanner(t)
	ctx := context.Background()

	bad := rosterRow(2, "", "Tanpa NIP")
	res, err := f.planner.Apply(ctx, []RosterRow{rosterRow(3, "100", "Andi"), bad}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "row 2")
}
