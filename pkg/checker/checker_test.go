package checker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinemetrics/apkmon/pkg/apk"
	apkerrors "github.com/alpinemetrics/apkmon/pkg/errors"
	"github.com/alpinemetrics/apkmon/pkg/metric"
)

const installedFixture = `P:musl
V:1.2.4-r0
o:musl

P:busybox
V:1.36.1-r5
o:busybox
`

type fakeSolver struct {
	changes []apk.Change
	err     error
	seenDB  *apk.Database
	calls   int
}

func (f *fakeSolver) Solve(_ context.Context, db *apk.Database) (*apk.Changeset, error) {
	f.calls++
	f.seenDB = db
	if f.err != nil {
		return nil, f.err
	}
	return &apk.Changeset{Changes: f.changes}, nil
}

type captureDispatcher struct {
	samples []*metric.Sample
	err     error
}

func (c *captureDispatcher) Dispatch(_ context.Context, s *metric.Sample) error {
	if c.err != nil {
		return c.err
	}
	c.samples = append(c.samples, s)
	return nil
}

func fixtureOptions(t *testing.T, solver apk.Solver, dispatcher metric.Dispatcher) Options {
	t.Helper()
	dir := t.TempDir()
	installed := filepath.Join(dir, "installed")
	require.NoError(t, os.WriteFile(installed, []byte(installedFixture), 0o644))

	osRelease := filepath.Join(dir, "os-release")
	require.NoError(t, os.WriteFile(osRelease, []byte("ID=alpine\nVERSION_ID=3.18.0\n"), 0o644))

	return Options{
		Database: apk.DatabaseOptions{
			InstalledPath: installed,
			WorldPath:     filepath.Join(dir, "world"),
		},
		Solver:         solver,
		Dispatcher:     dispatcher,
		OSReleasePaths: []string{osRelease},
		Version:        "test",
	}
}

func upgradeChange(name, oldVer, newVer string) apk.Change {
	return apk.Change{
		Old: &apk.Package{Name: name, Origin: name, Version: oldVer},
		New: &apk.Package{Name: name, Origin: name, Version: newVer},
	}
}

func TestCheck_NoRealChanges(t *testing.T) {
	same := &apk.Package{Name: "musl", Origin: "musl", Version: "1.2.4-r0"}
	solver := &fakeSolver{changes: []apk.Change{{Old: same, New: same}}}
	dispatcher := &captureDispatcher{}

	c := New(fixtureOptions(t, solver, dispatcher))
	report, err := c.Check(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Count)
	assert.Empty(t, report.Packages)

	require.Len(t, dispatcher.samples, 1)
	s := dispatcher.samples[0]
	assert.Equal(t, float64(0), s.Value)
	assert.Equal(t, "[]", s.Meta[metric.MetaPackages])
	assert.Equal(t, "apk", s.Plugin)
	assert.Equal(t, "upgradable", s.PluginInstance)
	assert.Equal(t, "count", s.Type)
}

func TestCheck_RealChanges(t *testing.T) {
	solver := &fakeSolver{changes: []apk.Change{
		upgradeChange("musl", "1.2.4-r0", "1.2.4-r2"),
		{ // no-op pair the solver still enumerated; must be filtered
			Old: &apk.Package{Name: "busybox", Origin: "busybox", Version: "1.36.1-r5"},
			New: &apk.Package{Name: "busybox", Origin: "busybox", Version: "1.36.1-r5"},
		},
		upgradeChange("zlib", "1.2.13-r0", "1.3-r0"),
	}}
	dispatcher := &captureDispatcher{}

	c := New(fixtureOptions(t, solver, dispatcher))
	report, err := c.Check(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count)
	require.Len(t, report.Packages, 2)
	assert.Equal(t, ChangeRecord{
		Name:       "musl",
		Origin:     "musl",
		OldVersion: "1.2.4-r0",
		NewVersion: "1.2.4-r2",
	}, report.Packages[0])

	require.Len(t, dispatcher.samples, 1)
	s := dispatcher.samples[0]
	assert.Equal(t, float64(2), s.Value)

	// The metadata payload is a compact JSON array of 4-key objects.
	var decoded []map[string]string
	require.NoError(t, json.Unmarshal([]byte(s.Meta[metric.MetaPackages]), &decoded))
	require.Len(t, decoded, 2)
	for _, obj := range decoded {
		assert.Len(t, obj, 4)
		for _, key := range []string{"p", "o", "v", "w"} {
			assert.Contains(t, obj, key)
		}
	}
	assert.NotContains(t, s.Meta[metric.MetaPackages], " ")

	assert.Equal(t, "alpine", s.Meta[metric.MetaOSID])
	assert.Equal(t, "3.18.0", s.Meta[metric.MetaOSVersionID])
}

func TestCheck_DatabaseOpenFailure(t *testing.T) {
	solver := &fakeSolver{}
	dispatcher := &captureDispatcher{}

	opts := fixtureOptions(t, solver, dispatcher)
	opts.Database.InstalledPath = filepath.Join(t.TempDir(), "missing")

	c := New(opts)
	_, err := c.Check(t.Context())
	require.Error(t, err)
	assert.Equal(t, apkerrors.ErrCodeDatabase, apkerrors.CodeOf(err))
	assert.Zero(t, solver.calls)
	assert.Empty(t, dispatcher.samples)
}

func TestCheck_SolverFailure(t *testing.T) {
	solver := &fakeSolver{err: apkerrors.New(apkerrors.ErrCodeSolver, "apk solver returned errors")}
	dispatcher := &captureDispatcher{}

	c := New(fixtureOptions(t, solver, dispatcher))

	// Repeated failing cycles still release the database every time.
	for i := 0; i < 3; i++ {
		_, err := c.Check(t.Context())
		require.Error(t, err)
		assert.Equal(t, apkerrors.ErrCodeSolver, apkerrors.CodeOf(err))
		require.NotNil(t, solver.seenDB)
		assert.False(t, solver.seenDB.IsOpen())
	}
	assert.Empty(t, dispatcher.samples)
}

func TestCheck_DispatchFailure(t *testing.T) {
	solver := &fakeSolver{changes: []apk.Change{upgradeChange("musl", "1.2.4-r0", "1.2.4-r2")}}
	dispatcher := &captureDispatcher{err: errors.New("sink unavailable")}

	c := New(fixtureOptions(t, solver, dispatcher))
	_, err := c.Check(t.Context())
	require.Error(t, err)
	assert.Equal(t, apkerrors.ErrCodeDispatch, apkerrors.CodeOf(err))
	assert.NotNil(t, solver.seenDB)
	assert.False(t, solver.seenDB.IsOpen())
}

func TestCheck_MissingOSRelease(t *testing.T) {
	solver := &fakeSolver{}
	dispatcher := &captureDispatcher{}

	opts := fixtureOptions(t, solver, dispatcher)
	opts.OSReleasePaths = []string{filepath.Join(t.TempDir(), "missing")}

	c := New(opts)
	report, err := c.Check(t.Context())
	require.NoError(t, err)

	assert.Empty(t, report.OS.ID)
	assert.Empty(t, report.OS.VersionID)

	// The cycle still dispatches, with identity fields present but empty.
	require.Len(t, dispatcher.samples, 1)
	meta := dispatcher.samples[0].Meta
	v, ok := meta[metric.MetaOSID]
	assert.True(t, ok)
	assert.Empty(t, v)
	v, ok = meta[metric.MetaOSVersionID]
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestCheck_Idempotent(t *testing.T) {
	solver := &fakeSolver{}
	dispatcher := &captureDispatcher{}

	c := New(fixtureOptions(t, solver, dispatcher))

	first, err := c.Check(t.Context())
	require.NoError(t, err)
	second, err := c.Check(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 0, first.Count)
	assert.Equal(t, first.Count, second.Count)
	require.Len(t, dispatcher.samples, 2)
	assert.Equal(t, dispatcher.samples[0].Meta[metric.MetaPackages],
		dispatcher.samples[1].Meta[metric.MetaPackages])
	assert.Equal(t, "[]", dispatcher.samples[1].Meta[metric.MetaPackages])
}

func TestReport_Header(t *testing.T) {
	solver := &fakeSolver{}
	c := New(fixtureOptions(t, solver, &captureDispatcher{}))

	report, err := c.Check(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "UpgradeReport", report.Kind.String())
	assert.Equal(t, APIVersion, report.Header.APIVersion)
	assert.Equal(t, "test", report.Metadata["version"])
	assert.NotEmpty(t, report.Metadata["timestamp"])
	assert.NotEmpty(t, report.Metadata["report-id"])
}
