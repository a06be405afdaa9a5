package apk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinemetrics/apkmon/pkg/errors"
)

func openFixtureDB(t *testing.T) *Database {
	t.Helper()
	db, err := OpenDatabase(DatabaseOptions{
		InstalledPath: writeFixture(t, "installed", installedFixture),
		WorldPath:     filepath.Join(t.TempDir(), "world"),
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestParsePlan(t *testing.T) {
	db := openFixtureDB(t)

	out := `fetch https://dl-cdn.alpinelinux.org/alpine/v3.18/main/x86_64/APKINDEX.tar.gz
(1/4) Upgrading musl (1.2.4-r0 -> 1.2.4-r2)
(2/4) Upgrading busybox-binsh (1.36.1-r5 -> 1.36.1-r6)
(3/4) Installing tzdata (2024a-r0)
(4/4) Purging alpine-baselayout (3.4.3-r1)
OK: 10 MiB in 42 packages
`

	cs, err := parsePlan(out, db)
	require.NoError(t, err)
	require.Len(t, cs.Changes, 4)

	up := cs.Changes[0]
	require.NotNil(t, up.Old)
	require.NotNil(t, up.New)
	assert.Equal(t, "musl", up.New.Name)
	assert.Equal(t, "1.2.4-r0", up.Old.Version)
	assert.Equal(t, "1.2.4-r2", up.New.Version)
	assert.Equal(t, "musl", up.New.Origin)
	assert.True(t, up.Real())

	// Origin carried over from the installed record.
	assert.Equal(t, "busybox", cs.Changes[1].New.Origin)

	install := cs.Changes[2]
	assert.Nil(t, install.Old)
	assert.Equal(t, "2024a-r0", install.New.Version)
	assert.True(t, install.Real())

	purge := cs.Changes[3]
	assert.Nil(t, purge.New)
	require.NotNil(t, purge.Old)
	assert.Equal(t, "alpine-baselayout", purge.Old.Name)
	assert.True(t, purge.Real())
}

func TestParsePlan_ReinstallIsNotReal(t *testing.T) {
	db := openFixtureDB(t)

	cs, err := parsePlan("(1/1) Re-installing musl (1.2.4-r0)\n", db)
	require.NoError(t, err)
	require.Len(t, cs.Changes, 1)
	assert.False(t, cs.Changes[0].Real())
}

func TestParsePlan_EmptyPlan(t *testing.T) {
	db := openFixtureDB(t)

	cs, err := parsePlan("OK: 10 MiB in 42 packages\n", db)
	require.NoError(t, err)
	assert.Empty(t, cs.Changes)
}

func TestParsePlan_MalformedUpgradeDetail(t *testing.T) {
	db := openFixtureDB(t)

	_, err := parsePlan("(1/1) Upgrading musl (garbage)\n", db)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSolver, errors.CodeOf(err))
}

func TestNewVersionFromDetail(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		expected string
	}{
		{name: "upgrade", detail: "1.2.4-r0 -> 1.2.4-r2", expected: "1.2.4-r2"},
		{name: "tight arrows", detail: "1.0-r0->1.0-r1", expected: "1.0-r1"},
		{name: "no arrow", detail: "1.2.4-r0", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, newVersionFromDetail(tt.detail))
		})
	}
}

func TestExecSolver_RequiresSimulate(t *testing.T) {
	db := openFixtureDB(t)

	s := &ExecSolver{Simulate: false, NoCache: true}
	_, err := s.Solve(t.Context(), db)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSolver, errors.CodeOf(err))
}

func TestExecSolver_RequiresOpenDatabase(t *testing.T) {
	db := openFixtureDB(t)
	db.Close()

	s := NewExecSolver()
	_, err := s.Solve(t.Context(), db)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSolver, errors.CodeOf(err))
}

func TestChange_Real(t *testing.T) {
	a := &Package{Name: "musl", Origin: "musl", Version: "1.0-r0"}
	b := &Package{Name: "musl", Origin: "musl", Version: "1.0-r1"}

	tests := []struct {
		name     string
		change   Change
		expected bool
	}{
		{name: "same pointer", change: Change{Old: a, New: a}, expected: false},
		{name: "same identity", change: Change{Old: a, New: &Package{Name: "musl", Origin: "musl", Version: "1.0-r0"}}, expected: false},
		{name: "version differs", change: Change{Old: a, New: b}, expected: true},
		{name: "install", change: Change{Old: nil, New: b}, expected: true},
		{name: "purge", change: Change{Old: a, New: nil}, expected: true},
		{name: "both nil", change: Change{}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.change.Real())
		})
	}
}
