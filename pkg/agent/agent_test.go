package agent

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinemetrics/apkmon/pkg/apk"
	"github.com/alpinemetrics/apkmon/pkg/checker"
	"github.com/alpinemetrics/apkmon/pkg/errors"
	"github.com/alpinemetrics/apkmon/pkg/metric"
)

const installedFixture = `P:musl
V:1.2.4-r0
o:musl

P:busybox
V:1.36.0-r0
o:busybox
`

type fakeSolver struct {
	err   error
	calls int
}

func (s *fakeSolver) Solve(ctx context.Context, db *apk.Database) (*apk.Changeset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &apk.Changeset{}, nil
}

func testChecker(t *testing.T, solver apk.Solver) *checker.Checker {
	t.Helper()

	dir := t.TempDir()
	installed := filepath.Join(dir, "installed")
	require.NoError(t, os.WriteFile(installed, []byte(installedFixture), 0600))

	return checker.New(checker.Options{
		Database: apk.DatabaseOptions{
			InstalledPath: installed,
			WorldPath:     filepath.Join(dir, "world"),
		},
		Solver:         solver,
		Dispatcher:     metric.NewWriterDispatcher(io.Discard),
		OSReleasePaths: []string{filepath.Join(dir, "os-release")},
	})
}

func TestNewRequiresChecker(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestRunCycleReportsSuccess(t *testing.T) {
	solver := &fakeSolver{}

	var reports []*checker.Report
	a, err := New(Options{
		Checker: testChecker(t, solver),
		OnReport: func(ctx context.Context, r *checker.Report) {
			reports = append(reports, r)
		},
	})
	require.NoError(t, err)

	a.runCycle(t.Context(), "test")
	a.runCycle(t.Context(), "test")

	assert.Equal(t, 2, solver.calls)
	require.Len(t, reports, 2)
	assert.Equal(t, 0, reports[0].Count)
}

func TestRunCycleSkipsReportOnFailure(t *testing.T) {
	solver := &fakeSolver{err: errors.New(errors.ErrCodeSolver, "broken")}

	called := false
	a, err := New(Options{
		Checker: testChecker(t, solver),
		OnReport: func(ctx context.Context, r *checker.Report) {
			called = true
		},
	})
	require.NoError(t, err)

	a.runCycle(t.Context(), "test")

	assert.Equal(t, 1, solver.calls)
	assert.False(t, called)
}

func TestRunCycleHonorsCancelledContext(t *testing.T) {
	solver := &fakeSolver{}
	a, err := New(Options{Checker: testChecker(t, solver)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a.runCycle(ctx, "test")
	assert.Equal(t, 0, solver.calls)
}

func TestDefaultInterval(t *testing.T) {
	a, err := New(Options{Checker: testChecker(t, &fakeSolver{})})
	require.NoError(t, err)
	assert.Positive(t, a.opts.Interval)
}
