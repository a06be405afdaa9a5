package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinemetrics/apkmon/pkg/checker"
	"github.com/alpinemetrics/apkmon/pkg/header"
	"github.com/alpinemetrics/apkmon/pkg/osrelease"
)

func reportFixture(count int) *checker.Report {
	r := &checker.Report{
		OS:       osrelease.Identity{ID: "alpine", VersionID: "3.18.0"},
		Count:    count,
		Packages: []checker.ChangeRecord{},
	}
	r.Init(header.KindReport, checker.APIVersion, "test")
	r.Metadata["report-id"] = "fixed-id"
	return r
}

func TestStore_RecordAndRecent(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(t.Context(), reportFixture(0)))
	require.NoError(t, s.Record(t.Context(), reportFixture(3)))

	entries, err := s.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, 3, entries[0].Count)
	assert.Equal(t, 0, entries[1].Count)
	assert.Equal(t, "alpine", entries[0].OSID)
	assert.Equal(t, "3.18.0", entries[0].OSVersion)
	assert.Equal(t, "fixed-id", entries[0].ReportID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestStore_RecentLimit(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(t.Context(), reportFixture(i)))
	}

	entries, err := s.Recent(t.Context(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].Count)
}

func TestStore_EmptyRecent(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Recent(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
