package osrelease

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		key      string
		expected string
		present  bool
	}{
		{name: "double quoted", line: `ID="alpine"`, key: "ID", expected: "alpine", present: true},
		{name: "single quoted", line: `ID='alpine'`, key: "ID", expected: "alpine", present: true},
		{name: "unquoted", line: `ID=alpine`, key: "ID", expected: "alpine", present: true},
		{name: "unquoted version", line: `VERSION_ID=3.18.0`, key: "VERSION_ID", expected: "3.18.0", present: true},
		{name: "unquoted stops at whitespace", line: "ID=alpine extra", key: "ID", expected: "alpine", present: true},
		{name: "unquoted stops at semicolon", line: "ID=alpine;rest", key: "ID", expected: "alpine", present: true},
		{name: "unterminated quote skipped", line: `ID="alpine`, key: "ID", present: false},
		{name: "empty value", line: "ID=", key: "ID", expected: "", present: true},
		{name: "quoted with spaces", line: `PRETTY_NAME="Alpine Linux v3.18"`, key: "PRETTY_NAME", expected: "Alpine Linux v3.18", present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Parse(tt.line)
			v, ok := fields[tt.key]
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.expected, v)
			}
		})
	}
}

func TestParse_SkipsNonMatchingLines(t *testing.T) {
	content := strings.Join([]string{
		"# a comment",
		"",
		"not a pair",
		"BAD-KEY=value",
		"ID=alpine",
		strings.Repeat("K", MaxKeyLen+1) + "=overlong-key",
	}, "\n")

	fields := Parse(content)
	assert.Equal(t, map[string]string{"ID": "alpine"}, fields)
}

func TestParse_TruncatesOverlongValues(t *testing.T) {
	long := strings.Repeat("x", MaxValueLen+100)

	fields := Parse("ID=" + long + "\nNAME=\"" + long + "\"")
	assert.Len(t, fields["ID"], MaxValueLen)
	assert.Len(t, fields["NAME"], MaxValueLen)
	assert.Equal(t, strings.Repeat("x", MaxValueLen), fields["ID"])
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	content := "NAME=\"Alpine Linux\"\nID=alpine\nVERSION_ID=3.18.0\nPRETTY_NAME=\"Alpine Linux v3.18\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ident := Read(path)
	assert.Equal(t, "alpine", ident.ID)
	assert.Equal(t, "3.18.0", ident.VersionID)
}

func TestRead_MissingFileYieldsEmptyIdentity(t *testing.T) {
	ident := Read(filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, Identity{}, ident)
}

func TestRead_FallbackPath(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "fallback")
	require.NoError(t, os.WriteFile(fallback, []byte("ID=alpine\nVERSION_ID=3.19.1\n"), 0o644))

	ident := Read(filepath.Join(dir, "missing"), fallback)
	assert.Equal(t, "alpine", ident.ID)
	assert.Equal(t, "3.19.1", ident.VersionID)
}

func TestRead_FieldsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte("NAME=\"Alpine Linux\"\n"), 0o644))

	ident := Read(path)
	assert.Equal(t, Identity{}, ident)
}
