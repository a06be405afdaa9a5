package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := rootCmd()

	assert.Equal(t, name, cmd.Name)

	names := make([]string, 0, len(cmd.Commands))
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
	}
	assert.Contains(t, names, "check")
	assert.Contains(t, names, "serve")
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := checkCmd()

	flags := make(map[string]bool)
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			flags[n] = true
		}
	}

	for _, want := range []string{"installed-db", "world", "timeout", "output", "format"} {
		assert.True(t, flags[want], "missing flag %q", want)
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := serveCmd()

	flags := make(map[string]bool)
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			flags[n] = true
		}
	}

	for _, want := range []string{"interval", "port", "nats-url", "history-db", "no-watch"} {
		assert.True(t, flags[want], "missing flag %q", want)
	}

	require.NotEmpty(t, cmd.Description)
}
