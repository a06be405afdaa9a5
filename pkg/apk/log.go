package apk

import (
	"log/slog"
	"strings"
)

// redirectSolverOutput feeds apk's own log lines back through slog.
// stderr is apk's error channel: lines carrying an "ERROR:" prefix log
// at error level, everything else at warn level.
func redirectSolverOutput(out string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ERROR:"):
			slog.Error(strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")), "source", "apk")
		case strings.HasPrefix(line, "WARNING:"):
			slog.Warn(strings.TrimSpace(strings.TrimPrefix(line, "WARNING:")), "source", "apk")
		default:
			slog.Warn(line, "source", "apk")
		}
	}
}
