// Package logging configures the slog and zerolog loggers used across drawtool.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the path of a run's log file: <dir>/<name>.<start>.log.
func LogFilePath(logsDir, name string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, start.Format("20060102_150405")))
}
