package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// SlogManager owns the application logger and the log file behind it.
type SlogManager struct {
	logger *slog.Logger
	level  slog.LevelVar
	file   *os.File
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel converts a string log level to slog.Level. Unknown levels map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger. Records go to out, or to stdout when out is nil, and
// additionally to the log file opened by OpenFile. provider may be nil.
func (m *SlogManager) Setup(out io.Writer, level string, provider ContextProvider) {
	m.level.Set(ParseLevel(level))

	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	if out == nil {
		out = os.Stdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(out, handlerOpts)}
	if m.file != nil {
		handlers = append(handlers, slog.NewTextHandler(m.file, handlerOpts))
	}

	m.logger = slog.New(NewContextHandler(NewMultiHandler(handlers...), provider))
	m.logger.Debug("Logging initialized", "level", m.level.Level().String())
}

// OpenFile creates logsDir if needed and opens a fresh log file for this run.
// It must be called before Setup to take effect.
func (m *SlogManager) OpenFile(logsDir, name string, start time.Time) (string, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating logs dir: %w", err)
	}
	path := LogFilePath(logsDir, name, start)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening log file: %w", err)
	}
	m.file = f
	return path, nil
}

// SetLevel changes the level of the running logger.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(ParseLevel(level))
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Close closes the log file, if any.
func (m *SlogManager) Close() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
