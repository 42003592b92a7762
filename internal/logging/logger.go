package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/FalixNodes/falixpanel/internal/server"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds logging configuration
type Config struct {
	Level  LogLevel  // Minimum log level to output
	Format LogFormat // Output format (json or text)
	Output io.Writer // Output destination (defaults to stderr)
	Quiet  bool      // If true, suppress non-error output
}

// Logger wraps slog.Logger with panelctl's log vocabulary
type Logger struct {
	logger *slog.Logger
	config Config
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: convertLogLevel(config.Level),
	}

	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		config: config,
	}
}

func convertLogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Info(msg, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Debug(msg, args...)
}

// Warn logs a warning
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// LogSelection logs the size of a resolved batch
func (l *Logger) LogSelection(mode string, count int) {
	l.Info("servers selected",
		"mode", mode,
		"count", count,
	)
}

// LogServerNotFound records a server id that resolved to nothing
func (l *Logger) LogServerNotFound(id int) {
	l.Warn("server not found, nothing to reinstall",
		"server_id", id,
	)
}

// LogReinstall logs a successful daemon call at debug level
func (l *Logger) LogReinstall(s server.Server, duration time.Duration) {
	l.Debug("reinstall requested",
		"server_id", s.ID,
		"server", s.Name,
		"node", s.Node.Name,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogReinstallError logs a failed daemon call at debug level. The operator
// already sees the failure line from the reporter. The daemon secret is never logged.
func (l *Logger) LogReinstallError(s server.Server, err error, errorType string, duration time.Duration) {
	l.Debug("reinstall failed",
		"server_id", s.ID,
		"server", s.Name,
		"node", s.Node.Name,
		"error", err.Error(),
		"error_type", errorType,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogBatchStart logs the start of a batch
func (l *Logger) LogBatchStart(count int) {
	l.Info("batch started",
		"server_count", count,
	)
}

// LogBatchComplete logs the completion of a batch
func (l *Logger) LogBatchComplete(attempted, succeeded, failed int, duration time.Duration, summary string) {
	l.Info("batch completed",
		"attempted", attempted,
		"succeeded", succeeded,
		"failed", failed,
		"error_summary", summary,
		"total_duration_ms", duration.Milliseconds(),
	)
}

// LogConfigLoad logs configuration loading events
func (l *Logger) LogConfigLoad(source string) {
	l.Info("configuration loaded",
		"source", source,
	)
}

// LogConfigError logs configuration errors
func (l *Logger) LogConfigError(source string, err error) {
	l.Error("configuration error",
		"source", source,
		"error", err.Error(),
	)
}

// IsQuiet returns whether the logger is in quiet mode
func (l *Logger) IsQuiet() bool {
	return l.config.Quiet
}

// NewLoggerFromConfig creates a logger from application configuration
func NewLoggerFromConfig(logLevel, logFormat string, quiet bool, output io.Writer) *Logger {
	var format LogFormat
	switch logFormat {
	case "json":
		format = FormatJSON
	default:
		format = FormatText
	}

	return NewLogger(Config{
		Level:  LogLevel(logLevel),
		Format: format,
		Output: output,
		Quiet:  quiet,
	})
}
