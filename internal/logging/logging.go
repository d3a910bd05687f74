// Package logging configures the service's structured logging: sink
// registration (console, rotating file, separate exception file), the JSON
// record shape, request-scoped context propagation, and the HTTP
// instrumentation middleware.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes every sink the logger writes to. It is produced from
// Settings by config.LoggingConfig.
type Config struct {
	Level     string
	Console   bool
	Color     bool
	JSON      bool
	Backtrace bool

	File          string
	RotationMB    int
	RetentionDays int
	MaxBackups    int
	Compression   bool

	Exception              bool
	ExceptionFile          string
	ExceptionLevel         string
	ExceptionJSON          bool
	ExceptionRotationMB    int
	ExceptionRetentionDays int
	ExceptionMaxBackups    int
	ExceptionCompression   bool

	AppName     string
	AppVersion  string
	Environment string
}

// Logger is the explicit logging handle threaded through the application.
// Setup builds one per process; nothing in this package mutates a global
// logger, so repeated Setup calls produce independent handles instead of
// accumulating duplicate sinks.
type Logger struct {
	base    zerolog.Logger
	cfg     Config
	closers []io.Closer
}

// Setup registers the configured sinks and returns the logging handle.
// Log directories are created as needed. The returned handle must be
// Closed on shutdown so rotating file sinks are released.
func Setup(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var writers []io.Writer
	var closers []io.Closer

	if cfg.Console {
		if cfg.JSON {
			writers = append(writers, os.Stdout)
		} else {
			writers = append(writers, consoleWriter(os.Stdout, cfg.Color))
		}
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.RotationMB,
			MaxAge:     cfg.RetentionDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compression,
		}
		closers = append(closers, lj)
		if cfg.JSON {
			writers = append(writers, lj)
		} else {
			writers = append(writers, consoleWriter(lj, false))
		}
	}

	if cfg.Exception && cfg.ExceptionFile != "" {
		excLevel, err := zerolog.ParseLevel(strings.ToLower(cfg.ExceptionLevel))
		if err != nil {
			return nil, fmt.Errorf("parse exception log level %q: %w", cfg.ExceptionLevel, err)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.ExceptionFile), 0o755); err != nil {
			return nil, fmt.Errorf("create exception log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.ExceptionFile,
			MaxSize:    cfg.ExceptionRotationMB,
			MaxAge:     cfg.ExceptionRetentionDays,
			MaxBackups: cfg.ExceptionMaxBackups,
			Compress:   cfg.ExceptionCompression,
		}
		closers = append(closers, lj)
		var w io.Writer = lj
		if !cfg.ExceptionJSON {
			w = consoleWriter(lj, false)
		}
		writers = append(writers, &levelFilterWriter{w: w, min: excLevel})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	return newLogger(cfg, level, zerolog.MultiLevelWriter(writers...), closers), nil
}

func newLogger(cfg Config, level zerolog.Level, out io.Writer, closers []io.Closer) *Logger {
	// Field-name globals are assignments of constants, safe to repeat.
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339Nano

	base := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("logger", "app").
		Str("environment", cfg.Environment).
		Str("app_name", cfg.AppName).
		Str("app_version", cfg.AppVersion).
		Int("process_id", os.Getpid()).
		Logger().Hook(callerHook{})

	return &Logger{base: base, cfg: cfg, closers: closers}
}

// Base returns the root logger, used for logging outside any request.
func (l *Logger) Base() *zerolog.Logger { return &l.base }

// Named returns a child logger whose records carry the given logger name
// instead of "app".
func (l *Logger) Named(name string) zerolog.Logger {
	return l.base.With().Str("logger", name).Logger()
}

// Close releases the file sinks. The console sink is untouched.
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Extra builds the record's extra sub-object from caller-supplied fields.
// Core schema fields stay at the top level; anything request- or
// call-specific goes under "extra" so structured consumers can rely on the
// fixed shape.
func Extra(fields map[string]any) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range fields {
		d = d.Interface(k, v)
	}
	return d
}

// consoleWriter renders records as human-readable lines. Source fields
// (module, function, line) stay visible; the per-process constants are
// suppressed to keep lines short.
func consoleWriter(out io.Writer, color bool) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !color,
		TimeFormat: "2006-01-02 15:04:05.000",
		FieldsExclude: []string{
			"logger", "environment", "app_name", "app_version", "process_id",
		},
	}
}

// levelFilterWriter drops records below its level floor. Used for the
// exception sink so only errors and worse reach it.
type levelFilterWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw *levelFilterWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw *levelFilterWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// callerHook attributes each record to the first stack frame outside
// zerolog: module (package name), function, and line.
type callerHook struct{}

func (callerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc := make([]uintptr, 16)
	// Skip runtime.Callers, this hook, and zerolog's event plumbing.
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.Contains(frame.Function, "github.com/rs/zerolog") {
			module, function := splitFunction(frame.Function)
			e.Str("module", module).Str("function", function).Int("line", frame.Line)
			return
		}
		if !more {
			return
		}
	}
}

// splitFunction turns "github.com/x/y/internal/handler.(*AuthHandler).Login"
// into ("handler", "(*AuthHandler).Login").
func splitFunction(fn string) (module, function string) {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.Index(fn, "."); i >= 0 {
		return fn[:i], fn[i+1:]
	}
	return fn, fn
}
