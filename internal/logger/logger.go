package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ========================================
// Structured Logger
// ========================================

// Logger is the process-wide logger. Packages should prefer the module helpers below.
var Logger zerolog.Logger

var (
	fileSink   *lumberjack.Logger
	fileSinkMu sync.Mutex
)

// LogLevel is the minimum level written by the logger
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// LogConfig configures console and file output
type LogConfig struct {
	Level      LogLevel
	Console    bool   // write to stderr
	File       bool   // write to FilePath
	FilePath   string // log file path
	MaxSizeMB  int    // rotate after this size
	MaxAgeDays int    // delete rotated files older than this
	MaxBackups int    // keep at most this many rotated files
	Compress   bool   // gzip rotated files
	NoColor    bool
}

// DefaultLogConfig returns a console-only configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      LogLevelInfo,
		Console:    true,
		File:       false,
		MaxSizeMB:  10,
		MaxAgeDays: 7,
		MaxBackups: 5,
		Compress:   true,
	}
}

// PersistentLogConfig returns a configuration that also writes to <dataDir>/logs/ignite.log
func PersistentLogConfig(dataDir string) LogConfig {
	cfg := DefaultLogConfig()
	cfg.File = true
	cfg.FilePath = filepath.Join(dataDir, "logs", "ignite.log")
	return cfg
}

// InitLogger (re)initializes the global logger
func InitLogger(config LogConfig) error {
	var writers []io.Writer

	if config.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    config.NoColor,
		})
	}

	if config.File && config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return err
		}
		sink := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxAge:     config.MaxAgeDays,
			MaxBackups: config.MaxBackups,
			Compress:   config.Compress,
		}
		fileSinkMu.Lock()
		if fileSink != nil {
			_ = fileSink.Close()
		}
		fileSink = sink
		fileSinkMu.Unlock()
		writers = append(writers, sink)
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(config.Level.zerolog()).
		With().
		Timestamp().
		Logger()

	return nil
}

// SetOutput replaces the global logger with a plain JSON logger writing to w.
// Tests use it to capture or silence output.
func SetOutput(w io.Writer) {
	Logger = zerolog.New(w).With().Timestamp().Logger()
}

// CloseLogger flushes and closes the file sink, if any
func CloseLogger() {
	fileSinkMu.Lock()
	defer fileSinkMu.Unlock()
	if fileSink != nil {
		_ = fileSink.Close()
		fileSink = nil
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ========================================
// Module helpers
// ========================================

// Debug starts a debug event tagged with module
func Debug(module string) *zerolog.Event {
	return Logger.Debug().Str("module", module)
}

// Info starts an info event tagged with module
func Info(module string) *zerolog.Event {
	return Logger.Info().Str("module", module)
}

// Warn starts a warn event tagged with module
func Warn(module string) *zerolog.Event {
	return Logger.Warn().Str("module", module)
}

// Error starts an error event tagged with module
func Error(module string) *zerolog.Event {
	return Logger.Error().Str("module", module)
}

// ========================================
// Daemon state
// ========================================

// AppState is a lifecycle state of the daemon
type AppState string

const (
	StateStarting     AppState = "starting"
	StateReady        AppState = "ready"
	StateShuttingDown AppState = "shutting_down"
	StateStopped      AppState = "stopped"
)

// LogAppState records a lifecycle transition
func LogAppState(state AppState, details map[string]interface{}) {
	event := Logger.Info().
		Str("category", "app_state").
		Str("state", string(state))
	appendDetails(event, details).Msg("App state changed")
}

// LogPanic records a recovered panic
func LogPanic(module string, recovered interface{}, stack string) {
	Logger.Error().
		Str("module", module).
		Str("category", "panic").
		Interface("recovered", recovered).
		Str("stack", stack).
		Msg("Panic recovered")
}

// ========================================
// Operation timing
// ========================================

// OperationTimer measures one named operation
type OperationTimer struct {
	module    string
	operation string
	startTime time.Time
	details   map[string]interface{}
}

// StartOperation starts timing an operation
func StartOperation(module, operation string) *OperationTimer {
	return &OperationTimer{
		module:    module,
		operation: operation,
		startTime: time.Now(),
		details:   make(map[string]interface{}),
	}
}

// AddDetail attaches a field that is written when the timer ends
func (t *OperationTimer) AddDetail(key string, value interface{}) *OperationTimer {
	t.details[key] = value
	return t
}

// End logs the elapsed time at info level
func (t *OperationTimer) End() {
	duration := time.Since(t.startTime)
	event := Logger.Info().
		Str("module", t.module).
		Str("category", "performance").
		Str("operation", t.operation).
		Dur("duration", duration)
	appendDetails(event, t.details).Msg("Operation completed")
}

// EndWithError logs the elapsed time and err at error level
func (t *OperationTimer) EndWithError(err error) {
	duration := time.Since(t.startTime)
	event := Logger.Error().
		Str("module", t.module).
		Str("category", "performance").
		Str("operation", t.operation).
		Dur("duration", duration).
		Err(err)
	appendDetails(event, t.details).Msg("Operation failed")
}

func appendDetails(event *zerolog.Event, details map[string]interface{}) *zerolog.Event {
	for k, v := range details {
		switch val := v.(type) {
		case string:
			event.Str(k, val)
		case int:
			event.Int(k, val)
		case int64:
			event.Int64(k, val)
		case float64:
			event.Float64(k, val)
		case bool:
			event.Bool(k, val)
		case time.Duration:
			event.Dur(k, val)
		case error:
			event.AnErr(k, val)
		default:
			event.Interface(k, val)
		}
	}
	return event
}

func init() {
	_ = InitLogger(DefaultLogConfig())
}
