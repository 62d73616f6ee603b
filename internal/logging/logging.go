// Package logging provides the process-wide zerolog logger.
//
// Logs never go to stdout: the CLI prints model output there and the MCP
// server speaks its protocol on it. Console logs go to stderr, and a JSON
// copy can be written to docgate-<timestamp>.log in the log directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docgate/docgate/pkg/types"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

var (
	fileMu  sync.Mutex
	logFile *os.File
	logPath string
)

// Level represents log levels.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config holds logger configuration.
type Config struct {
	Level Level
	// Output receives console logs. nil means stderr; io.Discard turns
	// console logging off.
	Output io.Writer
	// Pretty selects zerolog's console format instead of JSON.
	Pretty     bool
	TimeFormat string
	// LogToFile adds a JSON log file in LogDir.
	LogToFile bool
	LogDir    string
}

// DefaultConfig returns JSON logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
		LogDir:     os.TempDir(),
	}
}

// FromSettings builds a Config from the log section of a docgate config.
// level, when set, overrides the configured level. Without console,
// logs only reach the log file, if one is enabled.
func FromSettings(settings *types.LogConfig, level string, console bool, defaultDir string) Config {
	cfg := DefaultConfig()
	if defaultDir != "" {
		cfg.LogDir = defaultDir
	}

	configured := ""
	if settings != nil {
		configured = settings.Level
		cfg.Pretty = settings.Pretty
		cfg.LogToFile = settings.File
		if settings.Dir != "" {
			cfg.LogDir = settings.Dir
		}
	}
	if level != "" {
		configured = level
	}
	cfg.Level = ParseLevel(configured)

	if !console {
		cfg.Output = io.Discard
		cfg.Pretty = false
	}
	return cfg
}

// Init replaces the global logger. A log file opened by a previous Init
// is closed first.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	if cfg.LogDir == "" {
		cfg.LogDir = os.TempDir()
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: cfg.TimeFormat}
	}

	Close()
	if cfg.LogToFile {
		f, err := openLogFile(cfg.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		} else if cfg.Output == io.Discard {
			output = f
		} else {
			output = zerolog.MultiLevelWriter(output, f)
		}
	}

	Logger = zerolog.New(output).Level(cfg.Level).With().Timestamp().Logger()
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("docgate-%s.log", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	fileMu.Lock()
	logFile, logPath = f, path
	fileMu.Unlock()
	return f, nil
}

// FilePath returns the current log file, or "" without one.
func FilePath() string {
	fileMu.Lock()
	defer fileMu.Unlock()
	return logPath
}

// Close closes the log file, if any.
func Close() {
	fileMu.Lock()
	defer fileMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logPath = ""
}

// ParseLevel maps DEBUG, INFO, WARN(ING), ERROR and FATAL, in any case,
// to a level. Anything else is info.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func Debug() *zerolog.Event { return Logger.Debug() }

func Info() *zerolog.Event { return Logger.Info() }

func Warn() *zerolog.Event { return Logger.Warn() }

func Error() *zerolog.Event { return Logger.Error() }

func init() {
	Init(DefaultConfig())
}
