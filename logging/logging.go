// Package logging builds the process wide zerolog logger: a console writer plus an
// optional rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelEnvironment overrides the configured level when set
const LevelEnvironment = "SHEETNET_LOG_LEVEL"

type Config struct {
	// Level is one of trace, debug, info, warn, error
	Level string `yaml:"level"`
	// ConsoleFormat is "text" (human readable) or "json"
	ConsoleFormat string `yaml:"console_format"`
	// FilePath enables the log file. Empty = console only
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Level:          "info",
		ConsoleFormat:  "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 3,
		FileMaxAgeDays: 28,
	}
}

// ParseLevel understands the zerolog level names, case insensitive. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	return parsed, nil
}

// New creates a logger writing to console (and the log file, if configured). The
// returned closer releases the log file.
func New(config Config, console io.Writer, app string) (zerolog.Logger, io.Closer, error) {
	levelName := config.Level
	if fromEnv, ok := os.LookupEnv(LevelEnvironment); ok {
		levelName = fromEnv
	}
	level, err := ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	writers := make([]io.Writer, 0, 2)
	if console != nil {
		if config.ConsoleFormat == "json" {
			writers = append(writers, console)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        console,
				TimeFormat: time.RFC3339,
			})
		}
	}

	var closer io.Closer = nopCloser{}
	if config.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.FileMaxSizeMB,
			MaxBackups: config.FileMaxBackups,
			MaxAge:     config.FileMaxAgeDays,
		}
		writers = append(writers, file)
		closer = file
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Str("app", app).Logger()

	return logger, closer, nil
}

// Initialize is New on stdout that also installs the logger as the global log.Logger
func Initialize(config Config, app string) (io.Closer, error) {
	logger, closer, err := New(config, os.Stdout, app)
	if err != nil {
		return closer, err
	}
	log.Logger = logger
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
