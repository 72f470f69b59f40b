package logging

import (
	"fmt"
	"io"
	"log/slog"

	"image-sizer-go/internal/utils"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger provides access to both slog and the tagged logging API.
type Logger struct {
	legacy *utils.Logger
}

// New creates a Logger writing to a rotated file and the console.
func New(cfg Config) (*Logger, error) {
	logCfg := &utils.LogCfg{
		LogLevel: cfg.Level,
		LogDir:   cfg.Dir,
		LogFile:  cfg.Filename,
	}
	legacy, err := utils.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &Logger{legacy: legacy}, nil
}

// NewConsole creates a Logger without a file sink.
func NewConsole(level string, w io.Writer) *Logger {
	return &Logger{legacy: utils.NewConsoleLogger(level, w)}
}

// Legacy exposes the tagged logger.
func (l *Logger) Legacy() *utils.Logger {
	return l.legacy
}

// Slog exposes the structured logger for new integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.legacy.Slog()
}

func (l *Logger) Close() error {
	return l.legacy.Close()
}
