// Package logger builds the single zap.Logger instance the driver
// threads through every component via the run context.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config controls level and output destination. Format is chosen
// automatically from the output's terminal-ness unless Format is set.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // "json", "console", or "" to auto-detect
	OutputPath string // stdout, stderr, or a file path
}

// New builds a zap.Logger: console encoding for an interactive terminal,
// JSON encoding otherwise (CI logs, piped output, redirected files).
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	format := cfg.Format
	if format == "" {
		if cfg.OutputPath == "stdout" && term.IsTerminal(int(os.Stdout.Fd())) {
			format = "console"
		} else {
			format = "json"
		}
	}

	var encoderConfig zapcore.EncoderConfig
	if format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      format == "console",
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
