// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger zerolog.Logger

// Config controls the process-wide logger.
type Config struct {
	Level      string `yaml:"level"`
	Debug      bool   `yaml:"debug"`
	Output     string `yaml:"output"`
	TimeFormat string `yaml:"time_format"`
}

func init() {
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init configures the global logger. Audit output goes to stdout, so logs
// default to stderr.
func Init(config Config) error {
	var output io.Writer = os.Stderr

	if config.Output == "stdout" {
		output = os.Stdout
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	globalLogger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = globalLogger

	return nil
}

// Get returns the global logger.
func Get() zerolog.Logger {
	return globalLogger
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
