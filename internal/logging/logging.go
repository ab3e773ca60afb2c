// Package logging configures the process logger. Runtime defaults are
// info level with timestamps; tests run at debug without timestamps.
// Environment variables override either profile.
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "COSIM_LOG_LEVEL"
	EnvLogTimestamp = "COSIM_LOG_TIMESTAMP"
	EnvLogNoColor   = "COSIM_LOG_NOCOLOR"
)

var configureOnce sync.Once

// Init configures the global logger once and returns a logger tagged
// with the node role.
func Init(role string) zerolog.Logger {
	configureOnce.Do(configure)
	return log.With().Str("node", role).Logger()
}

// InitTests configures logging for test binaries.
func InitTests() {
	configureOnce.Do(func() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}
		out.PartsExclude = []string{zerolog.TimestampFieldName}
		log.Logger = zerolog.New(out).With().Logger()
	})
}

func configure() {
	level := zerolog.InfoLevel
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}
	zerolog.SetGlobalLevel(level)

	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		out.NoColor = v
	}
	logger := zerolog.New(out)
	withTS := true
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		withTS = v
	}
	if withTS {
		log.Logger = logger.With().Timestamp().Logger()
	} else {
		log.Logger = logger.With().Logger()
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
