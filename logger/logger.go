// Package logger wraps zerolog with per-component child loggers.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger carrying fixed context fields
type Logger struct {
	zl zerolog.Logger
}

// Fields are attached to every event of a derived logger
type Fields map[string]interface{}

var (
	// Default is set by Init
	Default *Logger

	initOnce sync.Once
)

// Init sets up Default on stdout at the level named by LOG_LEVEL. Without LOG_LEVEL,
// production runs log at info and everything else at debug.
func Init() {
	initOnce.Do(func() {
		level := levelFromEnv()
		zerolog.TimeFieldFormat = time.RFC3339
		zerolog.SetGlobalLevel(level)

		Default = New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		Default.Info().Str("level", level.String()).Msg("Logger initialized")
	})
}

// New creates a logger writing to w
func New(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func levelFromEnv() zerolog.Level {
	name := os.Getenv("LOG_LEVEL")
	if name == "" {
		if os.Getenv("DEALFINDER_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}
	if level, err := zerolog.ParseLevel(name); err == nil {
		return level
	}
	return zerolog.InfoLevel
}

// WithFields derives a logger with every entry of fields attached
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithField derives a logger with one field attached
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

func defaultLogger() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// Info logs a formatted message on Default
func Info(format string, v ...interface{}) {
	defaultLogger().Info().Msgf(format, v...)
}

// LogError logs err on Default tagged with component
func LogError(component string, err error, format string, v ...interface{}) {
	defaultLogger().Error().
		Str("component", component).
		Err(err).
		Msg(fmt.Sprintf(format, v...))
}

func ForCrawler(domain string) *Logger { return defaultLogger().WithField("domain", domain) }

func ForWorker() *Logger    { return forComponent("worker") }
func ForAnalyzer() *Logger  { return forComponent("analyzer") }
func ForPublisher() *Logger { return forComponent("publisher") }
func ForStore() *Logger     { return forComponent("store") }
func ForCache() *Logger     { return forComponent("cache") }

func forComponent(name string) *Logger {
	return defaultLogger().WithField("component", name)
}
