package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	base = newLogger(os.Stdout)
}

func newLogger(w io.Writer) zerolog.Logger {
	if os.Getenv("ENVIRONMENT") == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func Info(format string, v ...interface{}) {
	base.Info().Msg(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	base.Error().Msg(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	if os.Getenv("ENVIRONMENT") == "development" {
		base.Debug().Msg(fmt.Sprintf(format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	base.Warn().Msg(fmt.Sprintf(format, v...))
}

// Logger carries fixed fields, e.g. the user and conversation of a session.
type Logger struct {
	zl zerolog.Logger
}

// With returns a child logger with alternating key/value fields.
func With(kv ...interface{}) *Logger {
	return &Logger{zl: base.With().Fields(kv).Logger()}
}

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(kv).Logger()}
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if os.Getenv("ENVIRONMENT") == "development" {
		l.zl.Debug().Msg(fmt.Sprintf(format, v...))
	}
}
