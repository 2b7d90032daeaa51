// Package logging holds the process-wide logrus logger shared by the
// libraries and binaries of this module.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level = logrus.Level

const (
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	TraceLevel = logrus.TraceLevel
)

// Fields is an alias so callers need not import logrus for structured fields.
type Fields = logrus.Fields

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
}

// SetLevel parses name ("debug", "warn", ...) and applies it. Unknown names
// leave the level unchanged and return the parse error.
func SetLevel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	Logger.SetLevel(level)
	return nil
}

// SetOutput redirects the shared logger.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// Or returns logger, or the shared logger when logger is nil.
func Or(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return Logger
	}
	return logger
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func With(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func Debugf(format string, args ...any) {
	Logger.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	Logger.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	Logger.Fatalf(format, args...)
}
