package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Fields = logrus.Fields

type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// New builds a logger writing to stdout. Unknown levels fall back to info.
func New(level string, jsonFormat bool) *Logger {
	return NewWithWriter(os.Stdout, level, jsonFormat)
}

func NewWithWriter(out io.Writer, level string, jsonFormat bool) *Logger {
	l := logrus.New()
	l.Out = out

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	if jsonFormat {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			PadLevelText:  true,
		})
	}
	return &Logger{logger: l}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, "panic", false)
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{logger: l.logger, fields: merged}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(logrus.DebugLevel, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(logrus.InfoLevel, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(logrus.WarnLevel, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(logrus.ErrorLevel, msg, fields...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.log(logrus.FatalLevel, msg, fields...)
	os.Exit(1)
}

func (l *Logger) log(level logrus.Level, msg string, fields ...Fields) {
	entry := logrus.NewEntry(l.logger)
	if len(l.fields) > 0 {
		entry = entry.WithFields(l.fields)
	}
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Log(level, msg)
}
