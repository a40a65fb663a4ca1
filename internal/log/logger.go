package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Level represents log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelMap = map[Level]logrus.Level{
	LevelDebug: logrus.DebugLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelError: logrus.ErrorLevel,
}

// Format selects how log entries are encoded.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	// FormatAuto picks text for terminals and JSON otherwise.
	FormatAuto Format = "auto"
)

// Logger provides structured logging
type Logger struct {
	entry *logrus.Logger
}

// NewLogger creates a new logger with the specified level
func NewLogger(level Level) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(levelMap[level])
	l.SetFormatter(jsonFormatter())
	return &Logger{entry: l}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := NewLogger(LevelError)
	l.SetOutput(io.Discard)
	return l
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	}
}

// SetOutput sets the output writer for the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.SetOutput(w)
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.entry.SetLevel(levelMap[level])
}

// SetFormat switches the entry encoding. FormatAuto inspects the current
// output and uses text only when it is a terminal.
func (l *Logger) SetFormat(format Format) {
	switch format {
	case FormatText:
		l.entry.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatAuto:
		if f, ok := l.entry.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			l.entry.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			return
		}
		l.entry.SetFormatter(jsonFormatter())
	default:
		l.entry.SetFormatter(jsonFormatter())
	}
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	entry := logrus.NewEntry(l.entry)
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Log(levelMap[level], message)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(LevelDebug, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(LevelInfo, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(LevelWarn, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(LevelError, message, fields)
}

// LogWorkerStopped logs the terminal transition of a probe worker.
// Anything other than a requested cancellation is a warning.
func (l *Logger) LogWorkerStopped(target, reason, runID string) {
	fields := map[string]interface{}{
		"target": target,
		"reason": reason,
		"run_id": runID,
	}
	if reason == "cancelled" {
		l.Info("worker stopped", fields)
		return
	}
	l.Warn("worker stopped", fields)
}

// LogTargetChange logs an add/remove of a monitored target.
func (l *Logger) LogTargetChange(action, target string, err error) {
	fields := map[string]interface{}{
		"action": action,
		"target": target,
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("target change failed", fields)
		return
	}
	l.Info("target changed", fields)
}

// LogConfigLoad logs a config load event
func (l *Logger) LogConfigLoad(success bool, path string, err error) {
	fields := map[string]interface{}{
		"path": path,
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if success {
		l.Info("config loaded", fields)
	} else {
		l.Error("config load failed", fields)
	}
}

// LogError logs a general error
func (l *Logger) LogError(component string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = component
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error("error occurred", fields)
}

// ParseLevel parses a log level string
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
