package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dndmaster-go/src/configs"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Logger writes JSON lines to the session log file. Console output is left
// to the game display; a terminal session cannot share stdout with the log.
type Logger struct {
	config  *configs.Config
	logFile *os.File
}

// LogEntry is the JSON shape of one log line.
type LogEntry struct {
	Time    string      `json:"time"`
	Level   LogLevel    `json:"level"`
	Tag     string      `json:"tag,omitempty"`
	Message string      `json:"message"`
	Fields  interface{} `json:"fields,omitempty"`
}

// NewLogger opens the log file under the configured directory.
func NewLogger(config *configs.Config) (*Logger, error) {
	if err := os.MkdirAll(config.Log.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(config.Log.LogDir, config.Log.LogFile)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		config:  config,
		logFile: file,
	}, nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, tag string, msg string, fields ...interface{}) {
	var extra interface{}
	if len(fields) > 0 {
		if strings.Contains(msg, "%") {
			msg = fmt.Sprintf(msg, fields...)
		} else {
			extra = fields[0]
		}
	}

	entry := LogEntry{
		Time:    time.Now().Format("2006-01-02 15:04:05.000"),
		Level:   level,
		Tag:     tag,
		Message: msg,
		Fields:  extra,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal log entry: %v\n", err)
		return
	}

	if _, err := l.logFile.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "write log: %s %v\n", msg, err)
	}
}

// Debug logs at debug level when enabled.
func (l *Logger) Debug(msg string, fields ...interface{}) {
	if l.config.Log.LogLevel == "debug" {
		l.log(DebugLevel, "", msg, fields...)
	}
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, "", msg, fields...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, "", msg, fields...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, "", msg, fields...)
}

// TaggedLogger prefixes every entry with a component tag.
type TaggedLogger struct {
	*Logger
	tag string
}

// WithTag returns a logger that tags every entry.
func (l *Logger) WithTag(tag string) *TaggedLogger {
	return &TaggedLogger{
		Logger: l,
		tag:    tag,
	}
}

// Debug logs at debug level when enabled.
func (l *TaggedLogger) Debug(msg string, fields ...interface{}) {
	if l.config.Log.LogLevel == "debug" {
		l.log(DebugLevel, l.tag, msg, fields...)
	}
}

// Info logs at info level.
func (l *TaggedLogger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, l.tag, msg, fields...)
}

// Warn logs at warn level.
func (l *TaggedLogger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, l.tag, msg, fields...)
}

// Error logs at error level.
func (l *TaggedLogger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, l.tag, msg, fields...)
}
