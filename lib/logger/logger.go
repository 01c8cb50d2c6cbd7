// Package logger provides leveled, named loggers for the application
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

// LogLevel controls the verbosity of a logger. Higher levels include all
// lower ones (a logger at DEBUG also emits INFO, WARNING and ERROR).
type LogLevel int32

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ILogger defines the logging methods used throughout the application
type ILogger interface {
	// SetLevel changes the verbosity of this logger
	SetLevel(level LogLevel)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Implementation
// --------------------------------------------------------------------------

// storeLogger implements the ILogger interface with custom formatting
type storeLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

func (l *storeLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *storeLogger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *storeLogger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *storeLogger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *storeLogger) Errorf(format string, args ...interface{}) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *storeLogger) Panicf(format string, args ...interface{}) {
	if l.level >= CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *storeLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

// loggers holds one shared logger per package name
var loggers = xsync.NewMapOf[string, ILogger]()

// GetLogger returns the shared logger for the given package name,
// creating it with the default level on first use
func GetLogger(pkgName string) ILogger {
	l, _ := loggers.LoadOrCompute(pkgName, func() ILogger {
		// Create standard logger with custom flags
		stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

		return &storeLogger{
			name:   pkgName,
			level:  INFO,
			logger: stdLogger,
		}
	})
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLevel converts a string level to a LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warning", "warn":
		return WARNING
	case "error":
		return ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers sets the level of all application loggers
func InitLoggers(level string) {
	parsed := ParseLevel(level)

	// Pre-register the well known package loggers
	GetLogger("store").SetLevel(parsed)
	GetLogger("codec").SetLevel(parsed)
	GetLogger("cmd").SetLevel(parsed)

	// Adjust any logger created before this call
	loggers.Range(func(_ string, l ILogger) bool {
		l.SetLevel(parsed)
		return true
	})
}
