package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	Info    *log.Logger
	Warn    *log.Logger
	Debug   *log.Logger
	Verbose *log.Logger
	Error   *log.Logger
	Always  *log.Logger // Always logs regardless of log level

	// Current log level for filtering
	currentLogLevel string
)

var levels = map[string]int{
	"error":   0,
	"warn":    1,
	"info":    2,
	"debug":   3,
	"verbose": 4,
}

// Loggers discard everything until Init* is called, so packages can log
// unconditionally in tests.
func init() {
	setup("error", io.Discard, io.Discard)
}

func Init() error {
	return InitWithLevel("info")
}

func InitWithLevel(logLevel string) error {
	return InitWithConfig(logLevel, "pricing.log")
}

// InitWithConfig opens (or appends to) logFilePath and routes every level at
// or below logLevel to it. Errors are also copied to stderr.
func InitWithConfig(logLevel, logFilePath string) error {
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	setup(logLevel, logFile, io.MultiWriter(os.Stderr, logFile))
	return nil
}

// InitWithWriter routes all levels to w; used by tests and the CLI tools.
func InitWithWriter(logLevel string, w io.Writer) {
	setup(logLevel, w, w)
}

// Level returns the active log level name.
func Level() string {
	return currentLogLevel
}

func setup(logLevel string, out, errOut io.Writer) {
	currentLogLevel = strings.ToLower(strings.TrimSpace(logLevel))

	Info = log.New(getWriter("info", out), "ℹ️  INFO: ", log.Ldate|log.Ltime)
	Warn = log.New(getWriter("warn", out), "⚠️  WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	Debug = log.New(getWriter("debug", out), "🐛 DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	Verbose = log.New(getWriter("verbose", out), "🔍 VERBOSE: ", log.Ldate|log.Ltime|log.Lshortfile)
	Error = log.New(errOut, "❌ ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	Always = log.New(out, "📝 ALWAYS: ", log.Ldate|log.Ltime) // bypasses level filtering
}

// getWriter returns the active writer if level is enabled, io.Discard otherwise
func getWriter(level string, activeWriter io.Writer) io.Writer {
	if shouldLog(level) {
		return activeWriter
	}
	return io.Discard
}

// shouldLog determines if a log level should be active
func shouldLog(level string) bool {
	currentLevel, exists := levels[currentLogLevel]
	if !exists {
		currentLevel = levels["info"]
	}

	requiredLevel, exists := levels[level]
	if !exists {
		return false
	}

	return currentLevel >= requiredLevel
}
