// Package logging provides categorized file-based debug logging for
// vibeforge. Logs are written under the configured directory with one file
// per category per day. When debug mode is off the whole package is a no-op,
// so library code can log freely without a production cost.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Process startup, config load
	CategorySecurity  Category = "security"  // Security gate decisions
	CategoryAnalysis  Category = "analysis"  // Syntax and static analysis
	CategorySandbox   Category = "sandbox"   // Sandboxed execution
	CategoryTester    Category = "tester"    // Test orchestration
	CategoryCorrector Category = "corrector" // Correction strategy loop
	CategoryAPI       Category = "api"       // Generative collaborator calls
	CategorySession   Category = "session"   // Correction session lifecycle
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls logger behavior. Passed in by the config layer at boot so
// this package never has to read configuration files itself.
type Options struct {
	Dir        string          // Directory for log files
	DebugMode  bool            // When false, everything is a no-op
	Level      string          // debug, info, warn, error
	JSONFormat bool            // Structured JSON entries instead of text
	Categories map[string]bool // Per-category enable; nil means all enabled
}

// StructuredLogEntry is the JSON form of one log line.
type StructuredLogEntry struct {
	Timestamp int64  `json:"ts"` // Unix milliseconds
	Category  string `json:"cat"`
	Level     string `json:"lvl"`
	Message   string `json:"msg"`
}

// Logger wraps a standard logger with a category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	opts      Options
	optsMu    sync.RWMutex
	logLevel  int
)

// Initialize sets up the logging directory. Call once at startup.
func Initialize(o Options) error {
	optsMu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	optsMu.Unlock()

	if !o.DebugMode {
		return nil // Silent no-op in production mode
	}
	if o.Dir == "" {
		return fmt.Errorf("log directory required in debug mode")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== vibeforge logging initialized ===")
	boot.Info("Logs directory: %s", o.Dir)
	boot.Info("Log level: %s", o.Level)
	return nil
}

// IsCategoryEnabled reports whether a category currently produces output.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	optsMu.RLock()
	dir := opts.Dir
	optsMu.RUnlock()
	if dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(level int, tag, format string, args ...interface{}) {
	if l.logger == nil || logLevel > level {
		return
	}
	msg := fmt.Sprintf(format, args...)

	optsMu.RLock()
	jsonFormat := opts.JSONFormat
	optsMu.RUnlock()

	if jsonFormat {
		entry := StructuredLogEntry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     tag,
			Message:   msg,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", tag, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first
// =============================================================================

func Security(format string, args ...interface{}) {
	Get(CategorySecurity).Info(format, args...)
}

func SecurityWarn(format string, args ...interface{}) {
	Get(CategorySecurity).Warn(format, args...)
}

func Analysis(format string, args ...interface{}) {
	Get(CategoryAnalysis).Info(format, args...)
}

func AnalysisDebug(format string, args ...interface{}) {
	Get(CategoryAnalysis).Debug(format, args...)
}

func Sandbox(format string, args ...interface{}) {
	Get(CategorySandbox).Info(format, args...)
}

func SandboxDebug(format string, args ...interface{}) {
	Get(CategorySandbox).Debug(format, args...)
}

func SandboxWarn(format string, args ...interface{}) {
	Get(CategorySandbox).Warn(format, args...)
}

func SandboxError(format string, args ...interface{}) {
	Get(CategorySandbox).Error(format, args...)
}

func Tester(format string, args ...interface{}) {
	Get(CategoryTester).Info(format, args...)
}

func TesterDebug(format string, args ...interface{}) {
	Get(CategoryTester).Debug(format, args...)
}

func Corrector(format string, args ...interface{}) {
	Get(CategoryCorrector).Info(format, args...)
}

func CorrectorDebug(format string, args ...interface{}) {
	Get(CategoryCorrector).Debug(format, args...)
}

func CorrectorWarn(format string, args ...interface{}) {
	Get(CategoryCorrector).Warn(format, args...)
}

func CorrectorError(format string, args ...interface{}) {
	Get(CategoryCorrector).Error(format, args...)
}

func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

func APIWarn(format string, args ...interface{}) {
	Get(CategoryAPI).Warn(format, args...)
}

func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warn(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
