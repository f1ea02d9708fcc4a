package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"crowdwatch/internal/config"
)

// Log file names under the log directory, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to the console and to the log directory
// from the configuration, creating the directory when needed.
func NewLogger(config *config.Config) (*Logger, error) {
	return NewWithWriters(config.LogDirectory, os.Stdout, os.Stderr)
}

// NewWithWriters creates a Logger that mirrors info and warning entries to
// stdout and error entries to stderr, besides the per-level files in logDir.
func NewWithWriters(logDir string, stdout, stderr io.Writer) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logger := &Logger{logDir: logDir}
	if err := logger.setupLoggers(stdout, stderr); err != nil {
		logger.Close()
		return nil, err
	}
	return logger, nil
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(stdout, stderr io.Writer) error {
	infoFileHandle, err := l.openLogFile(InfoFile)
	if err != nil {
		return err
	}
	warningFileHandle, err := l.openLogFile(WarningFile)
	if err != nil {
		return err
	}
	errorFileHandle, err := l.openLogFile(ErrorFile)
	if err != nil {
		return err
	}

	infoWriter := io.MultiWriter(stdout, infoFileHandle)
	warningWriter := io.MultiWriter(stdout, warningFileHandle)
	errorWriter := io.MultiWriter(stderr, errorFileHandle)

	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
	return nil
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	filename := filepath.Join(l.logDir, name)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Dir returns the log directory.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	switch fileName {
	case InfoFile, WarningFile, ErrorFile:
	default:
		return fmt.Errorf("unknown log file %q", fileName)
	}

	l.mu.Lock()
	err := os.Truncate(filepath.Join(l.logDir, fileName), 0)
	l.mu.Unlock()
	if err != nil {
		l.Error("Error clearing %s: %v", fileName, err)
		return fmt.Errorf("failed to clear %s: %w", fileName, err)
	}

	l.Info("File %s has been cleared.", fileName)
	return nil
}

// Close closes the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
