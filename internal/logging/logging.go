package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu         sync.Mutex
	logger     = newLogger(os.Stdout)
	outputFile *os.File
	outputPath string
)

// plainFormatter writes messages verbatim. Callers own their line endings,
// which keeps carriage-return progress lines and multi-part log lines intact.
type plainFormatter struct{}

func (plainFormatter) Format(e *logrus.Entry) ([]byte, error) {
	switch e.Level {
	case logrus.WarnLevel:
		return []byte("Warning: " + e.Message), nil
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return []byte("Error: " + e.Message), nil
	default:
		return []byte(e.Message), nil
	}
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(plainFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetVerbose enables or disables debug logging for the current process.
func SetVerbose(enabled bool) {
	if enabled {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	logger.SetLevel(logrus.InfoLevel)
}

// Verbose reports whether debug logging is enabled.
func Verbose() bool {
	return logger.IsLevelEnabled(logrus.DebugLevel)
}

// SetOutputFile configures optional file logging while preserving stdout output.
// Passing an empty path disables file logging.
func SetOutputFile(path string) error {
	path = strings.TrimSpace(path)

	mu.Lock()
	defer mu.Unlock()

	if path == outputPath {
		return nil
	}

	if outputFile != nil {
		err := outputFile.Close()
		outputFile = nil
		outputPath = ""
		logger.SetOutput(os.Stdout)
		if err != nil {
			return err
		}
	}

	logger.SetOutput(os.Stdout)
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	outputFile = f
	outputPath = path
	logger.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// SetOutput replaces the console writer. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if outputFile != nil {
		logger.SetOutput(io.MultiWriter(w, outputFile))
		return
	}
	logger.SetOutput(w)
}

// Close flushes and closes the log file if one is configured.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if outputFile == nil {
		return nil
	}
	err := outputFile.Close()
	outputFile = nil
	outputPath = ""
	logger.SetOutput(os.Stdout)
	return err
}

// Infof prints formatted output regardless of verbosity level.
func Infof(format string, args ...any) {
	logger.Info(fmt.Sprintf(format, args...))
}

// Infoln prints output regardless of verbosity level.
func Infoln(args ...any) {
	logger.Info(fmt.Sprintln(args...))
}

// Warnf prints a warning regardless of verbosity level.
func Warnf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...))
}

// Debugf prints formatted output only when verbose mode is enabled.
func Debugf(format string, args ...any) {
	if !Verbose() {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...))
}
