package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Debug is true once InitDebugLog has switched logging to the debug file.
var Debug = false

// DebugLog is the process-wide logger. It writes to stderr until InitDebugLog
// redirects it; stdout stays free for the stdio transport.
var DebugLog = log.NewWithOptions(os.Stderr, log.Options{
	Level:           log.WarnLevel,
	Prefix:          "opendocs",
	ReportTimestamp: true,
})

// SetLogLevel parses one of debug, info, warn, error.
func SetLogLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	DebugLog.SetLevel(lvl)
	return nil
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain document paths)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	Debug = true
	DebugLog.SetOutput(f)
	DebugLog.SetLevel(log.DebugLevel)
	DebugLog.SetReportCaller(true)
	DebugLog.Debug("debug logging started", "env", os.Getenv("OPENDOCS_DEBUG"), "path", logPath)
}
