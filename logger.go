package layercache

import (
	"log/slog"

	"github.com/gogpu/layercache/internal/logging"
)

// SetLogger configures the logger for layercache and all its sub-packages.
// By default, layercache produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by layercache:
//   - [slog.LevelDebug]: rebuild decisions (which usage rebuilt and why)
//   - [slog.LevelInfo]: lifecycle events (pool created, layer removed)
//   - [slog.LevelWarn]: non-fatal issues (tile upload failure, once per usage)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	layercache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by layercache.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
