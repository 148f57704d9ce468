// Package debug provides the spine's best-effort structured logging. It
// mirrors the teacher's debug.Logf call-site idiom (a package-level logger,
// silent unless enabled, used for fire-and-forget observability rather than
// control flow) while adding file rotation, since the teacher's own
// internal/debug package was not part of the retrieved file set.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	logger  = log.New(io.Discard, "", log.LstdFlags)
	enabled atomic.Bool
)

// Enable turns on logging to stderr plus an optional rotated log file.
// logPath may be empty to log to stderr only.
func Enable(logPath string) {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stderr
	if logPath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	logger = log.New(w, "", log.LstdFlags|log.Lmicroseconds)
	enabled.Store(true)
}

// Disable silences all logging (the default state).
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(io.Discard, "", 0)
	enabled.Store(false)
}

// Enabled reports whether logging is currently turned on.
func Enabled() bool { return enabled.Load() }

// Logf logs an informational message. Best-effort: never blocks a caller on
// I/O failure, never participates in a storage transaction.
func Logf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Output(2, "[info] "+fmt.Sprintf(format, args...)) //nolint:errcheck
}

// Warnf logs a warning-level message.
func Warnf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Output(2, "[warn] "+fmt.Sprintf(format, args...)) //nolint:errcheck
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Output(2, "[error] "+fmt.Sprintf(format, args...)) //nolint:errcheck
}

// Event is the structured write-event shape spec.md §4.2 requires every
// ArtifactRepository write to emit: {entity, id, op, actor, at}.
type Event struct {
	Entity string
	ID     any
	Op     string
	Actor  string
}

// LogEvent logs a structured write event. It takes no part in any
// transaction: a call made inside one is logged immediately, even if that
// transaction later rolls back (spec.md §4.2: "events are best-effort, not
// in the transaction").
func LogEvent(e Event) {
	Logf("entity=%s id=%v op=%s actor=%s", e.Entity, e.ID, e.Op, e.Actor)
}
