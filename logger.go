package dali

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for dali and the devices of every live
// pipeline. By default dali produces no log output.
//
// Pass nil to restore the silent default.
//
// Log levels used by dali:
//   - [slog.LevelDebug]: frame statistics, texture uploads, target cache misses
//   - [slog.LevelInfo]: pipeline creation, adapter selection
//   - [slog.LevelWarn]: shader warnings, release errors
//
// Example:
//
//	dali.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for p := range live {
		if !p.ownLogger {
			p.log.Store(l)
			propagateLogger(p.dev, l)
		}
	}
}

// Logger returns the current logger used by dali.
// The gpu package calls this to share the same configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(dev any, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// live tracks pipelines that have not been destroyed, for SetLogger.
var (
	liveMu sync.Mutex
	live   = make(map[*Pipeline]struct{})
)

func track(p *Pipeline) {
	liveMu.Lock()
	live[p] = struct{}{}
	liveMu.Unlock()
}

func untrack(p *Pipeline) {
	liveMu.Lock()
	delete(live, p)
	liveMu.Unlock()
}
