package framelock

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Unity-Technologies/ClusterDisplay/backend"
)

// LogType is the level attached to messages forwarded to the host's log
// callback. The values match the host engine's log enumeration.
type LogType int32

const (
	// LogTypeError is used for errors.
	LogTypeError LogType = 0
	// LogTypeAssert is used for assertion failures.
	LogTypeAssert LogType = 1
	// LogTypeWarning is used for warnings.
	LogTypeWarning LogType = 2
	// LogTypeLog is used for regular log messages.
	LogTypeLog LogType = 3
	// LogTypeException is used for exceptions surfaced by the host.
	LogTypeException LogType = 4
)

// LogCallback receives a log level and a rendered UTF-8 message.
type LogCallback func(level int32, message string)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for framelock and its sub-packages.
// By default the package produces no log output. Pass nil to restore the
// default silent behavior.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically and propagates it to the adapter package.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	backend.SetLogger(l)
}

// Logger returns the current logger. Sub-packages share it through
// SetLogger propagation rather than importing this package.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// SetLogCallback installs the host's log callback and routes all package
// logging through it. Passing nil uninstalls the callback and restores
// silence.
func SetLogCallback(cb LogCallback) {
	if cb == nil {
		SetLogger(nil)
		return
	}
	SetLogger(slog.New(&CallbackHandler{cb: cb}))
}

// CallbackHandler forwards slog records to a host log callback, mapping
// slog levels onto the host's LogType values.
type CallbackHandler struct {
	cb    LogCallback
	attrs []slog.Attr
}

// NewCallbackHandler wraps cb in a slog.Handler.
func NewCallbackHandler(cb LogCallback) *CallbackHandler {
	return &CallbackHandler{cb: cb}
}

// Enabled reports true for every level; filtering is the host's call.
func (h *CallbackHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle renders the record as "msg key=value ..." and forwards it.
func (h *CallbackHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	for _, a := range h.attrs {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	h.cb(int32(logTypeFor(r.Level)), msg)
	return nil
}

// WithAttrs returns a handler that prepends attrs to every record.
func (h *CallbackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CallbackHandler{cb: h.cb, attrs: merged}
}

// WithGroup returns the handler unchanged; the host callback is flat.
func (h *CallbackHandler) WithGroup(string) slog.Handler { return h }

// logTypeFor maps a slog level onto the host's log enumeration.
func logTypeFor(level slog.Level) LogType {
	switch {
	case level >= slog.LevelError:
		return LogTypeError
	case level >= slog.LevelWarn:
		return LogTypeWarning
	default:
		return LogTypeLog
	}
}
