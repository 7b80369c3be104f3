// logadapter.go - optional bridge between this package's Logger interface
// and github.com/joeycumines/logiface, for callers who already standardize
// on logiface elsewhere and want coro's task/pool/scheduler diagnostics to
// flow through the same pipeline.

package coro

import (
	"time"

	"github.com/joeycumines/logiface"
)

// logifaceLevel maps this package's LogLevel onto logiface's syslog-derived
// Level scale, following the mapping logiface's own docs recommend for
// debug/info/warn/error style loggers.
func logifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

func levelFromLogiface(l logiface.Level) LogLevel {
	// logiface's syslog-derived scale runs more-severe-to-less-severe as
	// the numeric value increases (LevelError < LevelWarning <
	// LevelInformational < LevelDebug), the opposite of this package's
	// LogLevel — so the bucket boundaries must be checked narrowest-first.
	switch {
	case l <= logiface.LevelError:
		return LevelError
	case l <= logiface.LevelWarning:
		return LevelWarn
	case l <= logiface.LevelInformational:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// logifaceEvent is the concrete logiface.Event this adapter builds its
// Logger[E] around; it just accumulates the fields a Builder chain adds.
type logifaceEvent struct {
	logiface.UnimplementedEvent
	level   logiface.Level
	message string
	err     error
	fields  map[string]any
}

func (e *logifaceEvent) Level() logiface.Level { return e.level }

func (e *logifaceEvent) AddField(key string, val any) {
	if e.fields == nil {
		e.fields = make(map[string]any, 4)
	}
	e.fields[key] = val
}

func (e *logifaceEvent) AddMessage(msg string) bool {
	e.message = msg
	return true
}

func (e *logifaceEvent) AddError(err error) bool {
	e.err = err
	return true
}

type logifaceEventFactory struct{}

func (logifaceEventFactory) NewEvent(level logiface.Level) *logifaceEvent {
	return &logifaceEvent{level: level}
}

// logifaceWriter forwards completed logiface events into a coro.Logger,
// so coro.NewLogifaceLogger can sit in front of any existing Logger
// implementation (DefaultLogger, WriterLogger, a caller's own adapter).
type logifaceWriter struct {
	target Logger
}

func (w *logifaceWriter) Write(e *logifaceEvent) error {
	w.target.Log(LogEntry{
		Level:     levelFromLogiface(e.level),
		Category:  "logiface",
		Message:   e.message,
		Err:       e.err,
		Context:   e.fields,
		Timestamp: time.Now(),
	})
	return nil
}

// NewLogifaceLogger builds a *logiface.Logger[E] that writes through to
// target, so existing logiface call sites (Info().Str(...).Log(...), etc.)
// end up in this package's own logging pipeline instead of needing a
// separate sink configured.
func NewLogifaceLogger(target Logger, level LogLevel) *logiface.Logger[*logifaceEvent] {
	return logiface.New[*logifaceEvent](
		logiface.WithEventFactory[*logifaceEvent](logifaceEventFactory{}),
		logiface.WithWriter[*logifaceEvent](&logifaceWriter{target: target}),
		logiface.WithLevel[*logifaceEvent](logifaceLevel(level)),
	)
}

// logifaceLogger implements this package's Logger interface on top of an
// already-configured *logiface.Logger[E], the other direction of the
// bridge: for callers who built their logiface pipeline first and want
// coro's internals (panic recovery, poll errors, shutdown) to log through
// it rather than through DefaultLogger/WriterLogger.
type logifaceLogger[E logiface.Event] struct {
	l *logiface.Logger[E]
}

// WrapLogifaceLogger adapts an existing *logiface.Logger[E] for use with
// SetStructuredLogger. The wrapped logger's Event implementation must
// support AddMessage, AddError and generic AddField (via Any) for the
// bridged fields to be carried through; an implementation that ignores
// them still logs, it just loses structured context.
func WrapLogifaceLogger[E logiface.Event](l *logiface.Logger[E]) Logger {
	return &logifaceLogger[E]{l: l}
}

func (x *logifaceLogger[E]) IsEnabled(level LogLevel) bool {
	lvl := logifaceLevel(level)
	return lvl.Enabled() && lvl <= x.l.Level()
}

func (x *logifaceLogger[E]) Log(entry LogEntry) {
	b := x.l.Build(logifaceLevel(entry.Level))
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	if entry.Category != "" {
		b = b.Any("category", entry.Category)
	}
	if entry.TaskID != 0 {
		b = b.Any("task", entry.TaskID)
	}
	if entry.WorkerID != 0 {
		b = b.Any("worker", entry.WorkerID)
	}
	if entry.SlotID != 0 {
		b = b.Any("slot", entry.SlotID)
	}
	for k, v := range entry.Context {
		b = b.Any(k, v)
	}
	b.Log(entry.Message)
}
