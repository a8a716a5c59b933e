// Package progress carries search status events from the orchestrator to
// whatever is watching: a log, a terminal view or an HTTP client.
package progress

import (
	"go.uber.org/zap"
)

// Phase tags an Event.
type Phase string

const (
	PhaseStart     Phase = "start"
	PhaseSearching Phase = "searching"
	PhasePage      Phase = "page"
	PhaseCached    Phase = "cached"
	PhaseDone      Phase = "done"
	PhaseError     Phase = "error"
)

// Event is a single status update. Current and Total count query variants,
// not pages within a variant.
type Event struct {
	Phase    Phase  `json:"phase"`
	Message  string `json:"message"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Found    int    `json:"found"`
	APICalls int    `json:"apiCalls"`
}

// Reporter receives events synchronously. Implementations must not block
// for long; nothing is acknowledged or replayed.
type Reporter interface {
	Report(Event)
}

// Func adapts a function to Reporter.
type Func func(Event)

func (f Func) Report(e Event) { f(e) }

type nop struct{}

func (nop) Report(Event) {}

// Nop discards every event.
var Nop Reporter = nop{}

type safe struct {
	next Reporter
	log  *zap.Logger
}

// Safe wraps r so that a panicking sink cannot abort the search. A nil r
// yields Nop.
func Safe(r Reporter, log *zap.Logger) Reporter {
	if r == nil {
		return Nop
	}
	if _, ok := r.(*safe); ok {
		return r
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &safe{next: r, log: log}
}

func (s *safe) Report(e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Warn("progress reporter panicked", zap.Any("panic", rec), zap.String("phase", string(e.Phase)))
		}
	}()
	s.next.Report(e)
}

// Multi fans an event out to several reporters in order.
func Multi(rs ...Reporter) Reporter {
	return Func(func(e Event) {
		for _, r := range rs {
			if r != nil {
				r.Report(e)
			}
		}
	})
}

type logReporter struct {
	log *zap.Logger
}

// NewLogReporter writes every event to log at debug level, errors at warn.
func NewLogReporter(log *zap.Logger) Reporter {
	return &logReporter{log: log}
}

func (l *logReporter) Report(e Event) {
	fields := []zap.Field{
		zap.String("phase", string(e.Phase)),
		zap.Int("current", e.Current),
		zap.Int("total", e.Total),
		zap.Int("found", e.Found),
		zap.Int("api_calls", e.APICalls),
	}
	if e.Phase == PhaseError {
		l.log.Warn(e.Message, fields...)
		return
	}
	l.log.Debug(e.Message, fields...)
}

// Chan delivers events to C without blocking the search. Events are dropped
// while the consumer is behind, except terminal ones, which wait for room
// until Done is closed.
type Chan struct {
	C    chan Event
	Done <-chan struct{}
}

// NewChan returns a Chan buffering size events. done is closed when the
// consumer goes away.
func NewChan(size int, done <-chan struct{}) Chan {
	return Chan{C: make(chan Event, size), Done: done}
}

func (c Chan) Report(e Event) {
	if e.Phase == PhaseDone || e.Phase == PhaseError || e.Phase == PhaseCached {
		select {
		case c.C <- e:
		case <-c.Done:
		}
		return
	}
	select {
	case c.C <- e:
	default:
	}
}
