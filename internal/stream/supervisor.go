// Package stream implements the stream supervisor of spec §4.5: it
// consumes normalized events from a running agent, drives the budget
// estimator and thrash detector, and yields signals. Grounded on
// original_source/src/ralph/parser.py (parse_stream/process_line) for
// the event-to-signal mapping and the teacher's
// internal/infrastructure/llm/anthropic/sse.go for the
// scan-and-dispatch-per-line shape (here over already-normalized events
// rather than raw SSE frames).
package stream

import (
	"time"

	"github.com/alexwolson/ralph/internal/budget"
	"github.com/alexwolson/ralph/internal/event"
	"github.com/alexwolson/ralph/internal/signal"
	"github.com/alexwolson/ralph/internal/thrash"
)

// snapshotInterval is how often the supervisor asks the caller to record
// a budget snapshot line in the activity log (spec §4.5).
const snapshotInterval = 30 * time.Second

// Hooks lets the caller observe supervisor activity without the
// supervisor owning a logger or a state-store handle directly — the
// iteration runner fills them from its caller's callbacks (spec §4.5's
// on_task_file_update callback, and the periodic snapshot log line).
type Hooks struct {
	// OnSignal is called once per emitted signal, after the mutation
	// that produced it (budget/detector state is authoritative first).
	OnSignal func(s signal.Signal)
	// OnTaskFileUpdate fires after a tool.write targeting taskFilePath.
	OnTaskFileUpdate func()
	// OnSnapshot fires every snapshotInterval of wall time with the
	// current budget health band, for the activity log.
	OnSnapshot func(band budget.Health, tokens int64)
}

// Supervisor drives one iteration's event stream.
type Supervisor struct {
	Budget  *budget.Estimator
	Thrash  *thrash.Detector
	Hooks   Hooks

	// TaskFilePath, if non-empty, is compared against tool.write paths
	// to trigger OnTaskFileUpdate.
	TaskFilePath string

	now           func() time.Time
	lastSnapshot  time.Time
}

func New(b *budget.Estimator, t *thrash.Detector, hooks Hooks, taskFilePath string) *Supervisor {
	return &Supervisor{
		Budget:       b,
		Thrash:       t,
		Hooks:        hooks,
		TaskFilePath: taskFilePath,
		now:          time.Now,
	}
}

// Run consumes events from the channel until it is closed, dispatching
// signals to Hooks.OnSignal as they occur. Events are processed strictly
// in arrival order; state mutation always precedes signal emission for
// the event that produced it.
func (s *Supervisor) Run(events <-chan event.Event) {
	if s.lastSnapshot.IsZero() {
		s.lastSnapshot = s.now()
	}
	for ev := range events {
		s.ProcessEvent(ev)
	}
}

// ProcessEvent handles exactly one normalized event: it mutates budget
// and thrash state, emits any resulting signal, and checks the periodic
// snapshot cadence. Callers driving their own read loop (the iteration
// runner) call this directly instead of going through a channel, which
// keeps the supervisor single-threaded with respect to its caller.
func (s *Supervisor) ProcessEvent(ev event.Event) {
	if s.lastSnapshot.IsZero() {
		s.lastSnapshot = s.now()
	}
	s.processEvent(ev)
	s.maybeSnapshot()
}

func (s *Supervisor) processEvent(ev event.Event) {
	switch ev.Kind {
	case event.KindAssistantText:
		s.Budget.Add(budget.KindAssistant, len(ev.Text))
		if sig, ok := signal.Decode(ev.Text); ok {
			s.emit(sig)
		}
		// Do not return early: budget must stay current for every chunk,
		// even ones that also happen to carry a signal.

	case event.KindToolRead:
		s.Budget.Add(budget.KindRead, ev.Bytes)

	case event.KindToolWrite:
		s.Budget.Add(budget.KindWrite, ev.Bytes)
		if s.Thrash.RecordWrite(ev.Path) {
			s.emit(signal.GUTTER)
		}
		if s.TaskFilePath != "" && ev.Path == s.TaskFilePath && s.Hooks.OnTaskFileUpdate != nil {
			s.Hooks.OnTaskFileUpdate()
		}

	case event.KindToolShell:
		s.Budget.Add(budget.KindShell, ev.StdoutBytes+ev.StderrBytes)
		if ev.ExitCode != 0 && s.Thrash.RecordFailure(ev.Command, ev.ExitCode) {
			s.emit(signal.GUTTER)
		}

	case event.KindSystemInit, event.KindResult, event.KindUnknown:
		// No budget effect.
	}

	if s.Budget.ShouldRotate() {
		s.emit(signal.ROTATE)
	} else if s.Budget.ShouldWarn() {
		s.emit(signal.WARN)
	}
}

func (s *Supervisor) emit(sig signal.Signal) {
	if s.Hooks.OnSignal != nil {
		s.Hooks.OnSignal(sig)
	}
}

func (s *Supervisor) maybeSnapshot() {
	now := s.now()
	if now.Sub(s.lastSnapshot) < snapshotInterval {
		return
	}
	s.lastSnapshot = now
	if s.Hooks.OnSnapshot != nil {
		s.Hooks.OnSnapshot(s.Budget.HealthBand(), s.Budget.Current())
	}
}
