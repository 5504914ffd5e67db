package stream

import (
	"testing"
	"time"

	"github.com/alexwolson/ralph/internal/budget"
	"github.com/alexwolson/ralph/internal/event"
	"github.com/alexwolson/ralph/internal/signal"
	"github.com/alexwolson/ralph/internal/thrash"
)

func newTestSupervisor(taskFilePath string, onSignal func(signal.Signal)) *Supervisor {
	est := budget.New(budget.Thresholds{Warn: 1_000_000, Rotate: 2_000_000})
	s := New(est, thrash.New(), Hooks{OnSignal: onSignal}, taskFilePath)
	s.now = func() time.Time { return time.Unix(0, 0) }
	return s
}

func TestProcessEvent_AssistantTextDecodesSignal(t *testing.T) {
	var got []signal.Signal
	s := newTestSupervisor("", func(sig signal.Signal) { got = append(got, sig) })

	s.ProcessEvent(event.Event{Kind: event.KindAssistantText, Text: "done " + signal.Tag(signal.COMPLETE)})

	if len(got) != 1 || got[0] != signal.COMPLETE {
		t.Fatalf("expected [COMPLETE], got %v", got)
	}
}

func TestProcessEvent_ToolWriteTriggersTaskFileHook(t *testing.T) {
	called := false
	est := budget.New(budget.Thresholds{Warn: 1_000_000, Rotate: 2_000_000})
	s := New(est, thrash.New(), Hooks{
		OnTaskFileUpdate: func() { called = true },
	}, "/work/RALPH_TASK.md")
	s.now = func() time.Time { return time.Unix(0, 0) }

	s.ProcessEvent(event.Event{Kind: event.KindToolWrite, Path: "/work/RALPH_TASK.md", Bytes: 12})

	if !called {
		t.Fatal("expected OnTaskFileUpdate to fire for a write to the task file path")
	}
}

func TestProcessEvent_ToolWriteOtherPathDoesNotTriggerHook(t *testing.T) {
	called := false
	est := budget.New(budget.Thresholds{Warn: 1_000_000, Rotate: 2_000_000})
	s := New(est, thrash.New(), Hooks{
		OnTaskFileUpdate: func() { called = true },
	}, "/work/RALPH_TASK.md")
	s.now = func() time.Time { return time.Unix(0, 0) }

	s.ProcessEvent(event.Event{Kind: event.KindToolWrite, Path: "/work/other.go", Bytes: 12})

	if called {
		t.Fatal("OnTaskFileUpdate must only fire for the configured task file path")
	}
}

func TestProcessEvent_RepeatedShellFailuresEmitGutter(t *testing.T) {
	var got []signal.Signal
	s := newTestSupervisor("", func(sig signal.Signal) { got = append(got, sig) })

	for i := 0; i < 2; i++ {
		s.ProcessEvent(event.Event{Kind: event.KindToolShell, Command: "make test", ExitCode: 1})
	}
	for _, sig := range got {
		if sig == signal.GUTTER {
			t.Fatal("did not expect GUTTER before the failure threshold is reached")
		}
	}

	s.ProcessEvent(event.Event{Kind: event.KindToolShell, Command: "make test", ExitCode: 1})

	found := false
	for _, sig := range got {
		if sig == signal.GUTTER {
			found = true
		}
	}
	if !found {
		t.Fatal("expected GUTTER once the failure threshold is reached")
	}
}

func TestProcessEvent_BudgetRotateTakesPriorityOverWarn(t *testing.T) {
	var got []signal.Signal
	est := budget.New(budget.Thresholds{Warn: 10, Rotate: 10})
	s := New(est, thrash.New(), Hooks{OnSignal: func(sig signal.Signal) { got = append(got, sig) }}, "")
	s.now = func() time.Time { return time.Unix(0, 0) }

	s.ProcessEvent(event.Event{Kind: event.KindAssistantText, Text: "x"})

	for _, sig := range got {
		if sig == signal.WARN {
			t.Fatal("expected ROTATE to take priority over WARN once both thresholds are crossed")
		}
	}
}

func TestProcessEvent_ShellSuccessDoesNotAccumulateFailures(t *testing.T) {
	var got []signal.Signal
	s := newTestSupervisor("", func(sig signal.Signal) { got = append(got, sig) })

	for i := 0; i < 10; i++ {
		s.ProcessEvent(event.Event{Kind: event.KindToolShell, Command: "make test", ExitCode: 0})
	}
	for _, sig := range got {
		if sig == signal.GUTTER {
			t.Fatal("successful shell commands must never accumulate toward GUTTER")
		}
	}
}
