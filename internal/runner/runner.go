// Package runner implements the iteration runner of spec §4.7: spawn a
// provider subprocess, pipe the prompt in, stream normalized events out
// through the stream supervisor, enforce a wall-clock timeout, and reap
// the child. Grounded on the teacher's
// internal/infrastructure/sandbox/process_sandbox.go for the
// exec.Command + timeout + exit-code classification shape, adapted from
// a single-shot sandboxed command to a long-lived streaming child with
// piped stdin and a graceful-terminate-then-kill shutdown sequence.
package runner

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alexwolson/ralph/internal/budget"
	"github.com/alexwolson/ralph/internal/event"
	"github.com/alexwolson/ralph/internal/provider"
	"github.com/alexwolson/ralph/internal/signal"
	"github.com/alexwolson/ralph/internal/stream"
	"github.com/alexwolson/ralph/internal/thrash"
	"github.com/alexwolson/ralph/pkg/safego"
)

// killGrace is how long the runner waits for the child to exit on its
// own after being signaled to terminate before force-killing it (spec
// §4.7 step 6).
const killGrace = 5 * time.Second

// Callbacks lets the driver observe an iteration without the runner
// owning driver-level concerns (state store, dashboard hook).
type Callbacks struct {
	OnTaskFileUpdate func()
	OnSnapshot       func(band budget.Health, tokens int64)
	OnStderrLine     func(line string)
}

// Params bundles the inputs to one iteration run (spec §4.7 contract).
type Params struct {
	Workspace     string
	Provider      provider.Adapter
	Prompt        string
	StopSet       signal.Set
	TimeoutSignal signal.Signal
	Thresholds    budget.Thresholds
	Timeout       time.Duration
	TaskFilePath  string
	Callbacks     Callbacks
}

// Run executes one iteration per spec §4.7's numbered steps and returns
// the resulting signal (the empty string denotes "natural completion
// with no verdict").
func Run(ctx context.Context, logger *zap.Logger, p Params) (signal.Signal, error) {
	est := budget.New(p.Thresholds)
	detector := thrash.New()

	deadline, cancelDeadline := context.WithTimeout(ctx, p.Timeout)
	defer cancelDeadline()

	args := p.Provider.SpawnArgs(p.Workspace)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = p.Workspace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}

	if err := cmd.Start(); err != nil {
		return "", err
	}

	if _, err := io.WriteString(stdin, p.Prompt); err != nil {
		logger.Warn("failed writing prompt to provider stdin", zap.Error(err))
	}
	stdin.Close()

	// waitDone is closed exactly once, by the sole goroutine that calls
	// cmd.Wait, after it has recorded waitErr. Everything else that
	// needs "has the child exited" (and what it exited with) reads
	// waitErr after waitDone closes, rather than calling Wait a second
	// time or racing to drain a value channel.
	waitDone := make(chan struct{})
	var waitErr error
	safego.Go(logger, "runner-wait", func() {
		waitErr = cmd.Wait()
		close(waitDone)
	})

	safego.Go(logger, "runner-stderr", func() {
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if p.Callbacks.OnStderrLine != nil {
				p.Callbacks.OnStderrLine(scanner.Text())
			}
		}
	})

	// stopRequested is closed once, from the main scanning goroutine
	// only: the moment a stop-set signal fires, or after the scan ends
	// if the deadline has passed. The termination goroutine below is the
	// only reader (it also watches the deadline directly).
	stopRequested := make(chan struct{})
	var stopOnce closer
	var resultSig signal.Signal
	var resultFound bool

	sup := stream.New(est, detector, stream.Hooks{
		OnSignal: func(s signal.Signal) {
			if s == signal.WARN {
				logger.Warn("budget warning threshold crossed")
				return
			}
			if !resultFound && p.StopSet.Contains(s) {
				resultFound = true
				resultSig = s
				stopOnce.do(stopRequested)
			}
		},
		OnTaskFileUpdate: p.Callbacks.OnTaskFileUpdate,
		OnSnapshot:       p.Callbacks.OnSnapshot,
	}, p.TaskFilePath)

	// terminate watches for either the wall-clock deadline or a
	// stop-set signal and runs the graceful-then-forceful shutdown:
	// signal the child to terminate, wait killGrace for it to exit on
	// its own, then kill it outright.
	safego.Go(logger, "runner-terminate", func() {
		select {
		case <-deadline.Done():
		case <-stopRequested:
		}
		if cmd.Process == nil {
			return
		}
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-waitDone:
		case <-time.After(killGrace):
			_ = cmd.Process.Kill()
		}
	})

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if resultFound {
			break
		}
		ev, ok := p.Provider.Normalize(scanner.Text())
		if !ok {
			continue
		}
		sup.ProcessEvent(ev)
	}

	timedOut := deadline.Err() == context.DeadlineExceeded
	if timedOut {
		stopOnce.do(stopRequested)
	}

	<-waitDone

	switch {
	case resultFound:
		return resultSig, nil
	case timedOut:
		return p.TimeoutSignal, nil
	case waitErr != nil:
		// Non-zero exit with no signal emitted: the child could not
		// make progress, so treat it the same as a timeout (spec
		// §4.7 step 5).
		return p.TimeoutSignal, nil
	default:
		return "", nil
	}
}

// closer closes a channel at most once. Both call sites in Run execute on
// the single main scanning goroutine, so no locking is needed here.
type closer struct {
	done bool
}

func (c *closer) do(ch chan struct{}) {
	if c.done {
		return
	}
	c.done = true
	close(ch)
}
