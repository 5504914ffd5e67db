// Package driver implements the ITER/VERIFY/ASK/DONE/GIVE_UP state
// machine of spec §4.10. Grounded on
// original_source/src/ralph/loop.py's run_ralph_loop (signal-to-transition
// mapping, rotate/gutter/complete handling, max-iterations exhaustion)
// and the teacher's internal/infrastructure/llm/router.go shape for
// pattern-matching a runner result into a retry/rotate/advance decision,
// reworked from loop.py's implicit exception-driven control flow into
// explicit tagged transitions per spec §9's design note.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alexwolson/ralph/internal/apperr"
	"github.com/alexwolson/ralph/internal/budget"
	"github.com/alexwolson/ralph/internal/prompt"
	"github.com/alexwolson/ralph/internal/provider"
	"github.com/alexwolson/ralph/internal/ring"
	"github.com/alexwolson/ralph/internal/runner"
	"github.com/alexwolson/ralph/internal/signal"
	"github.com/alexwolson/ralph/internal/state"
	"github.com/alexwolson/ralph/internal/stats"
	"github.com/alexwolson/ralph/internal/task"
	"github.com/alexwolson/ralph/internal/vcs"
)

// Phase is one of the driver's five states.
type Phase string

const (
	PhaseIter    Phase = "ITER"
	PhaseVerify  Phase = "VERIFY"
	PhaseAsk     Phase = "ASK"
	PhaseDone    Phase = "DONE"
	PhaseGiveUp  Phase = "GIVE_UP"
)

// defaultMaxVerificationFailures is K from spec §4.10: the number of
// verification failures before giving up, used when
// Params.MaxVerificationFails is not set.
const defaultMaxVerificationFailures = 3

// questionTimeout is how long the ASK phase waits for an operator
// response before proceeding with an empty answer (spec §4.10, §8).
// Overridable in tests so the timeout path doesn't cost real wall time.
var questionTimeout = 60 * time.Second

// defaultIterationCooldown is the inter-iteration pause (spec §5) used
// when Params.Cooldown is zero or negative; the operator can tune it.
const defaultIterationCooldown = 2 * time.Second

// Params configures one driver run.
type Params struct {
	Workspace            string
	TaskFilePath         string
	MaxIterations        int
	MaxVerificationFails int
	Thresholds           budget.Thresholds
	Timeout              time.Duration
	Cooldown             time.Duration
	Branch               string
	OpenPR               bool
	Once                 bool
	Instruction          string
	ProviderOrder        []string

	// AskOperator prompts the operator with question and returns their
	// response, or "" if none arrives within questionTimeout. Required;
	// the CLI wires this to a terminal prompt with a timer.
	AskOperator func(ctx context.Context, question string) (answer string, err error)

	// PRFunc opens a pull request for Branch, if OpenPR is set. Optional.
	PRFunc func(ctx context.Context) error
}

// Outcome is the terminal result of Run.
type Outcome struct {
	Phase      Phase
	Iterations int
	ArchivePath string
}

// Driver runs the iteration/verification loop for one workspace.
type Driver struct {
	p       Params
	logger  *zap.Logger
	store   *state.Store
	git     *vcs.Git
	ring    *ring.Ring
	counters *stats.Counters
}

// New constructs a Driver, building the provider ring from every
// registered adapter and failing fatally if none resolve on PATH.
func New(logger *zap.Logger, p Params) (*Driver, error) {
	if p.MaxVerificationFails <= 0 {
		p.MaxVerificationFails = defaultMaxVerificationFailures
	}
	if p.Cooldown <= 0 {
		p.Cooldown = defaultIterationCooldown
	}
	if p.Thresholds == (budget.Thresholds{}) {
		p.Thresholds = budget.DefaultThresholds()
	}

	candidates := provider.Reorder(provider.All(), p.ProviderOrder)
	r, err := ring.New(candidates)
	if err != nil {
		return nil, err
	}

	return &Driver{
		p:        p,
		logger:   logger,
		store:    state.New(p.Workspace),
		git:      vcs.New(p.Workspace),
		ring:     r,
		counters: stats.New(),
	}, nil
}

// Stats exposes the run's counters (for a dashboard or final summary).
func (d *Driver) Stats() stats.Snapshot { return d.counters.Snapshot() }

// Run drives the state machine to completion and returns its outcome.
func (d *Driver) Run(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if !d.git.IsRepo(ctx) {
		return Outcome{}, apperr.New(apperr.CodeConfiguration, "workspace is not a version-control repository")
	}
	if err := d.store.Init(); err != nil {
		return Outcome{}, apperr.Wrap(apperr.CodeConfiguration, "initializing state store", err)
	}
	if d.git.HasUncommittedChanges(ctx) {
		if err := d.git.CommitAll(ctx, "ralph: initial commit before loop"); err != nil {
			d.logger.Warn("initial commit failed", zap.Error(err))
		}
	}
	if d.p.Branch != "" {
		if err := d.createBranch(ctx); err != nil {
			d.logger.Warn("branch creation failed", zap.Error(err))
		}
	}

	status, err := task.CheckCompletion(d.p.TaskFilePath)
	if err != nil {
		return Outcome{}, apperr.Wrap(apperr.CodeConfiguration, "reading task spec", err)
	}

	if stopWatch, err := state.WatchTaskFile(d.p.TaskFilePath, func() {
		d.logger.Debug("task file changed on disk")
	}); err != nil {
		d.logger.Debug("task file watch unavailable, continuing without it", zap.Error(err))
	} else {
		defer stopWatch()
	}

	phase := PhaseIter
	iteration := d.store.Iteration()
	if iteration == 0 {
		iteration = 1
	}
	vfails := 0

	// Boundary behavior (spec §8): with max_iterations <= 0 or all
	// criteria already checked at start, complete without spawning an
	// agent at all — including skipping verification, which itself
	// requires spawning a verifier.
	if status.IsComplete() || d.p.MaxIterations <= 0 {
		phase = PhaseDone
	}

	for {
		switch phase {
		case PhaseDone:
			archivePath, err := d.store.ArchiveCompleted(d.p.TaskFilePath)
			if err != nil {
				return Outcome{}, apperr.Wrap(apperr.CodeConfiguration, "archiving completed task", err)
			}
			if err := d.git.CommitAll(ctx, fmt.Sprintf("ralph: archive completed task (iteration %d)", iteration)); err != nil {
				d.logger.Warn("archive commit failed", zap.Error(err))
			}
			if d.p.OpenPR && d.p.Branch != "" {
				if err := d.git.PushBranch(ctx, d.p.Branch); err != nil {
					d.logger.Warn("push branch failed", zap.Error(err))
				}
				if d.p.PRFunc != nil {
					if err := d.p.PRFunc(ctx); err != nil {
						d.logger.Warn("open PR failed", zap.Error(err))
					}
				}
			}
			return Outcome{Phase: PhaseDone, Iterations: iteration, ArchivePath: archivePath}, nil

		case PhaseGiveUp:
			archivePath, _ := d.store.ArchiveCompleted(d.p.TaskFilePath)
			_ = d.git.CommitAll(ctx, fmt.Sprintf("ralph: give up after %d verification failures", vfails))
			return Outcome{Phase: PhaseGiveUp, Iterations: iteration, ArchivePath: archivePath},
				apperr.New(apperr.CodeExhaustion, fmt.Sprintf("max verification failures (%d) reached", d.p.MaxVerificationFails))

		case PhaseAsk:
			next, err := d.runAsk(ctx)
			if err != nil {
				return Outcome{}, err
			}
			iteration++
			_ = d.store.SetIteration(iteration)
			d.counters.IncQuestion()
			phase = next

		case PhaseIter:
			// A cancelled context (operator interrupt) must short-circuit
			// here, before runIter spawns another subprocess. The
			// post-iteration cooldown select below alone is too late.
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			if iteration > d.p.MaxIterations {
				return Outcome{}, apperr.New(apperr.CodeExhaustion, fmt.Sprintf("max iterations (%d) reached", d.p.MaxIterations))
			}
			next, err := d.runIter(ctx, iteration)
			if err != nil {
				return Outcome{}, err
			}
			phase = next.phase
			iteration = next.iteration
			_ = d.store.SetIteration(iteration)
			if d.p.Once {
				return Outcome{Phase: phase, Iterations: iteration}, nil
			}
			if phase == PhaseIter {
				select {
				case <-ctx.Done():
					return Outcome{}, ctx.Err()
				case <-time.After(d.p.Cooldown):
				}
			}

		case PhaseVerify:
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			next, err := d.runVerify(ctx, iteration, &vfails)
			if err != nil {
				return Outcome{}, err
			}
			phase = next.phase
			iteration = next.iteration
			_ = d.store.SetIteration(iteration)
		}
	}
}

func (d *Driver) createBranch(ctx context.Context) error {
	return d.git.CreateBranch(ctx, d.p.Branch)
}

type transition struct {
	phase     Phase
	iteration int
}

// runIter runs one ITER-phase iteration and returns the next phase.
func (d *Driver) runIter(ctx context.Context, iteration int) (transition, error) {
	p := d.ring.Current()
	promptText := prompt.Iteration(iteration, d.p.Instruction)

	if err := d.store.LogProgress(fmt.Sprintf("**Session %d started** (provider: %s)", iteration, p.DisplayName())); err != nil {
		d.logger.Warn("log progress failed", zap.Error(err))
	}

	stopSet := signal.NewSet(signal.COMPLETE, signal.ROTATE, signal.GUTTER, signal.QUESTION, signal.VERIFY_PASS, signal.VERIFY_FAIL)

	sig, err := runner.Run(ctx, d.logger, runner.Params{
		Workspace:     d.p.Workspace,
		Provider:      p,
		Prompt:        promptText,
		StopSet:       stopSet,
		TimeoutSignal: signal.ROTATE,
		Thresholds:    d.p.Thresholds,
		Timeout:       d.p.Timeout,
		TaskFilePath:  d.p.TaskFilePath,
		Callbacks: runner.Callbacks{
			OnSnapshot: func(band budget.Health, tokens int64) {
				d.logger.Debug("budget snapshot", zap.String("band", string(band)), zap.Int64("tokens", tokens))
				if err := d.store.LogActivity(fmt.Sprintf("budget snapshot: %d tokens [%s]", tokens, band)); err != nil {
					d.logger.Warn("log activity failed", zap.Error(err))
				}
			},
		},
	})

	d.counters.IncIteration()

	if err != nil {
		// Provider-runtime error: rotate and retry the same iteration
		// (spec §7), unless there is no alternate to rotate to.
		d.logger.Warn("provider runtime error", zap.Error(err), zap.String("provider", p.Name()))
		if err := d.store.LogProgress(fmt.Sprintf("**Session %d failed** - provider error: %s - %v", iteration, p.Name(), err)); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		if d.ring.HasAlternates() {
			d.ring.Advance()
			d.counters.IncRotation()
			return transition{phase: PhaseIter, iteration: iteration}, nil
		}
		return transition{phase: PhaseIter, iteration: iteration + 1}, nil
	}

	status, cErr := task.CheckCompletion(d.p.TaskFilePath)
	if cErr != nil {
		return transition{}, apperr.Wrap(apperr.CodeConfiguration, "reading task spec", cErr)
	}

	switch sig {
	case signal.COMPLETE:
		if status.IsComplete() {
			if err := d.store.LogProgress(fmt.Sprintf("**Session %d ended** - task complete (agent signaled)", iteration)); err != nil {
				d.logger.Warn("log progress failed", zap.Error(err))
			}
			if d.ring.HasAlternates() {
				d.ring.Advance()
			}
			return transition{phase: PhaseVerify, iteration: iteration}, nil
		}
		if err := d.store.LogProgress(fmt.Sprintf("**Session %d ended** - agent claimed complete, criteria remain", iteration)); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		return transition{phase: PhaseIter, iteration: iteration + 1}, nil

	case signal.ROTATE:
		if err := d.store.LogProgress(fmt.Sprintf("**Session %d ended** - context rotation", iteration)); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		return transition{phase: PhaseIter, iteration: iteration + 1}, nil

	case signal.GUTTER:
		if err := d.store.LogProgress(fmt.Sprintf("**Session %d ended** - agent stuck (gutter), provider %s", iteration, p.Name())); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		d.counters.IncGutter()
		if d.ring.HasAlternates() {
			next := d.ring.Advance()
			d.counters.IncRotation()
			d.logger.Info("rotating provider after gutter", zap.String("next", next.Name()))
			return transition{phase: PhaseIter, iteration: iteration}, nil
		}
		return transition{phase: PhaseIter, iteration: iteration + 1}, nil

	case signal.QUESTION:
		return transition{phase: PhaseAsk, iteration: iteration}, nil

	default:
		// Natural completion with no signal.
		if status.IsComplete() {
			return transition{phase: PhaseVerify, iteration: iteration}, nil
		}
		if err := d.store.LogProgress(fmt.Sprintf("**Session %d ended** - agent finished naturally, criteria remain", iteration)); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		return transition{phase: PhaseIter, iteration: iteration + 1}, nil
	}
}

// runVerify runs one VERIFY-phase pass with a (usually rotated)
// provider and returns the next phase.
func (d *Driver) runVerify(ctx context.Context, iteration int, vfails *int) (transition, error) {
	p := d.ring.Current()

	spec, err := task.Parse(d.p.TaskFilePath)
	if err != nil {
		return transition{}, apperr.Wrap(apperr.CodeConfiguration, "parsing task spec for verification", err)
	}

	promptText := prompt.Verification(iteration, spec.Frontmatter.TestCommand)
	stopSet := signal.NewSet(signal.VERIFY_PASS, signal.VERIFY_FAIL, signal.ROTATE, signal.GUTTER)

	sig, err := runner.Run(ctx, d.logger, runner.Params{
		Workspace:     d.p.Workspace,
		Provider:      p,
		Prompt:        promptText,
		StopSet:       stopSet,
		TimeoutSignal: signal.VERIFY_FAIL,
		Thresholds:    d.p.Thresholds,
		Timeout:       d.p.Timeout,
		TaskFilePath:  d.p.TaskFilePath,
	})

	// A runner error during verification is recorded as VERIFY_FAIL
	// rather than propagated (spec §7).
	if err != nil {
		sig = signal.VERIFY_FAIL
	}

	switch sig {
	case signal.VERIFY_PASS:
		if err := d.store.LogProgress(fmt.Sprintf("**Verification %d passed** (provider: %s)", iteration, p.Name())); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		return transition{phase: PhaseDone, iteration: iteration}, nil

	default:
		// VERIFY_FAIL, ROTATE, GUTTER, or runner error all count against
		// the verification-failure budget — the stricter of the two
		// open-question resolutions (spec §9): a verification pass that
		// does not cleanly PASS is itself a failure to verify.
		*vfails++
		if err := d.store.LogProgress(fmt.Sprintf("**Verification %d failed** (%s), vfails=%d", iteration, sig, *vfails)); err != nil {
			d.logger.Warn("log progress failed", zap.Error(err))
		}
		d.counters.IncVerificationFail()
		if *vfails >= d.p.MaxVerificationFails {
			return transition{phase: PhaseGiveUp, iteration: iteration}, nil
		}
		return transition{phase: PhaseIter, iteration: iteration + 1}, nil
	}
}

// runAsk pauses for an operator response to a pending question, with a
// 60 s timeout producing an empty (not missing) answer file.
func (d *Driver) runAsk(ctx context.Context) (Phase, error) {
	raw, err := readFile(d.store.QuestionPath())
	if err != nil {
		return PhaseIter, apperr.Wrap(apperr.CodeConfiguration, "reading question file", err)
	}

	askCtx, cancel := context.WithTimeout(ctx, questionTimeout)
	defer cancel()

	answer := ""
	if d.p.AskOperator != nil {
		a, err := d.p.AskOperator(askCtx, raw)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			d.logger.Warn("operator prompt failed", zap.Error(err))
		}
		answer = a
	}

	if err := d.store.WriteAnswer(answer); err != nil {
		return PhaseIter, apperr.Wrap(apperr.CodeConfiguration, "writing answer file", err)
	}
	return PhaseIter, nil
}

func readFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
