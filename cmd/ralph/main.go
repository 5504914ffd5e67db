// Command ralph drives the iteration-and-verification loop described
// in this repository's core packages. Grounded on the teacher's
// cmd/cli/main.go for the cobra root-command + zap-logger wiring
// shape, and original_source/src/ralph/cli.py for the run command's
// flags and exit-code contract (spec §6).
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/alexwolson/ralph/internal/apperr"
	"github.com/alexwolson/ralph/internal/budget"
	"github.com/alexwolson/ralph/internal/config"
	"github.com/alexwolson/ralph/internal/driver"
	"github.com/alexwolson/ralph/internal/logger"
	"github.com/alexwolson/ralph/internal/vcs"
)

func main() {
	os.Exit(run())
}

// run returns the process exit status per spec §6: 0 for verified
// success, 1 for any fatal error (not-a-repo, no providers, parse
// failure, max iterations exhausted, operator interrupt).
func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ralph",
		Short: "Drive an external coding agent through an iteration-and-verification loop",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workspace>",
		Short: "Run the iteration loop against a task specification in workspace",
		Args:  cobra.ExactArgs(1),
		RunE:  runCommand,
	}

	flags := cmd.Flags()
	flags.Int("iterations", 20, "maximum iteration count")
	flags.String("branch", "", "branch to create and work on")
	flags.Bool("pr", false, "open a pull request on completion (requires --branch)")
	flags.Bool("once", false, "run a single iteration and exit")
	flags.Int("warn-threshold", 72_000, "token estimate at which to warn")
	flags.Int("rotate-threshold", 80_000, "token estimate at which to rotate context")
	flags.Int("timeout", 300, "per-iteration timeout, in seconds")
	flags.String("instruction", "", "extra operator instruction appended to the iteration prompt")
	flags.Int("cooldown", 2, "inter-iteration pause, in seconds")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	workspace, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(cmd.Flags(), workspace)
	if err != nil {
		return apperr.Wrap(apperr.CodeConfiguration, "loading configuration", err)
	}

	log, err := logger.New(logger.Config{OutputPath: "stdout"})
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(cfg.ProviderOrder) > 0 {
		log.Info("provider order overridden", zap.Strings("order", cfg.ProviderOrder))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("operator interrupt received, draining")
		cancel()
	}()

	d, err := driver.New(log, driver.Params{
		Workspace:            workspace,
		TaskFilePath:         filepath.Join(workspace, "RALPH_TASK.md"),
		MaxIterations:        cfg.Iterations,
		Thresholds:           budget.Thresholds{Warn: cfg.WarnThreshold, Rotate: cfg.RotateThreshold},
		Timeout:              time.Duration(cfg.TimeoutSeconds) * time.Second,
		Cooldown:             time.Duration(cfg.Cooldown) * time.Second,
		Branch:               cfg.Branch,
		OpenPR:               cfg.OpenPR,
		Once:                 cfg.Once,
		Instruction:          cfg.Instruction,
		ProviderOrder:        cfg.ProviderOrder,
		AskOperator:          askOperator,
	})
	if err != nil {
		return err
	}

	outcome, runErr := d.Run(ctx)
	if runErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return drainOnInterrupt(workspace, log)
		}
		log.Error("driver exited with error", zap.Error(runErr))
		return runErr
	}

	log.Info("driver finished", zap.String("phase", string(outcome.Phase)), zap.Int("iterations", outcome.Iterations))
	return nil
}

// drainOnInterrupt commits any working-tree changes with a message
// flagging the interrupt, per spec §4.10/§7's operator-interrupt drain.
func drainOnInterrupt(workspace string, log *zap.Logger) error {
	g := vcs.New(workspace)
	ctx := context.Background()
	if !g.HasUncommittedChanges(ctx) {
		return apperr.New(apperr.CodeOperatorInterrupt, "interrupted by operator")
	}
	commitErr := g.CommitAll(ctx, "ralph: saving progress before operator interrupt")
	if commitErr != nil {
		log.Error("failed to save progress on interrupt", zap.Error(commitErr))
		return multierr.Append(
			apperr.New(apperr.CodeOperatorInterrupt, "interrupted by operator"),
			commitErr,
		)
	}
	return apperr.New(apperr.CodeOperatorInterrupt, "interrupted by operator")
}

// askOperator prompts on the terminal for a response to an agent's
// QUESTION, honoring the context's deadline (spec §4.10's 60 s timeout).
func askOperator(ctx context.Context, question string) (string, error) {
	fmt.Printf("\nAgent question: %s\nAnswer (Enter to skip): ", question)

	answers := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		answers <- line
	}()

	select {
	case <-ctx.Done():
		fmt.Println("\n(timed out waiting for a response)")
		return "", ctx.Err()
	case line := <-answers:
		return trimNewline(line), nil
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
