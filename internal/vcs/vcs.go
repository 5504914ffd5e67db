// Package vcs is the narrow version-control collaborator the core
// consumes (spec §1 lists the version-control wrapper itself as an
// out-of-scope external collaborator; this package is only the thin
// contract surface the driver and state store call through). Grounded
// on original_source/src/ralph/git_utils.py (is_git_repo,
// commit_changes), shelling out to the git binary exactly as the
// original does rather than linking a git library — the teacher has no
// go-git dependency and none of the rest of the pack carries one either.
package vcs

import (
	"context"
	"os/exec"
	"strings"
)

// Git shells out to the git CLI rooted at Workspace.
type Git struct {
	Workspace string
}

func New(workspace string) *Git {
	return &Git{Workspace: workspace}
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-C", g.Workspace}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	return cmd.CombinedOutput()
}

// IsRepo reports whether Workspace is inside a git repository.
func (g *Git) IsRepo(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// CommitAll stages every change in the workspace and commits it with
// message. A commit with nothing staged is not an error — it mirrors
// the original's "ignore if nothing to commit" behavior, since the
// driver calls this unconditionally at checkpoints.
func (g *Git) CommitAll(ctx context.Context, message string) error {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return err
	}
	out, err := g.run(ctx, "commit", "-m", message)
	if err != nil && !strings.Contains(string(out), "nothing to commit") {
		return err
	}
	return nil
}

// CreateBranch checks out branchName, creating it if it does not yet
// exist. Mirrors the original's try-create-then-checkout fallback.
func (g *Git) CreateBranch(ctx context.Context, branchName string) error {
	if _, err := g.run(ctx, "checkout", "-b", branchName); err == nil {
		return nil
	}
	_, err := g.run(ctx, "checkout", branchName)
	return err
}

// PushBranch pushes branchName (or the current branch, if empty) to
// its remote and returns git's error (no remote configured, etc.); the
// driver only logs that error, so pushing is best-effort.
func (g *Git) PushBranch(ctx context.Context, branchName string) error {
	if branchName != "" {
		_, err := g.run(ctx, "push", "-u", "origin", branchName)
		return err
	}
	_, err := g.run(ctx, "push")
	return err
}

// HasUncommittedChanges reports whether the working tree has pending
// changes (used by the operator-interrupt path before the final commit).
func (g *Git) HasUncommittedChanges(ctx context.Context) bool {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}
