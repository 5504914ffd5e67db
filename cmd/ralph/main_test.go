package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/alexwolson/ralph/internal/apperr"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "ralph@example.com")
	run("config", "user.name", "ralph")
	return dir
}

func TestDrainOnInterrupt_CommitsUncommittedWork(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "partial.go"), []byte("package x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := drainOnInterrupt(dir, zap.NewNop())
	if !apperr.Is(err, apperr.CodeOperatorInterrupt) {
		t.Fatalf("expected an operator-interrupt error, got %v", err)
	}

	cmd := exec.Command("git", "log", "--oneline")
	cmd.Dir = dir
	out, cerr := cmd.CombinedOutput()
	if cerr != nil {
		t.Fatalf("git log: %v\n%s", cerr, out)
	}
	if len(out) == 0 {
		t.Fatal("expected the interrupt drain to have committed the working tree")
	}
}

func TestDrainOnInterrupt_NoChangesStillReportsInterrupt(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "add", "-A")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "commit", "-m", "seed")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}

	err := drainOnInterrupt(dir, zap.NewNop())
	if !apperr.Is(err, apperr.CodeOperatorInterrupt) {
		t.Fatalf("expected an operator-interrupt error even with nothing to commit, got %v", err)
	}
}
