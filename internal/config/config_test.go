package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func newTestFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.Int("iterations", 20, "")
	fs.String("branch", "", "")
	fs.Bool("pr", false, "")
	fs.Bool("once", false, "")
	fs.Int("warn-threshold", 72_000, "")
	fs.Int("rotate-threshold", 80_000, "")
	fs.Int("timeout", 300, "")
	fs.String("instruction", "", "")
	fs.Int("cooldown", 2, "")
	return fs
}

func TestLoad_DefaultsFromFlags(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := Load(newTestFlagSet(), workspace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Iterations != 20 || cfg.TimeoutSeconds != 300 || cfg.Cooldown != 2 {
		t.Fatalf("expected flag defaults to flow through, got %+v", cfg)
	}
	if cfg.Workspace != workspace {
		t.Fatalf("expected workspace %q, got %q", workspace, cfg.Workspace)
	}
}

func TestLoad_ExplicitFlagWins(t *testing.T) {
	workspace := t.TempDir()
	fs := newTestFlagSet()
	if err := fs.Set("iterations", "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := Load(fs, workspace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Iterations != 7 {
		t.Fatalf("expected explicit flag value 7, got %d", cfg.Iterations)
	}
}

func TestLoad_ProjectFileSuppliesDefaults(t *testing.T) {
	workspace := t.TempDir()
	yaml := "iterations: 11\nwarn-threshold: 5000\n"
	if err := os.WriteFile(filepath.Join(workspace, ".ralph.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(newTestFlagSet(), workspace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Iterations != 11 {
		t.Fatalf("expected .ralph.yaml to supply iterations=11, got %d", cfg.Iterations)
	}
	if cfg.WarnThreshold != 5000 {
		t.Fatalf("expected .ralph.yaml to supply warn-threshold=5000, got %d", cfg.WarnThreshold)
	}
}

func TestLoad_EnvOverridesProviderOrder(t *testing.T) {
	workspace := t.TempDir()
	t.Setenv("RALPH_PROVIDER_ORDER", "gemini,claude")

	cfg, err := Load(newTestFlagSet(), workspace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"gemini", "claude"}
	if len(cfg.ProviderOrder) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.ProviderOrder)
	}
	for i := range want {
		if cfg.ProviderOrder[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.ProviderOrder)
		}
	}
}

func TestLoad_PRWithoutBranchIsRejected(t *testing.T) {
	workspace := t.TempDir()
	fs := newTestFlagSet()
	if err := fs.Set("pr", "true"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Load(fs, workspace); err == nil {
		t.Fatal("expected --pr without --branch to be rejected")
	}
}
