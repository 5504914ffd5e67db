// Package config layers the operator command surface of spec §6 (cobra
// flags on the run command) over an optional .ralph.yaml project file
// and a handful of environment overrides, using the teacher's
// viper-backed config struct pattern from
// internal/infrastructure/config/config.go, adapted from a server's
// many-section config to ralph's single RunConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds every tunable of the run command (spec §6).
type RunConfig struct {
	Workspace       string
	Iterations      int
	Branch          string
	OpenPR          bool
	Once            bool
	WarnThreshold   int
	RotateThreshold int
	TimeoutSeconds  int
	Instruction     string
	Cooldown        int

	// ProviderOrder, if non-empty, overrides the registration order the
	// provider ring is built in (RALPH_PROVIDER_ORDER).
	ProviderOrder []string
}

// Load builds a RunConfig from cobra flags already bound into fs,
// layering in an optional .ralph.yaml in workspace and the
// RALPH_WORKSPACE / RALPH_PROVIDER_ORDER environment overrides.
// Flags explicitly set by the operator always win over the file and
// the environment, matching viper's precedence order.
func Load(fs *pflag.FlagSet, workspace string) (RunConfig, error) {
	v := viper.New()
	v.SetConfigName(".ralph")
	v.SetConfigType("yaml")
	v.AddConfigPath(workspace)

	if err := v.BindPFlags(fs); err != nil {
		return RunConfig{}, fmt.Errorf("bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return RunConfig{}, fmt.Errorf("read .ralph.yaml: %w", err)
		}
	}

	_ = v.BindEnv("workspace", "RALPH_WORKSPACE")
	_ = v.BindEnv("provider_order", "RALPH_PROVIDER_ORDER")

	cfg := RunConfig{
		Workspace:       workspace,
		Iterations:      v.GetInt("iterations"),
		Branch:          v.GetString("branch"),
		OpenPR:          v.GetBool("pr"),
		Once:            v.GetBool("once"),
		WarnThreshold:   v.GetInt("warn-threshold"),
		RotateThreshold: v.GetInt("rotate-threshold"),
		TimeoutSeconds:  v.GetInt("timeout"),
		Instruction:     v.GetString("instruction"),
		Cooldown:        v.GetInt("cooldown"),
	}

	if w := v.GetString("workspace"); w != "" && !fs.Changed("workspace") {
		cfg.Workspace = w
	}
	if order := v.GetString("provider_order"); order != "" {
		cfg.ProviderOrder = strings.Split(order, ",")
	}

	if cfg.OpenPR && cfg.Branch == "" {
		return RunConfig{}, fmt.Errorf("--pr requires --branch")
	}

	return cfg, nil
}
