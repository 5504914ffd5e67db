// Package provider defines the adapter contract external provider CLIs
// must satisfy (spec §4.4) and a name-keyed registry for constructing
// them, mirroring the teacher's RegisterFactory/CreateProvider pattern
// (internal/infrastructure/llm/provider.go) adapted from LLM-request
// routing to subprocess-adapter construction.
package provider

import (
	"os/exec"

	"github.com/alexwolson/ralph/internal/event"
)

// Adapter is the per-provider translator the stream supervisor and
// iteration runner drive. Adapters are plain values; the registry holds
// constructors, not an inheritance hierarchy.
type Adapter interface {
	// Name is the short, stable identifier (e.g. "claude").
	Name() string
	// DisplayName is the human-readable label for logs and prompts.
	DisplayName() string
	// Available reports whether the provider's CLI is discoverable on PATH.
	Available() bool
	// SpawnArgs returns the command vector to invoke the provider CLI in
	// headless, streaming mode against workspace.
	SpawnArgs(workspace string) []string
	// Normalize translates one raw output line into a normalized event,
	// or returns (zero, false) if the line is malformed or irrelevant —
	// callers drop such lines and continue.
	Normalize(rawLine string) (event.Event, bool)
}

// Factory constructs an Adapter. Adapters register themselves via init()
// in their own file, exactly as the teacher's provider sub-packages do.
type Factory func() Adapter

var factories = map[string]Factory{}

// Register adds a named factory to the registry. Called from init() in
// each adapter's file (claude.go, codex.go, gemini.go, cursor.go).
func Register(name string, f Factory) {
	factories[name] = f
}

// RegistrationOrder returns adapter names in the stable order they were
// registered — Go map iteration is random, so each adapter file also
// appends its name to this slice from init().
var RegistrationOrder []string

func register(name string, f Factory) {
	Register(name, f)
	RegistrationOrder = append(RegistrationOrder, name)
}

// All constructs every registered adapter, in registration order.
func All() []Adapter {
	out := make([]Adapter, 0, len(RegistrationOrder))
	for _, name := range RegistrationOrder {
		out = append(out, factories[name]())
	}
	return out
}

// Reorder returns adapters sorted to match the name order given, with
// any adapter whose name is absent from order appended afterward in its
// original relative order. Used to apply an operator-supplied
// RALPH_PROVIDER_ORDER override on top of registration order.
func Reorder(adapters []Adapter, order []string) []Adapter {
	if len(order) == 0 {
		return adapters
	}
	byName := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	out := make([]Adapter, 0, len(adapters))
	seen := make(map[string]bool, len(adapters))
	for _, name := range order {
		if a, ok := byName[name]; ok && !seen[name] {
			out = append(out, a)
			seen[name] = true
		}
	}
	for _, a := range adapters {
		if !seen[a.Name()] {
			out = append(out, a)
			seen[a.Name()] = true
		}
	}
	return out
}

// lookPath is overridable in tests.
var lookPath = exec.LookPath

func binaryAvailable(bin string) bool {
	_, err := lookPath(bin)
	return err == nil
}
