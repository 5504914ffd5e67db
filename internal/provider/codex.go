package provider

import (
	"encoding/json"
	"strings"

	"github.com/alexwolson/ralph/internal/event"
)

func init() {
	register("codex", func() Adapter { return &codexAdapter{} })
}

// codexAdapter talks to the Codex CLI in JSONL mode. Grounded on
// original_source/src/ralph/providers/codex.py: the CLI emits
// thread.started / turn.started / item.completed / turn.completed
// records rather than Claude's system/assistant/user shape.
type codexAdapter struct{}

func (a *codexAdapter) Name() string        { return "codex" }
func (a *codexAdapter) DisplayName() string { return "Codex" }
func (a *codexAdapter) Available() bool     { return binaryAvailable("codex") }

func (a *codexAdapter) SpawnArgs(workspace string) []string {
	return []string{"codex", "exec", "--json"}
}

type codexItem struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Command string `json:"command"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	ExitCode *int  `json:"exit_code"`
}

type codexLine struct {
	Type string    `json:"type"`
	Item codexItem `json:"item"`
}

func (a *codexAdapter) Normalize(rawLine string) (event.Event, bool) {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return event.Event{}, false
	}

	var data codexLine
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return event.Event{}, false
	}

	switch data.Type {
	case "thread.started":
		return event.Event{Kind: event.KindSystemInit}, true

	case "turn.started":
		return event.Event{}, false

	case "item.completed":
		switch data.Item.Type {
		case "agent_message":
			if data.Item.Text == "" {
				return event.Event{}, false
			}
			return event.Event{Kind: event.KindAssistantText, Text: data.Item.Text}, true
		case "file_read":
			return event.Event{Kind: event.KindToolRead, Path: data.Item.Path, Bytes: data.Item.Bytes}, true
		case "file_write":
			return event.Event{Kind: event.KindToolWrite, Path: data.Item.Path, Bytes: data.Item.Bytes}, true
		case "command_execution":
			exit := 0
			if data.Item.ExitCode != nil {
				exit = *data.Item.ExitCode
			}
			return event.Event{Kind: event.KindToolShell, Command: data.Item.Command, ExitCode: exit, StdoutBytes: data.Item.Bytes}, true
		default:
			return event.Event{Kind: event.KindUnknown}, true
		}

	case "turn.completed":
		return event.Event{Kind: event.KindResult}, true

	default:
		return event.Event{Kind: event.KindUnknown}, true
	}
}
