package provider

import (
	"encoding/json"
	"strings"

	"github.com/alexwolson/ralph/internal/event"
)

func init() {
	register("cursor", func() Adapter { return &cursorAdapter{} })
}

// cursorAdapter talks to the cursor-agent CLI. Grounded on
// original_source/src/ralph/providers/cursor.py — cursor-agent's
// stream-json is the reference shape the other adapters normalize
// toward, so this adapter is closest to a pass-through.
type cursorAdapter struct{}

func (a *cursorAdapter) Name() string        { return "cursor" }
func (a *cursorAdapter) DisplayName() string { return "Cursor Agent" }
func (a *cursorAdapter) Available() bool     { return binaryAvailable("cursor-agent") }

func (a *cursorAdapter) SpawnArgs(workspace string) []string {
	return []string{"cursor-agent", "-p", "--force", "--output-format", "stream-json", "--directory", workspace}
}

type cursorToolCall struct {
	Tool string `json:"tool"`
	Args struct {
		Path    string `json:"path"`
		Command string `json:"command"`
	} `json:"args"`
	Result struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
	} `json:"result"`
}

type cursorLine struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	ToolCall cursorToolCall `json:"tool_call"`
}

func (a *cursorAdapter) Normalize(rawLine string) (event.Event, bool) {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return event.Event{}, false
	}

	var data cursorLine
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return event.Event{}, false
	}

	switch data.Type {
	case "system":
		if data.Subtype == "init" {
			return event.Event{Kind: event.KindSystemInit}, true
		}
		return event.Event{}, false

	case "assistant":
		if data.Message.Content == "" {
			return event.Event{}, false
		}
		return event.Event{Kind: event.KindAssistantText, Text: data.Message.Content}, true

	case "tool_call":
		if data.Subtype != "completed" {
			return event.Event{}, false
		}
		tc := data.ToolCall
		exit := 0
		if !tc.Result.Success {
			exit = 1
		}
		switch tc.Tool {
		case "write", "edit":
			return event.Event{Kind: event.KindToolWrite, Path: tc.Args.Path, Bytes: len(tc.Result.Output)}, true
		case "read":
			return event.Event{Kind: event.KindToolRead, Path: tc.Args.Path, Bytes: len(tc.Result.Output)}, true
		case "shell", "bash":
			return event.Event{Kind: event.KindToolShell, Command: tc.Args.Command, ExitCode: exit, StdoutBytes: len(tc.Result.Output)}, true
		default:
			return event.Event{Kind: event.KindUnknown}, true
		}

	case "result":
		return event.Event{Kind: event.KindResult}, true

	default:
		return event.Event{Kind: event.KindUnknown}, true
	}
}
