package provider

import (
	"encoding/json"
	"strings"

	"github.com/alexwolson/ralph/internal/event"
)

func init() {
	register("gemini", func() Adapter { return &geminiAdapter{} })
}

// geminiAdapter talks to the Gemini CLI in stream-json mode. Grounded on
// original_source/src/ralph/providers/gemini.py: a flat {type, role,
// content} shape rather than Claude's nested message.content blocks, and
// tool_use/tool_result arrive as separate top-level records instead of
// being paired within one message.
type geminiAdapter struct{}

func (a *geminiAdapter) Name() string        { return "gemini" }
func (a *geminiAdapter) DisplayName() string { return "Gemini" }
func (a *geminiAdapter) Available() bool     { return binaryAvailable("gemini") }

func (a *geminiAdapter) SpawnArgs(workspace string) []string {
	return []string{"gemini", "--output-format", "stream-json"}
}

type geminiLine struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model"`
	ToolName  string `json:"tool_name"`
	Parameters struct {
		FilePath string `json:"file_path"`
		Command  string `json:"command"`
	} `json:"parameters"`
	Status string `json:"status"`
	Output string `json:"output"`
}

func (a *geminiAdapter) Normalize(rawLine string) (event.Event, bool) {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return event.Event{}, false
	}

	var data geminiLine
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return event.Event{}, false
	}

	switch data.Type {
	case "init":
		return event.Event{Kind: event.KindSystemInit}, true

	case "message":
		if data.Role != "assistant" || data.Content == "" {
			return event.Event{}, false
		}
		return event.Event{Kind: event.KindAssistantText, Text: data.Content}, true

	case "tool_use":
		// Emitted on start only — §4.4 requires tool.* on completion, so
		// this line alone does not carry enough information to emit one.
		return event.Event{}, false

	case "tool_result":
		switch data.ToolName {
		case "write_file", "edit_file":
			return event.Event{Kind: event.KindToolWrite, Path: data.Parameters.FilePath, Bytes: len(data.Output)}, true
		case "read_file":
			return event.Event{Kind: event.KindToolRead, Path: data.Parameters.FilePath, Bytes: len(data.Output)}, true
		case "shell":
			exit := 0
			if data.Status != "success" {
				exit = 1
			}
			return event.Event{Kind: event.KindToolShell, Command: data.Parameters.Command, ExitCode: exit, StdoutBytes: len(data.Output)}, true
		default:
			return event.Event{Kind: event.KindUnknown}, true
		}

	case "result":
		return event.Event{Kind: event.KindResult}, true

	default:
		return event.Event{Kind: event.KindUnknown}, true
	}
}
