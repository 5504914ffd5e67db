package provider

import (
	"encoding/json"
	"strings"

	"github.com/alexwolson/ralph/internal/event"
)

func init() {
	register("claude", func() Adapter { return &claudeAdapter{pending: map[string]pendingTool{}} })
}

// pendingTool remembers what a tool_use block asked for until its
// matching tool_result arrives.
type pendingTool struct {
	name string
	path string
}

// claudeAdapter talks to the Claude Code CLI in headless stream-json
// mode. Grounded on original_source/src/ralph/providers/claude.py: the
// CLI emits one JSON object per line with top-level "type" in
// {system, assistant, user, result, thinking}; tool calls appear nested
// inside assistant message content as "tool_use" blocks, and their
// outcome arrives in a later "user" message as a paired "tool_result"
// block — exactly the split §4.4 requires (emit tool.* only on
// completion). pending tracks tool_use id -> tool name/path across lines
// of a single iteration so the tool_result line can be classified.
type claudeAdapter struct {
	pending map[string]pendingTool
}

func (a *claudeAdapter) Name() string        { return "claude" }
func (a *claudeAdapter) DisplayName() string { return "Claude Code" }
func (a *claudeAdapter) Available() bool     { return binaryAvailable("claude") }

func (a *claudeAdapter) SpawnArgs(workspace string) []string {
	return []string{"claude", "-p", "--output-format", "stream-json", "--verbose"}
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`

	// tool_result fields (appear on a "user" message content block)
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

type claudeMessage struct {
	Role    string               `json:"role"`
	Content []claudeContentBlock `json:"content"`
}

type claudeLine struct {
	Type    string        `json:"type"`
	Subtype string        `json:"subtype"`
	Message claudeMessage `json:"message"`
}

func (a *claudeAdapter) Normalize(rawLine string) (event.Event, bool) {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return event.Event{}, false
	}

	var data claudeLine
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
		var textBuilder strings.Builder
		for _, block := range data.Message.Content {
			switch block.Type {
			case "text":
				textBuilder.WriteString(block.Text)
			case "tool_use":
				var input struct {
					FilePath string `json:"file_path"`
					Command  string `json:"command"`
				}
				_ = json.Unmarshal(block.Input, &input)
				path := input.FilePath
				if path == "" {
					path = input.Command
				}
				a.pending[block.ID] = pendingTool{name: block.Name, path: path}
			}
		}
		if textBuilder.Len() == 0 {
			return event.Event{}, false
		}
		return event.Event{Kind: event.KindAssistantText, Text: textBuilder.String()}, true

	case "user":
		for _, block := range data.Message.Content {
			if block.Type != "tool_result" {
				continue
			}
			tool, known := a.pending[block.ToolUseID]
			delete(a.pending, block.ToolUseID)
			if !known {
				return event.Event{}, false
			}
			contentBytes := len(block.Content)
			exitCode := 0
			if block.IsError {
				exitCode = 1
			}
			switch tool.name {
			case "Write", "Edit":
				return event.Event{Kind: event.KindToolWrite, Path: tool.path, Bytes: contentBytes}, true
			case "Read":
				return event.Event{Kind: event.KindToolRead, Path: tool.path, Bytes: contentBytes}, true
			case "Bash":
				return event.Event{Kind: event.KindToolShell, Command: tool.path, ExitCode: exitCode, StdoutBytes: contentBytes}, true
			}
		}
		return event.Event{}, false

	case "result":
		return event.Event{Kind: event.KindResult}, true

	default:
		return event.Event{Kind: event.KindUnknown}, true
	}
}
