package provider

import (
	"testing"

	"github.com/alexwolson/ralph/internal/event"
)

func TestCodexNormalize_AgentMessage(t *testing.T) {
	a := &codexAdapter{}
	line := `{"type":"item.completed","item":{"type":"agent_message","text":"working on it"}}`
	ev, ok := a.Normalize(line)
	if !ok || ev.Kind != event.KindAssistantText || ev.Text != "working on it" {
		t.Fatalf("expected assistant text, got %+v ok=%v", ev, ok)
	}
}

func TestCodexNormalize_CommandExecution(t *testing.T) {
	a := &codexAdapter{}
	line := `{"type":"item.completed","item":{"type":"command_execution","command":"make test","exit_code":1,"bytes":42}}`
	ev, ok := a.Normalize(line)
	if !ok || ev.Kind != event.KindToolShell || ev.Command != "make test" || ev.ExitCode != 1 || ev.StdoutBytes != 42 {
		t.Fatalf("expected a failing tool.shell event, got %+v ok=%v", ev, ok)
	}
}

func TestCodexNormalize_TurnStartedIsDropped(t *testing.T) {
	a := &codexAdapter{}
	if _, ok := a.Normalize(`{"type":"turn.started"}`); ok {
		t.Fatal("expected turn.started to carry no event")
	}
}

func TestCodexNormalize_ThreadStartedIsSystemInit(t *testing.T) {
	a := &codexAdapter{}
	ev, ok := a.Normalize(`{"type":"thread.started"}`)
	if !ok || ev.Kind != event.KindSystemInit {
		t.Fatalf("expected system.init, got %+v ok=%v", ev, ok)
	}
}

func TestGeminiNormalize_AssistantMessage(t *testing.T) {
	a := &geminiAdapter{}
	line := `{"type":"message","role":"assistant","content":"hello"}`
	ev, ok := a.Normalize(line)
	if !ok || ev.Kind != event.KindAssistantText || ev.Text != "hello" {
		t.Fatalf("expected assistant text, got %+v ok=%v", ev, ok)
	}
}

func TestGeminiNormalize_NonAssistantMessageDropped(t *testing.T) {
	a := &geminiAdapter{}
	line := `{"type":"message","role":"user","content":"hi"}`
	if _, ok := a.Normalize(line); ok {
		t.Fatal("expected a non-assistant message to be dropped")
	}
}

func TestGeminiNormalize_ToolUseAloneCarriesNoEvent(t *testing.T) {
	a := &geminiAdapter{}
	if _, ok := a.Normalize(`{"type":"tool_use","tool_name":"write_file"}`); ok {
		t.Fatal("expected a bare tool_use start to carry no event")
	}
}

func TestGeminiNormalize_ShellResultClassifiesStatus(t *testing.T) {
	a := &geminiAdapter{}
	line := `{"type":"tool_result","tool_name":"shell","status":"error","output":"fail","parameters":{"command":"go vet"}}`
	ev, ok := a.Normalize(line)
	if !ok || ev.Kind != event.KindToolShell || ev.ExitCode != 1 || ev.Command != "go vet" {
		t.Fatalf("expected a failing tool.shell event for go vet, got %+v ok=%v", ev, ok)
	}
}

func TestCursorNormalize_CompletedWriteToolCall(t *testing.T) {
	a := &cursorAdapter{}
	line := `{"type":"tool_call","subtype":"completed","tool_call":{"tool":"write","args":{"path":"main.go"},"result":{"success":true,"output":"ok"}}}`
	ev, ok := a.Normalize(line)
	if !ok || ev.Kind != event.KindToolWrite || ev.Path != "main.go" {
		t.Fatalf("expected tool.write for main.go, got %+v ok=%v", ev, ok)
	}
}

func TestCursorNormalize_InProgressToolCallIsDropped(t *testing.T) {
	a := &cursorAdapter{}
	line := `{"type":"tool_call","subtype":"started","tool_call":{"tool":"write"}}`
	if _, ok := a.Normalize(line); ok {
		t.Fatal("expected a non-completed tool_call to carry no event")
	}
}

func TestCursorNormalize_FailedShellSetsExitCode(t *testing.T) {
	a := &cursorAdapter{}
	line := `{"type":"tool_call","subtype":"completed","tool_call":{"tool":"bash","args":{"command":"make test"},"result":{"success":false,"output":"FAIL"}}}`
	ev, ok := a.Normalize(line)
	if !ok || ev.Kind != event.KindToolShell || ev.ExitCode != 1 {
		t.Fatalf("expected a failing tool.shell event, got %+v ok=%v", ev, ok)
	}
}
