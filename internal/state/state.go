// Package state implements the state store of spec §4.9: the .ralph
// directory holding progress/activity/errors logs, guardrails, the
// ephemeral question/answer files, and the completed-task archive.
// Grounded on original_source/src/ralph/state.py (init_ralph_dir,
// log_progress/log_error/log_activity, get/set_iteration) and
// original_source/src/ralph/archive.py (archive_completed_task,
// _archive_state_files), adapted to the teacher's init()-once-seed-
// if-absent idiom from internal/infrastructure/config/bootstrap.go.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dirName = ".ralph"

const progressHeader = "# Progress Log\n\n> Updated by the agent after significant work.\n\n---\n\n## Session History\n\n"
const guardrailsSeed = `# Ralph Guardrails (Signs)

> Lessons learned from past failures. READ THESE BEFORE ACTING.

## Core Signs

### Sign: Read Before Writing
- **Trigger**: Before modifying any file
- **Instruction**: Always read the existing file first
- **Added after**: Core principle

### Sign: Test After Changes
- **Trigger**: After any code change
- **Instruction**: Run tests to verify nothing broke
- **Added after**: Core principle

### Sign: Commit Checkpoints
- **Trigger**: Before risky changes
- **Instruction**: Commit current working state first
- **Added after**: Core principle

---

## Learned Signs

`
const errorsHeader = "# Error Log\n\n> Failures detected by parser. Use to update guardrails.\n\n"
const activityHeader = "# Activity Log\n\n> Real-time tool call logging from parser.\n\n"

// compressLineThreshold and compressTokenThreshold are the progress-log
// compression triggers (spec §4.9); either crossing it rewrites the file.
const compressLineThreshold = 2000
const compressTokenThreshold = 20000
const compressKeepLines = 500

// Store is a handle on one workspace's .ralph directory.
type Store struct {
	dir  string
	now  func() time.Time
	uuid func() string
}

// New returns a handle for workspace's state directory, without
// touching the filesystem. Call Init to create and seed it.
func New(workspace string) *Store {
	return &Store{
		dir:  filepath.Join(workspace, dirName),
		now:  time.Now,
		uuid: func() string { return uuid.NewString() },
	}
}

// Dir returns the absolute path to the .ralph directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// ProgressPath, ActivityPath, ErrorsPath, GuardrailsPath, QuestionPath,
// AnswerPath return the canonical file paths beneath the state directory.
func (s *Store) ProgressPath() string   { return s.path("progress.md") }
func (s *Store) ActivityPath() string   { return s.path("activity.log") }
func (s *Store) ErrorsPath() string     { return s.path("errors.log") }
func (s *Store) GuardrailsPath() string { return s.path("guardrails.md") }
func (s *Store) QuestionPath() string   { return s.path("question.md") }
func (s *Store) AnswerPath() string     { return s.path("answer.md") }
func (s *Store) iterationPath() string  { return s.path(".iteration") }
func (s *Store) completedDir() string   { return s.path("completed") }

// Init creates the state directory and seeds each canonical file if it
// is not already present; an already-initialized directory is left
// untouched (the bootstrap idiom: init-once, seed-if-absent).
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	seeds := map[string]string{
		s.ProgressPath():   progressHeader,
		s.GuardrailsPath(): guardrailsSeed,
		s.ErrorsPath():     errorsHeader,
		s.ActivityPath():   activityHeader,
	}
	for path, content := range seeds {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("seed %s: %w", filepath.Base(path), err)
			}
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// Iteration returns the persisted iteration counter, or 0 if absent or
// unparsable (matches the original's get_iteration fallback).
func (s *Store) Iteration() int {
	raw, err := os.ReadFile(s.iterationPath())
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0
	}
	return n
}

// SetIteration persists the iteration counter, for crash recovery.
func (s *Store) SetIteration(n int) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.iterationPath(), []byte(strconv.Itoa(n)), 0o644)
}

func (s *Store) appendTimestamped(path, layout, message string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, layout, s.now().Format("15:04:05"), message)
	return err
}

// LogActivity appends a "[HH:MM:SS] message" line to activity.log.
func (s *Store) LogActivity(message string) error {
	return s.appendTimestamped(s.ActivityPath(), "[%s] %s\n", message)
}

// LogError appends a "[HH:MM:SS] message" line to errors.log.
func (s *Store) LogError(message string) error {
	return s.appendTimestamped(s.ErrorsPath(), "[%s] %s\n", message)
}

// LogProgress appends a "### YYYY-MM-DD HH:MM:SS\nmessage\n" entry to
// progress.md, then compresses the file if it has grown past threshold.
func (s *Store) LogProgress(message string) error {
	f, err := os.OpenFile(s.ProgressPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	ts := s.now().Format("2006-01-02 15:04:05")
	_, err = fmt.Fprintf(f, "\n### %s\n%s\n", ts, message)
	f.Close()
	if err != nil {
		return err
	}
	return s.compressProgressIfNeeded()
}

// compressProgressIfNeeded rewrites progress.md once it exceeds
// compressLineThreshold lines or an estimated compressTokenThreshold
// tokens, keeping the header plus the last compressKeepLines lines and
// inserting a marker between them.
func (s *Store) compressProgressIfNeeded() error {
	raw, err := os.ReadFile(s.ProgressPath())
	if err != nil {
		return err
	}
	content := string(raw)
	lines := strings.Split(content, "\n")
	estimatedTokens := len(content) / 4
	if len(lines) <= compressLineThreshold && estimatedTokens <= compressTokenThreshold {
		return nil
	}

	headerEnd := len(progressHeader)
	if idx := strings.Index(content, "## Session History"); idx >= 0 {
		if nl := strings.Index(content[idx:], "\n\n"); nl >= 0 {
			headerEnd = idx + nl + 2
		}
	}
	header := content[:headerEnd]

	keepFrom := len(lines) - compressKeepLines
	if keepFrom < 0 {
		keepFrom = 0
	}
	tail := strings.Join(lines[keepFrom:], "\n")

	marker := fmt.Sprintf("\n_[compressed %d earlier lines at %s]_\n\n", keepFrom, s.now().Format("2006-01-02 15:04:05"))
	rewritten := header + marker + tail
	return os.WriteFile(s.ProgressPath(), []byte(rewritten), 0o644)
}

// AskQuestion writes text to the ephemeral question file.
func (s *Store) AskQuestion(text string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.QuestionPath(), []byte(text), 0o644)
}

// WriteAnswer writes the operator's (possibly empty) response to the
// ephemeral answer file and removes the question file.
func (s *Store) WriteAnswer(text string) error {
	if err := os.WriteFile(s.AnswerPath(), []byte(text), 0o644); err != nil {
		return err
	}
	if err := os.Remove(s.QuestionPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadAnswer reads and removes the answer file, returning "" if absent.
func (s *Store) ReadAnswer() (string, error) {
	raw, err := os.ReadFile(s.AnswerPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	_ = os.Remove(s.AnswerPath())
	return string(raw), nil
}

// ArchiveCompleted moves taskFilePath into completed/RALPH_TASK_<ts>.md,
// copies progress/activity/errors into completed/<base>_<ts>.<ext> and
// resets them to their canonical headers, and returns the task archive
// path. guardrails.md is left untouched (it carries cross-task lessons).
// A second archive within the same wall-clock second disambiguates its
// timestamp suffix with a short uuid fragment rather than colliding.
func (s *Store) ArchiveCompleted(taskFilePath string) (string, error) {
	if _, err := os.Stat(taskFilePath); os.IsNotExist(err) {
		return "", nil
	}

	if err := os.MkdirAll(s.completedDir(), 0o755); err != nil {
		return "", err
	}

	ts := s.now().Format("20060102_150405")
	archivePath := filepath.Join(s.completedDir(), fmt.Sprintf("RALPH_TASK_%s.md", ts))
	if _, err := os.Stat(archivePath); err == nil {
		ts = ts + "_" + s.uuid()[:8]
		archivePath = filepath.Join(s.completedDir(), fmt.Sprintf("RALPH_TASK_%s.md", ts))
	}

	if err := os.Rename(taskFilePath, archivePath); err != nil {
		return "", fmt.Errorf("archive task file: %w", err)
	}

	stateFiles := map[string]struct{ seed string }{
		"progress.md":  {progressHeader},
		"activity.log": {activityHeader},
		"errors.log":   {errorsHeader},
	}
	for name, seed := range stateFiles {
		src := s.path(name)
		raw, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return archivePath, fmt.Errorf("read %s: %w", name, err)
		}
		base, ext, _ := strings.Cut(name, ".")
		archived := filepath.Join(s.completedDir(), fmt.Sprintf("%s_%s.%s", base, ts, ext))
		if err := os.WriteFile(archived, raw, 0o644); err != nil {
			return archivePath, fmt.Errorf("copy %s: %w", name, err)
		}
		if err := os.WriteFile(src, []byte(seed.seed), 0o644); err != nil {
			return archivePath, fmt.Errorf("reset %s: %w", name, err)
		}
	}

	return archivePath, nil
}
