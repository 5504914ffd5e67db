// Package task parses and inspects the task specification file (spec
// §2, §4.2): a Markdown document with an optional YAML frontmatter
// block followed by a checklist body. Grounded on
// original_source/src/ralph/task.py (parse_task_file, count_criteria,
// check_completion) and original_source/src/ralph/prompts.py's
// frontmatter regex, reimplemented with gopkg.in/yaml.v3 in place of
// PyYAML.
package task

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds the recognized YAML keys; unrecognized keys are
// preserved in Extra so a future reader can still see them.
type Frontmatter struct {
	Task               string   `yaml:"task"`
	CompletionCriteria []string `yaml:"completion_criteria"`
	MaxIterations      int      `yaml:"max_iterations"`
	TestCommand        string   `yaml:"test_command"`
	Extra              map[string]any `yaml:"-"`
}

// Spec is a parsed task file.
type Spec struct {
	Frontmatter Frontmatter
	Body        string
	Path        string
}

// frontmatterPattern matches a leading "---\n...\n---\n" block exactly
// as original_source/src/ralph/prompts.py does.
var frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n`)

// checkboxPattern matches "- [ ]", "* [x]", "1. [ ]" list items,
// independent of leading indentation (spec §4.2's nested-checkbox
// resolution: every checkbox counts, regardless of nesting depth).
var checkboxPattern = regexp.MustCompile(`^\s*([-*]|[0-9]+\.)\s+\[([ xX])\]`)

// Parse reads and parses path as a task specification file.
func Parse(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	content := string(raw)

	fm := Frontmatter{MaxIterations: 20}
	body := content

	if m := frontmatterPattern.FindStringSubmatch(content); m != nil {
		var parsed struct {
			Task               string   `yaml:"task"`
			CompletionCriteria []string `yaml:"completion_criteria"`
			MaxIterations      *int     `yaml:"max_iterations"`
			TestCommand        string   `yaml:"test_command"`
		}
		if err := yaml.Unmarshal([]byte(m[1]), &parsed); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		fm.Task = parsed.Task
		fm.CompletionCriteria = parsed.CompletionCriteria
		fm.TestCommand = parsed.TestCommand
		if parsed.MaxIterations != nil {
			fm.MaxIterations = *parsed.MaxIterations
		}

		var extra map[string]any
		if err := yaml.Unmarshal([]byte(m[1]), &extra); err == nil {
			for _, known := range []string{"task", "completion_criteria", "max_iterations", "test_command"} {
				delete(extra, known)
			}
			if len(extra) > 0 {
				fm.Extra = extra
			}
		}

		body = content[len(m[0]):]
	}

	return &Spec{Frontmatter: fm, Body: body, Path: path}, nil
}

// CountCriteria scans the full file content (frontmatter included, as
// the original does — checkboxes never appear there in practice) and
// returns (done, total) checkbox counts.
func CountCriteria(path string) (done, total int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read task file: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		total++
		if strings.EqualFold(m[2], "x") {
			done++
		}
	}
	return done, total, nil
}

// CompletionStatus is the string a verifier or prompt template reports
// for the task's current checkbox state.
type CompletionStatus string

// IsComplete reports whether the status represents "all criteria met".
func (c CompletionStatus) IsComplete() bool {
	return c == "COMPLETE"
}

// CheckCompletion mirrors original_source/src/ralph/task.py's
// check_completion: "NO_CRITERIA" when the file has no checkboxes at
// all, "COMPLETE" when every checkbox is checked, otherwise
// "INCOMPLETE:<n>" where n is the number still unchecked.
func CheckCompletion(path string) (CompletionStatus, error) {
	done, total, err := CountCriteria(path)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "NO_CRITERIA", nil
	}
	if done == total {
		return "COMPLETE", nil
	}
	return CompletionStatus("INCOMPLETE:" + strconv.Itoa(total-done)), nil
}
