// Package prompt builds the two standing prompt templates of spec
// §4.8: the iteration prompt and the verification prompt. Grounded on
// original_source/src/ralph/prompts.py (build_prompt,
// build_verification_prompt), reworded into the teacher's terser
// register rather than translated line for line.
package prompt

import (
	"fmt"
	"strings"
)

const defaultTestCommand = "make test"

// Iteration builds the standing instruction block for iteration n. If
// extra is non-empty, it is appended as an operator-supplied steer
// (the --instruction flag of spec §6) after the closing line.
func Iteration(n int, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ralph Iteration %d\n\n", n)
	b.WriteString(`You are an autonomous development agent working against a task
specification file and a small amount of on-disk state.

## First: read state before acting

1. Read the task specification file for your task and completion criteria.
2. Read .ralph/guardrails.md for lessons from past failures. Follow them.
3. Read .ralph/progress.md for what has already been accomplished.
4. Read .ralph/errors.log for recent failures to avoid repeating.

## Working directory

You are already inside the target repository. Work here, not in a
freshly scaffolded subdirectory:

- Do not run version-control init commands; the repository already exists.
- Do not run scaffolding commands that create a nested project directory.
  If you must scaffold, point it at the current directory.

## Commit protocol

State lives in version control, not in your own memory across turns.
Commit early and often:

1. After completing each criterion, commit with a message describing
   what you actually did. Never use a placeholder description.
2. After any significant change, even partial, commit.
3. Before a risky refactor, commit the current state as a checkpoint.
4. After committing, emit `)
	b.WriteString("`<ralph>ROTATE</ralph>`")
	b.WriteString(` to request a fresh context for the next
   agent. The next agent resumes from your last commit.

## Task execution

1. Work on the next unchecked criterion (look for an unchecked box).
2. Run the declared test command after changes.
3. Mark a criterion done by checking its box once it is genuinely
   satisfied — this is the only record of progress, so it must be kept
   current.
4. Record what you accomplished in .ralph/progress.md.
5. When every criterion is checked, emit `)
	b.WriteString("`<ralph>COMPLETE</ralph>`")
	b.WriteString(`.
6. If you are stuck on the same issue three or more times, emit `)
	b.WriteString("`<ralph>GUTTER</ralph>`")
	b.WriteString(`.

## Learning from failures

When something fails, check .ralph/errors.log for history, find the
root cause, and add an entry to .ralph/guardrails.md naming the
trigger, the instruction to follow instead, and the iteration it was
added after (`)
	fmt.Fprintf(&b, "iteration %d", n)
	b.WriteString(`).

## Asking questions (sparingly)

If you are genuinely stuck and operator input would materially change
your approach: write the question to .ralph/question.md, emit `)
	b.WriteString("`<ralph>QUESTION</ralph>`")
	b.WriteString(`, and
read .ralph/answer.md on your next turn. The operator may not respond
within the timeout, in which case the answer file will be empty —
proceed with your best judgment. Use this rarely; most tasks need no
clarification.

## Budget warning

If you are warned that the context budget is running low: finish the
file edit in progress, commit and push, record what is accomplished
and what remains in .ralph/progress.md, and expect to be rotated to a
fresh agent that continues from your commit.

Begin by reading the state files.
`)
	if extra != "" {
		b.WriteString("\n## Operator instruction\n\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}

// Verification builds the independent-reviewer briefing for
// verification iteration n. testCommand is the task's declared
// test_command, or "" to fall back to the default.
func Verification(n int, testCommand string) string {
	if testCommand == "" {
		testCommand = defaultTestCommand
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Ralph Verification Phase - Iteration %d\n\n", n)
	b.WriteString(`You are an independent verification agent. A previous agent claimed
the task is complete. Your job is to verify whether that is true.

## Your role

You are not the agent who did the work. You are an independent
reviewer who will:

1. Run the test suite and confirm it passes.
2. Review the changes for quality and completeness.
3. Check that every requirement in the task specification is actually met.
4. Render a final verdict: pass or fail.

## Verification steps

1. Run the test command: `)
	fmt.Fprintf(&b, "`%s`", testCommand)
	b.WriteString(`
2. Review the modified files: code quality is acceptable, no obvious
   bugs, changes match what was required.
3. Go through every success criterion in the task specification and
   confirm it is implemented, works correctly, and handles the edge
   cases it claims to.

## Your verdict

If every requirement is met and tests pass, emit `)
	b.WriteString("`<ralph>VERIFY_PASS</ralph>`")
	b.WriteString(`.

If any requirement is not met, tests fail, or there is a quality
issue serious enough to block completion:

1. Edit the task specification to uncheck the incomplete criteria.
2. Optionally add criteria you discovered were missing.
3. Write a brief explanation of what failed to .ralph/progress.md.
4. Emit `)
	b.WriteString("`<ralph>VERIFY_FAIL</ralph>`")
	b.WriteString(`.

Be thorough but fair. Do not fail the task for minor style issues;
focus on functional correctness. If anything is genuinely incomplete
or broken, fail it and be specific about why in the progress log.

Begin by reading the task specification and running the test command.
`)
	return b.String()
}
