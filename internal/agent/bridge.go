// Package agent bridges the orchestrator to the external reasoning agent,
// spawned as a subprocess in non-interactive, permission-bypassing mode.
// Autonomous execution is a deliberate trust decision: run this only in
// environments you control.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasnoah/issuepilot/internal/run"
)

// CommandSpec describes one subprocess invocation.
type CommandSpec struct {
	Binary string
	Args   []string
	Env    []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// CommandRunner executes a subprocess to completion. Interface for testing.
type CommandRunner interface {
	Run(ctx context.Context, spec CommandSpec) error
}

type commandRunnerFunc func(ctx context.Context, spec CommandSpec) error

func (fn commandRunnerFunc) Run(ctx context.Context, spec CommandSpec) error {
	return fn(ctx, spec)
}

func runCommand(ctx context.Context, spec CommandSpec) error {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	return cmd.Run()
}

// Result is the typed outcome of one agent invocation, built when the
// subprocess terminates and its terminal record is parsed. Immutable after.
type Result struct {
	Success    bool
	Output     string
	SessionID  string
	CostUSD    float64
	DurationMS int64
	Transcript string // path to the raw line-delimited JSON transcript
	Warnings   []string
}

// InvokeOpts configures one invocation.
type InvokeOpts struct {
	RunID    string
	Stage    string
	Prompt   string   // fully rendered prompt text
	Template string   // template name, recorded for the audit trail
	Args     []string // resolved template arguments, recorded likewise
	Model    string   // tier name: "fast" or "capable"
	Dir      string   // working directory for the subprocess
}

// Bridge spawns the agent subprocess and parses its streamed output.
type Bridge struct {
	binary      string
	models      map[string]string // tier -> model identifier
	requiredEnv string
	timeout     time.Duration // 0 = no ceiling
	store       *run.Store
	runner      CommandRunner
}

// NewBridge creates a Bridge writing transcripts and prompt logs to store.
func NewBridge(binary string, models map[string]string, requiredEnv string, timeout time.Duration, store *run.Store) *Bridge {
	return &Bridge{
		binary:      binary,
		models:      models,
		requiredEnv: requiredEnv,
		timeout:     timeout,
		store:       store,
		runner:      commandRunnerFunc(runCommand),
	}
}

// SetRunner overrides the subprocess runner (for testing).
func (b *Bridge) SetRunner(r CommandRunner) {
	b.runner = r
}

// resolveModel maps a tier name to a concrete model identifier. Unknown
// tiers pass through so operators can name models directly.
func (b *Bridge) resolveModel(tier string) string {
	if m, ok := b.models[tier]; ok && m != "" {
		return m
	}
	return tier
}

// Invoke spawns the agent subprocess for one stage, streams its output into
// the audit store, and returns the parsed result. It blocks for the
// subprocess's full lifetime; an operator-supplied timeout is the only ceiling.
func (b *Bridge) Invoke(ctx context.Context, opts InvokeOpts) (*Result, error) {
	if strings.TrimSpace(opts.Prompt) == "" {
		return nil, errors.New("empty prompt")
	}
	if b.requiredEnv != "" && os.Getenv(b.requiredEnv) == "" {
		return nil, &BridgeError{Kind: MissingCredential, Detail: b.requiredEnv}
	}

	// Log the exact prompt before spawning so failures replay exactly.
	promptLog := opts.Prompt
	if opts.Template != "" {
		promptLog = fmt.Sprintf("template: %s\nargs: %s\n---\n%s",
			opts.Template, strings.Join(opts.Args, " "), opts.Prompt)
	}
	if err := b.store.SavePrompt(opts.RunID, opts.Stage, promptLog); err != nil {
		return nil, fmt.Errorf("save prompt log: %w", err)
	}

	transcriptPath := b.store.TranscriptPath(opts.RunID, opts.Stage)
	if err := os.MkdirAll(filepath.Dir(transcriptPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir stage dir: %w", err)
	}
	transcript, err := os.Create(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	defer transcript.Close()

	parser := &streamParser{}
	stdout := newLineWriter(transcript, parser.Feed)
	var stderr bytes.Buffer

	model := b.resolveModel(opts.Model)
	args := []string{
		"-p", opts.Prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
		"--model", model,
	}

	runCtx := ctx
	cancel := func() {}
	if b.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, b.timeout)
	}
	defer cancel()

	runErr := b.runner.Run(runCtx, CommandSpec{
		Binary: b.binary,
		Args:   args,
		Dir:    opts.Dir,
		Stdout: stdout,
		Stderr: &stderr,
	})
	stdout.Flush()

	// The readable file is best-effort; the raw transcript is the record.
	_ = run.WriteJSON(b.store.ReadablePath(opts.RunID, opts.Stage), parser.records)

	if runErr != nil {
		return nil, &BridgeError{
			Kind:     ProcessFailed,
			ExitCode: exitCode(runErr),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	if parser.result == nil {
		return nil, &BridgeError{Kind: Incomplete}
	}

	res := parser.result
	return &Result{
		Success:    !res.IsError && res.Subtype == "success",
		Output:     res.Result,
		SessionID:  res.SessionID,
		CostUSD:    res.TotalCostUSD,
		DurationMS: res.DurationMS,
		Transcript: transcriptPath,
		Warnings:   parser.warnings,
	}, nil
}

// exitCode extracts the process exit code from a run error, -1 if unknown.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
