package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/lucasnoah/issuepilot/internal/run"
)

// scriptRunner plays back canned stdout lines and a final error.
type scriptRunner struct {
	lines []string
	err   error
	spec  CommandSpec
}

func (r *scriptRunner) Run(ctx context.Context, spec CommandSpec) error {
	r.spec = spec
	for _, line := range r.lines {
		fmt.Fprintln(spec.Stdout, line)
	}
	return r.err
}

func newTestBridge(t *testing.T, runner CommandRunner) (*Bridge, *run.Store) {
	t.Helper()
	store := run.NewStore(t.TempDir())
	if _, err := store.Create("a1b2c3d4", 42, "t", "classify"); err != nil {
		t.Fatal(err)
	}
	b := NewBridge("claude", map[string]string{
		"fast":    "claude-3-5-haiku-latest",
		"capable": "claude-sonnet-4-5",
	}, "", 0, store)
	b.SetRunner(runner)
	return b, store
}

const resultLine = `{"type":"result","subtype":"success","is_error":false,"result":"bug","session_id":"sess-1","total_cost_usd":0.042,"duration_ms":8123}`

func TestInvoke_HappyPath(t *testing.T) {
	runner := &scriptRunner{lines: []string{
		`{"type":"system","subtype":"init","session_id":"sess-1"}`,
		`{"type":"assistant","message":{"content":"thinking"}}`,
		resultLine,
	}}
	b, store := newTestBridge(t, runner)

	res, err := b.Invoke(context.Background(), InvokeOpts{
		RunID:  "a1b2c3d4",
		Stage:  "classify",
		Prompt: "Classify this issue",
		Model:  "fast",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Success {
		t.Error("expected success")
	}
	if res.Output != "bug" || res.SessionID != "sess-1" {
		t.Errorf("result = %+v", res)
	}
	if res.CostUSD != 0.042 || res.DurationMS != 8123 {
		t.Errorf("cost/duration = %v/%v", res.CostUSD, res.DurationMS)
	}

	// Model tier resolved to a concrete identifier.
	joined := strings.Join(runner.spec.Args, " ")
	if !strings.Contains(joined, "--model claude-3-5-haiku-latest") {
		t.Errorf("model not resolved: %v", runner.spec.Args)
	}
	if !strings.Contains(joined, "--output-format stream-json") {
		t.Errorf("missing stream-json flag: %v", runner.spec.Args)
	}
	if !strings.Contains(joined, "--dangerously-skip-permissions") {
		t.Errorf("missing permission-bypass flag: %v", runner.spec.Args)
	}

	// Raw transcript written verbatim, one line per record.
	data, err := os.ReadFile(store.TranscriptPath("a1b2c3d4", "classify"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("transcript lines = %d, want 3", len(lines))
	}

	// Readable file is a JSON array of the decoded records.
	readable, err := os.ReadFile(store.ReadablePath("a1b2c3d4", "classify"))
	if err != nil {
		t.Fatal(err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(readable, &records); err != nil {
		t.Fatalf("readable file not a JSON array: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("readable records = %d, want 3", len(records))
	}
}

func TestInvoke_PromptLogWrittenBeforeSpawn(t *testing.T) {
	runner := &scriptRunner{lines: []string{resultLine}}
	b, store := newTestBridge(t, runner)

	_, err := b.Invoke(context.Background(), InvokeOpts{
		RunID:    "a1b2c3d4",
		Stage:    "classify",
		Prompt:   "Classify this issue",
		Template: "classify.md",
		Args:     []string{"42"},
		Model:    "fast",
	})
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := store.GetPrompt("a1b2c3d4", "classify")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "template: classify.md") || !strings.Contains(prompt, "Classify this issue") {
		t.Errorf("prompt log = %q", prompt)
	}
}

func TestInvoke_MalformedLineIsWarningNotFatal(t *testing.T) {
	runner := &scriptRunner{lines: []string{
		`{"type":"system","subtype":"init"}`,
		`this is not json at all`,
		resultLine,
	}}
	b, _ := newTestBridge(t, runner)

	res, err := b.Invoke(context.Background(), InvokeOpts{
		RunID: "a1b2c3d4", Stage: "classify", Prompt: "p", Model: "fast",
	})
	if err != nil {
		t.Fatalf("malformed line must not abort the stream: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want 1", res.Warnings)
	}
	if !res.Success {
		t.Error("expected success despite malformed line")
	}
}

func TestInvoke_IncompleteStream(t *testing.T) {
	runner := &scriptRunner{lines: []string{
		`{"type":"system","subtype":"init"}`,
		`{"type":"assistant","message":{}}`,
	}}
	b, _ := newTestBridge(t, runner)

	_, err := b.Invoke(context.Background(), InvokeOpts{
		RunID: "a1b2c3d4", Stage: "classify", Prompt: "p", Model: "fast",
	})
	var berr *BridgeError
	if !asBridgeError(err, &berr) || berr.Kind != Incomplete {
		t.Fatalf("expected Incomplete, got %v", err)
	}
}

func TestInvoke_ProcessFailed(t *testing.T) {
	runner := &scriptRunner{
		lines: []string{`{"type":"system","subtype":"init"}`},
		err:   fmt.Errorf("exit status 1"),
	}
	b, _ := newTestBridge(t, runner)

	_, err := b.Invoke(context.Background(), InvokeOpts{
		RunID: "a1b2c3d4", Stage: "classify", Prompt: "p", Model: "fast",
	})
	var berr *BridgeError
	if !asBridgeError(err, &berr) || berr.Kind != ProcessFailed {
		t.Fatalf("expected ProcessFailed, got %v", err)
	}
}

func TestInvoke_MissingCredential(t *testing.T) {
	store := run.NewStore(t.TempDir())
	b := NewBridge("claude", nil, "PILOT_TEST_CREDENTIAL_UNSET", 0, store)
	b.SetRunner(&scriptRunner{})

	_, err := b.Invoke(context.Background(), InvokeOpts{
		RunID: "a1b2c3d4", Stage: "classify", Prompt: "p", Model: "fast",
	})
	var berr *BridgeError
	if !asBridgeError(err, &berr) || berr.Kind != MissingCredential {
		t.Fatalf("expected MissingCredential, got %v", err)
	}
}

func TestInvoke_EmptyPrompt(t *testing.T) {
	b, _ := newTestBridge(t, &scriptRunner{})
	if _, err := b.Invoke(context.Background(), InvokeOpts{RunID: "a1b2c3d4", Stage: "classify"}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestInvoke_UnknownTierPassesThrough(t *testing.T) {
	runner := &scriptRunner{lines: []string{resultLine}}
	b, _ := newTestBridge(t, runner)

	_, err := b.Invoke(context.Background(), InvokeOpts{
		RunID: "a1b2c3d4", Stage: "classify", Prompt: "p", Model: "claude-opus-4-6",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(runner.spec.Args, " "), "--model claude-opus-4-6") {
		t.Errorf("args = %v", runner.spec.Args)
	}
}

func TestLineWriter_SplitsAcrossWrites(t *testing.T) {
	var fed []string
	var sink strings.Builder
	w := newLineWriter(&sink, func(line string) { fed = append(fed, line) })

	w.Write([]byte(`{"type":"sys`))
	w.Write([]byte("tem\"}\n{\"type\":\"result\"}"))
	w.Flush()

	if len(fed) != 2 {
		t.Fatalf("fed = %v", fed)
	}
	if fed[0] != `{"type":"system"}` || fed[1] != `{"type":"result"}` {
		t.Errorf("fed = %v", fed)
	}
}

// brokenWriter fails every write, like a transcript file on a full disk.
type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("disk full")
}

func TestLineWriter_ReportsConsumedBytesOnTargetError(t *testing.T) {
	w := newLineWriter(brokenWriter{}, func(string) {})

	input := []byte("abc\ndef\n")
	n, err := w.Write(input)
	if err == nil {
		t.Fatal("expected target error to surface")
	}
	// io.Writer contract: n is the count consumed before the error, never
	// the full length alongside a non-nil error.
	if n >= len(input) {
		t.Errorf("n = %d with err %v, want n < %d", n, err, len(input))
	}
	if n != 3 {
		t.Errorf("n = %d, want 3 (bytes buffered before the failed flush)", n)
	}
}

func asBridgeError(err error, target **BridgeError) bool {
	if err == nil {
		return false
	}
	be, ok := err.(*BridgeError)
	if ok {
		*target = be
	}
	return ok
}
