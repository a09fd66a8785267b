package cli

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"run", "poll", "webhook", "status", "health", "db", "templates", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestRunCommand_RequiresIssueArg(t *testing.T) {
	if _, err := executeCommand("run"); err == nil {
		t.Error("run without an issue number should fail")
	}
}

func TestRunCommand_RejectsBadIssueNumber(t *testing.T) {
	if _, err := executeCommand("run", "not-a-number"); err == nil {
		t.Error("run with a non-numeric issue should fail")
	}
}

func TestRunCommand_RejectsBadRunID(t *testing.T) {
	if _, err := executeCommand("run", "42", "--run-id", "NOPE"); err == nil {
		t.Error("run with a malformed run identity should fail")
	}
}

func TestDBSubcommands(t *testing.T) {
	for _, sub := range []string{"migrate", "reset"} {
		out, err := executeCommand("db", sub, "--help")
		if err != nil {
			t.Errorf("db %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("db %s --help produced no output", sub)
		}
	}
}
