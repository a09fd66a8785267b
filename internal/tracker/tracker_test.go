package tracker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type mockCmd struct {
	calls   [][]string
	results []mockResult
	idx     int
}

type mockResult struct {
	Output string
	Err    error
}

func (m *mockCmd) Run(args ...string) (string, error) {
	m.calls = append(m.calls, args)
	if m.idx >= len(m.results) {
		return "", nil
	}
	r := m.results[m.idx]
	m.idx++
	return r.Output, r.Err
}

func TestFetchIssue_HappyPath(t *testing.T) {
	issueJSON := `{
		"number": 42,
		"title": "Fix login",
		"body": "Sessions expire too fast",
		"state": "OPEN",
		"labels": [{"name": "bug"}],
		"comments": [
			{"id": "IC_2", "body": "second", "createdAt": "2026-02-01T10:00:00Z"},
			{"id": "IC_1", "body": "first", "createdAt": "2026-01-01T10:00:00Z"}
		]
	}`
	cmd := &mockCmd{results: []mockResult{{Output: issueJSON}}}

	client := NewClient(cmd)
	snap, err := client.FetchIssue(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Number != 42 || snap.Title != "Fix login" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Labels) != 1 || snap.Labels[0].Name != "bug" {
		t.Errorf("labels = %v", snap.Labels)
	}
	// Comments must come back ordered by creation time regardless of wire order.
	if len(snap.Comments) != 2 || snap.Comments[0].ID != "IC_1" || snap.Comments[1].ID != "IC_2" {
		t.Errorf("comments not ordered: %v", snap.Comments)
	}

	call := cmd.calls[0]
	if call[0] != "issue" || call[1] != "view" || call[2] != "42" {
		t.Errorf("unexpected gh args: %v", call)
	}
}

func TestFetchIssue_InvalidNumber(t *testing.T) {
	client := NewClient(&mockCmd{})
	if _, err := client.FetchIssue(0); err == nil {
		t.Fatal("expected error for issue 0")
	}
	if _, err := client.FetchIssue(-3); err == nil {
		t.Fatal("expected error for negative issue")
	}
}

func TestFetchComments_Empty(t *testing.T) {
	cmd := &mockCmd{results: []mockResult{{Output: `{"comments": []}`}}}
	client := NewClient(cmd)
	comments, err := client.FetchComments(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("expected no comments, got %v", comments)
	}
}

func TestPostComment(t *testing.T) {
	cmd := &mockCmd{results: []mockResult{{Output: ""}}}
	client := NewClient(cmd)
	if err := client.PostComment(7, "a1b2c3d4_ops: 🏃 Starting"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := cmd.calls[0]
	want := []string{"issue", "comment", "7", "--body", "a1b2c3d4_ops: 🏃 Starting"}
	if len(call) != len(want) {
		t.Fatalf("args = %v, want %v", call, want)
	}
	for i := range want {
		if call[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, call[i], want[i])
		}
	}
}

func TestMarkInProgress(t *testing.T) {
	cmd := &mockCmd{results: []mockResult{{Output: ""}}}
	client := NewClient(cmd)
	if err := client.MarkInProgress(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := cmd.calls[0]
	if call[0] != "issue" || call[1] != "edit" || call[3] != "--add-label" {
		t.Errorf("unexpected gh args: %v", call)
	}
}

func TestListOpenIssues(t *testing.T) {
	cmd := &mockCmd{results: []mockResult{{Output: `[{"number": 1, "title": "a"}, {"number": 2, "title": "b"}]`}}}
	client := NewClient(cmd)
	refs, err := client.ListOpenIssues(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 || refs[0].Number != 1 || refs[1].Number != 2 {
		t.Errorf("refs = %v", refs)
	}
	call := cmd.calls[0]
	if !strings.Contains(strings.Join(call, " "), "--limit 10") {
		t.Errorf("limit not passed: %v", call)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		output string
		kind   ErrorKind
	}{
		{"GraphQL: Could not resolve to an Issue with the number of 999.", NotFound},
		{"issue not found", NotFound},
		{"To get started with GitHub CLI, please run: gh auth login", AuthFailure},
		{"HTTP 401: Bad credentials", AuthFailure},
		{"HTTP 403: API rate limit exceeded", RateLimited},
		{"dial tcp: lookup api.github.com: no such host", TransientNetwork},
		{"request timed out", TransientNetwork},
	}

	for _, tc := range tests {
		cmd := &mockCmd{results: []mockResult{{Output: tc.output, Err: fmt.Errorf("exit status 1")}}}
		client := NewClient(cmd)
		_, err := client.FetchIssue(999)
		if err == nil {
			t.Fatalf("output %q: expected error", tc.output)
		}
		var terr *Error
		if !errors.As(err, &terr) {
			t.Fatalf("output %q: expected *Error, got %T", tc.output, err)
		}
		if terr.Kind != tc.kind {
			t.Errorf("output %q: kind = %v, want %v", tc.output, terr.Kind, tc.kind)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	e := classifyError("fetch issue", "not found", cause)
	if !errors.Is(e, cause) {
		t.Error("expected Unwrap to reach the cause")
	}
}
