package gitops

import (
	"fmt"
	"strings"
	"testing"
)

type mockGit struct {
	calls   []gitCall
	results []mockResult
	idx     int
}

type gitCall struct {
	Dir  string
	Args []string
}

type mockResult struct {
	Output string
	Err    error
}

func (m *mockGit) Run(dir string, args ...string) (string, error) {
	m.calls = append(m.calls, gitCall{Dir: dir, Args: args})
	if m.idx >= len(m.results) {
		return "", nil
	}
	r := m.results[m.idx]
	m.idx++
	return r.Output, r.Err
}

func assertArgs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("git args = %v, want %v", got, want)
	}
}

func TestValidBranch(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"feature-42-a1b2c3d4-add-retry-logic", true},
		{"bug-7-deadbeef-fix-crash", true},
		{"chore-100-12345678-bump-deps", true},
		{"hotfix-42-a1b2c3d4-nope", false},     // unknown label
		{"feature-42-a1b2c3-short-id", false},  // run id too short
		{"feature-42-a1b2c3d4-Bad_Slug", false},
		{"feature-a1b2c3d4-no-issue", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidBranch(tt.name); got != tt.valid {
			t.Errorf("ValidBranch(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}

func TestEnsureClean(t *testing.T) {
	git := &mockGit{results: []mockResult{{Output: ""}}}
	r := NewRepo(git, "/repo", "main")
	if err := r.EnsureClean(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertArgs(t, git.calls[0].Args, "status", "--porcelain")
}

func TestEnsureClean_DirtyTree(t *testing.T) {
	git := &mockGit{results: []mockResult{{Output: " M internal/foo.go"}}}
	r := NewRepo(git, "/repo", "main")
	err := r.EnsureClean()
	if err == nil || !strings.Contains(err.Error(), "dirty") {
		t.Fatalf("expected dirty-tree error, got %v", err)
	}
}

func TestCheckoutNewBranch(t *testing.T) {
	git := &mockGit{}
	r := NewRepo(git, "/repo", "main")

	if err := r.CheckoutNewBranch("feature-42-a1b2c3d4-add-auth"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(git.calls) != 2 {
		t.Fatalf("expected 2 git calls, got %d", len(git.calls))
	}
	assertArgs(t, git.calls[0].Args, "fetch", "origin", "main")
	assertArgs(t, git.calls[1].Args, "checkout", "-b", "feature-42-a1b2c3d4-add-auth", "origin/main")
}

func TestCheckoutNewBranch_FallsBackToLocalHead(t *testing.T) {
	git := &mockGit{results: []mockResult{
		{Err: fmt.Errorf("no such remote")},                        // fetch
		{Err: fmt.Errorf("fatal: not a valid object name")},        // checkout -b ... origin/main
		{Output: ""},                                               // checkout -b
	}}
	r := NewRepo(git, "/repo", "main")

	if err := r.CheckoutNewBranch("bug-7-deadbeef-fix-crash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertArgs(t, git.calls[2].Args, "checkout", "-b", "bug-7-deadbeef-fix-crash")
}

func TestCheckoutNewBranch_RejectsInvalidName(t *testing.T) {
	git := &mockGit{}
	r := NewRepo(git, "/repo", "main")

	if err := r.CheckoutNewBranch("feature/issue-42"); err == nil {
		t.Fatal("expected error for invalid branch name")
	}
	if len(git.calls) != 0 {
		t.Errorf("no git commands should run for an invalid name, got %d", len(git.calls))
	}
}

func TestHasChanges(t *testing.T) {
	git := &mockGit{results: []mockResult{
		{Output: "M internal/foo.go"},
		{Output: ""},
	}}
	r := NewRepo(git, "/repo", "main")

	dirty, err := r.HasChanges()
	if err != nil || !dirty {
		t.Errorf("HasChanges = %v, %v, want true, nil", dirty, err)
	}
	clean, err := r.HasChanges()
	if err != nil || clean {
		t.Errorf("HasChanges = %v, %v, want false, nil", clean, err)
	}
}

func TestHeadAndBranch(t *testing.T) {
	git := &mockGit{results: []mockResult{
		{Output: "abc123"},
		{Output: "feature-42-a1b2c3d4-add-auth"},
	}}
	r := NewRepo(git, "/repo", "main")

	head, err := r.Head()
	if err != nil || head != "abc123" {
		t.Errorf("Head = %q, %v", head, err)
	}
	branch, err := r.CurrentBranch()
	if err != nil || branch != "feature-42-a1b2c3d4-add-auth" {
		t.Errorf("CurrentBranch = %q, %v", branch, err)
	}
}

func TestPush(t *testing.T) {
	git := &mockGit{}
	r := NewRepo(git, "/repo", "main")
	if err := r.Push("feature-42-a1b2c3d4-add-auth"); err != nil {
		t.Fatal(err)
	}
	assertArgs(t, git.calls[0].Args, "push", "-u", "origin", "feature-42-a1b2c3d4-add-auth")
}
