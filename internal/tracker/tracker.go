// Package tracker is a narrow read/write client for the external issue
// tracker, consumed through the gh CLI.
package tracker

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// CmdRunner provides command execution. Interface for testing.
type CmdRunner interface {
	Run(args ...string) (string, error)
}

// ExecRunner runs gh commands via exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(args ...string) (string, error) {
	cmd := exec.Command("gh", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("gh %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Client provides issue-tracker operations.
type Client struct {
	cmd           CmdRunner
	progressLabel string
}

// NewClient creates a tracker client.
func NewClient(cmd CmdRunner) *Client {
	return &Client{cmd: cmd, progressLabel: "in-progress"}
}

// IssueSnapshot is a read-only snapshot of an issue taken once per run.
// Stages operate on the snapshot, not live state, so concurrent human edits
// cannot shift the ground under a run.
type IssueSnapshot struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	State    string    `json:"state"`
	Labels   []Label   `json:"labels"`
	Comments []Comment `json:"comments"`
}

// Label is a tracker label.
type Label struct {
	Name string `json:"name"`
}

// Comment is a single issue comment.
type Comment struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

// IssueRef is a lightweight listing entry.
type IssueRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// ValidateIssueNumber checks that an issue number is positive.
func ValidateIssueNumber(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid issue number %d: must be positive", n)
	}
	return nil
}

// FetchIssue fetches an issue snapshot, comments included and ordered by
// creation time.
func (c *Client) FetchIssue(number int) (*IssueSnapshot, error) {
	if err := ValidateIssueNumber(number); err != nil {
		return nil, err
	}

	out, err := c.cmd.Run("issue", "view", fmt.Sprintf("%d", number),
		"--json", "number,title,body,state,labels,comments")
	if err != nil {
		return nil, classifyError("fetch issue", out, err)
	}

	var snap IssueSnapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		return nil, fmt.Errorf("parse issue JSON: %w", err)
	}
	sortComments(snap.Comments)
	return &snap, nil
}

// FetchComments fetches an issue's comments ordered by creation time.
func (c *Client) FetchComments(number int) ([]Comment, error) {
	if err := ValidateIssueNumber(number); err != nil {
		return nil, err
	}

	out, err := c.cmd.Run("issue", "view", fmt.Sprintf("%d", number), "--json", "comments")
	if err != nil {
		return nil, classifyError("fetch comments", out, err)
	}

	var payload struct {
		Comments []Comment `json:"comments"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return nil, fmt.Errorf("parse comments JSON: %w", err)
	}
	sortComments(payload.Comments)
	return payload.Comments, nil
}

// PostComment posts a comment on an issue.
func (c *Client) PostComment(number int, text string) error {
	if err := ValidateIssueNumber(number); err != nil {
		return err
	}
	out, err := c.cmd.Run("issue", "comment", fmt.Sprintf("%d", number), "--body", text)
	if err != nil {
		return classifyError("post comment", out, err)
	}
	return nil
}

// MarkInProgress labels an issue as picked up.
func (c *Client) MarkInProgress(number int) error {
	if err := ValidateIssueNumber(number); err != nil {
		return err
	}
	out, err := c.cmd.Run("issue", "edit", fmt.Sprintf("%d", number), "--add-label", c.progressLabel)
	if err != nil {
		return classifyError("mark in progress", out, err)
	}
	return nil
}

// ListOpenIssues lists open issues up to limit.
func (c *Client) ListOpenIssues(limit int) ([]IssueRef, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := c.cmd.Run("issue", "list", "--state", "open",
		"--limit", fmt.Sprintf("%d", limit), "--json", "number,title")
	if err != nil {
		return nil, classifyError("list open issues", out, err)
	}

	var refs []IssueRef
	if err := json.Unmarshal([]byte(out), &refs); err != nil {
		return nil, fmt.Errorf("parse issue list JSON: %w", err)
	}
	return refs, nil
}

// sortComments orders comments by creation time, oldest first. gh already
// returns them in order; the sort makes the contract explicit.
func sortComments(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt < comments[j].CreatedAt
	})
}
