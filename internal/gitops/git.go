// Package gitops wraps the git operations a run performs on the target repo.
package gitops

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// branchRe is the branch naming contract: <label>-<issue>-<runid>-<slug>.
var branchRe = regexp.MustCompile(`^(chore|bug|feature)-\d+-[a-z0-9]{8}-[a-z0-9-]+$`)

// ValidBranch reports whether name follows the branch naming contract.
func ValidBranch(name string) bool {
	return branchRe.MatchString(name)
}

// Repo performs git operations against a single checkout.
type Repo struct {
	git           GitRunner
	dir           string
	defaultBranch string
}

// NewRepo creates a Repo for the checkout at dir.
func NewRepo(git GitRunner, dir, defaultBranch string) *Repo {
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	return &Repo{git: git, dir: dir, defaultBranch: defaultBranch}
}

// Dir returns the checkout directory.
func (r *Repo) Dir() string {
	return r.dir
}

// EnsureClean fails if the working tree has uncommitted changes. Runs start
// from a clean tree so every commit is attributable to the run.
func (r *Repo) EnsureClean() error {
	out, err := r.git.Run(r.dir, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("check working tree: %w", err)
	}
	if out != "" {
		return fmt.Errorf("working tree is dirty:\n%s", out)
	}
	return nil
}

// CheckoutNewBranch creates branch off origin/<default> and switches to it.
func (r *Repo) CheckoutNewBranch(branch string) error {
	if !ValidBranch(branch) {
		return fmt.Errorf("branch name %q does not match <label>-<issue>-<runid>-<slug>", branch)
	}

	// Best-effort fetch so we branch from an up-to-date default branch.
	r.git.Run(r.dir, "fetch", "origin", r.defaultBranch)

	if _, err := r.git.Run(r.dir, "checkout", "-b", branch, "origin/"+r.defaultBranch); err != nil {
		// No remote tracking ref (fresh or offline repo): branch from local HEAD.
		if _, localErr := r.git.Run(r.dir, "checkout", "-b", branch); localErr != nil {
			return fmt.Errorf("create branch: %w", err)
		}
	}
	return nil
}

// Head returns the current commit hash.
func (r *Repo) Head() (string, error) {
	out, err := r.git.Run(r.dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return out, nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch() (string, error) {
	out, err := r.git.Run(r.dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve branch: %w", err)
	}
	return out, nil
}

// HasChanges reports whether the working tree differs from HEAD.
func (r *Repo) HasChanges() (bool, error) {
	out, err := r.git.Run(r.dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("check working tree: %w", err)
	}
	return out != "", nil
}

// Push pushes branch to origin, setting upstream.
func (r *Repo) Push(branch string) error {
	if _, err := r.git.Run(r.dir, "push", "-u", "origin", branch); err != nil {
		return fmt.Errorf("push branch: %w", err)
	}
	return nil
}
