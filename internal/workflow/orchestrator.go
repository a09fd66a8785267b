package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lucasnoah/issuepilot/internal/agent"
	"github.com/lucasnoah/issuepilot/internal/gitops"
	"github.com/lucasnoah/issuepilot/internal/prompts"
	"github.com/lucasnoah/issuepilot/internal/run"
	"github.com/lucasnoah/issuepilot/internal/tracker"
)

// Tracker is the slice of the issue-tracker client the orchestrator needs.
type Tracker interface {
	FetchIssue(number int) (*tracker.IssueSnapshot, error)
	PostComment(number int, text string) error
	MarkInProgress(number int) error
}

// Agent invokes the reasoning agent for one stage.
type Agent interface {
	Invoke(ctx context.Context, opts agent.InvokeOpts) (*agent.Result, error)
}

// Git is the slice of repo operations the pipeline performs.
type Git interface {
	Dir() string
	EnsureClean() error
	CheckoutNewBranch(branch string) error
	Head() (string, error)
	Push(branch string) error
}

// EventLog records run events and invocations for later querying. Optional.
type EventLog interface {
	LogRunEvent(runID string, issue int, stage, event, detail string) error
	LogInvocation(runID, stage, template, model, sessionID string, success bool, costUSD float64, durationMS int64) error
}

// ErrUnresolvedClassification is returned when the classifier's answer is
// not one of chore, bug, feature.
var ErrUnresolvedClassification = errors.New("classification unresolved")

// StageFailure marks which stage halted the run.
type StageFailure struct {
	Stage Stage
	Cause error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageFailure) Unwrap() error {
	return e.Cause
}

// Orchestrator drives a run from open issue to open pull request. One run at
// a time per Orchestrator; stages execute sequentially and never retry.
type Orchestrator struct {
	tracker    Tracker
	agent      Agent
	git        Git
	store      *run.Store
	events     EventLog // may be nil
	baseBranch string
}

// NewOrchestrator creates an Orchestrator targeting pull requests at "main".
func NewOrchestrator(trk Tracker, ag Agent, git Git, store *run.Store, events EventLog) *Orchestrator {
	return &Orchestrator{
		tracker:    trk,
		agent:      ag,
		git:        git,
		store:      store,
		events:     events,
		baseBranch: "main",
	}
}

// SetBaseBranch overrides the pull request base branch.
func (o *Orchestrator) SetBaseBranch(branch string) {
	if branch != "" {
		o.baseBranch = branch
	}
}

// Run executes the full pipeline for an issue. It returns the final run
// state even on failure; the error is a *StageFailure for stage-level halts.
func (o *Orchestrator) Run(ctx context.Context, issue int, runID string) (*run.State, error) {
	snap, err := o.tracker.FetchIssue(issue)
	if err != nil {
		return nil, fmt.Errorf("fetch issue: %w", err)
	}
	if !strings.EqualFold(snap.State, "open") {
		return nil, fmt.Errorf("issue #%d is %s, not open", issue, strings.ToLower(snap.State))
	}

	st, resumed, err := o.openRun(runID, issue, snap.Title)
	if err != nil {
		return nil, err
	}
	start := StageClassify
	if resumed {
		if start, err = ParseStage(st.CurrentStage); err != nil {
			return nil, fmt.Errorf("reopen run %s: %w", runID, err)
		}
	}

	logger, err := o.store.OpenLogger(runID)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer logger.Close()

	opening := fmt.Sprintf("starting run for issue #%d: %s", issue, snap.Title)
	if resumed {
		opening = fmt.Sprintf("resuming run for issue #%d at %s", issue, start)
		logger.Logf("run %s resumed for issue #%d at %s", runID, issue, start)
		o.event(st, "run", "resumed", start.String())
	} else {
		logger.Logf("run %s started for issue #%d: %s", runID, issue, snap.Title)
		o.event(st, "run", "started", snap.Title)
	}

	// Label and comment failures don't stop the run; the tracker is a mirror
	// of progress, not a dependency of it.
	if err := o.tracker.MarkInProgress(issue); err != nil {
		logger.Logf("mark in-progress: %v", err)
	}
	o.comment(st, "ops", "", "🚀", opening, logger)

	for _, stage := range Stages[int(start):] {
		st.CurrentStage = stage.String()
		if err := o.store.Save(st); err != nil {
			logger.Logf("save state: %v", err)
		}

		logger.Logf("stage %s started", stage)
		o.event(st, stage.String(), "started", "")

		if err := o.runStage(ctx, st, snap, stage, logger); err != nil {
			return st, o.fail(st, stage, err, logger)
		}

		logger.Logf("stage %s succeeded", stage)
		o.event(st, stage.String(), "succeeded", "")
	}

	st.Status = "succeeded"
	if err := o.store.Save(st); err != nil {
		logger.Logf("save state: %v", err)
	}
	o.event(st, "run", "succeeded", st.PRURL)
	o.comment(st, "ops", "", "✅", fmt.Sprintf("run complete: %s", st.PRURL), logger)
	logger.Logf("run %s succeeded: %s", st.RunID, st.PRURL)
	return st, nil
}

// openRun creates state for a fresh run identity, or reopens the existing
// state when the caller supplied the identity of a run that stopped
// mid-pipeline. Finished runs keep their identity forever and never reopen.
func (o *Orchestrator) openRun(runID string, issue int, title string) (*run.State, bool, error) {
	if !o.store.Has(runID) {
		st, err := o.store.Create(runID, issue, title, StageClassify.String())
		if err != nil {
			return nil, false, fmt.Errorf("create run: %w", err)
		}
		return st, false, nil
	}

	st, err := o.store.Get(runID)
	if err != nil {
		return nil, false, fmt.Errorf("reopen run %s: %w", runID, err)
	}
	if st.Terminal() {
		return nil, false, fmt.Errorf("run %s already finished (%s); start a new run", runID, st.Status)
	}
	if st.Issue != issue {
		return nil, false, fmt.Errorf("run %s belongs to issue #%d, not #%d", runID, st.Issue, issue)
	}
	return st, true, nil
}

// fail records a stage failure, posts the halt comment, and wraps the cause.
func (o *Orchestrator) fail(st *run.State, stage Stage, cause error, logger *run.Logger) error {
	st.Status = "failed"
	st.FailedStage = stage.String()
	st.FailureReason = cause.Error()
	if err := o.store.Save(st); err != nil {
		logger.Logf("save state: %v", err)
	}
	o.event(st, stage.String(), "failed", cause.Error())
	o.comment(st, "ops", "", "❌", fmt.Sprintf("run failed at %s: %v", stage, cause), logger)
	logger.Logf("run %s failed at %s: %v", st.RunID, stage, cause)
	return &StageFailure{Stage: stage, Cause: cause}
}

func (o *Orchestrator) runStage(ctx context.Context, st *run.State, snap *tracker.IssueSnapshot, stage Stage, logger *run.Logger) error {
	switch stage {
	case StageClassify:
		return o.classify(ctx, st, snap, logger)
	case StageBranch:
		return o.branch(ctx, st, snap, logger)
	case StagePlan:
		return o.plan(ctx, st, snap, logger)
	case StageCommitPlan:
		return o.commit(ctx, st, stage, fmt.Sprintf("implementation plan for issue #%d", st.Issue), logger)
	case StageImplement:
		return o.implement(ctx, st, snap, logger)
	case StageCommitImplementation:
		return o.commit(ctx, st, stage, fmt.Sprintf("implementation of issue #%d", st.Issue), logger)
	case StageOpenPullRequest:
		return o.openPullRequest(ctx, st, snap, logger)
	default:
		return fmt.Errorf("unknown stage %v", stage)
	}
}

func (o *Orchestrator) classify(ctx context.Context, st *run.State, snap *tracker.IssueSnapshot, logger *run.Logger) error {
	res, err := o.invoke(ctx, st, StageClassify, "classify.md", prompts.Vars{
		"issue_number": fmt.Sprintf("%d", st.Issue),
		"issue_title":  snap.Title,
		"issue_body":   snap.Body,
	}, "fast", logger)
	if err != nil {
		return err
	}

	label := strings.ToLower(strings.TrimSpace(res.Output))
	switch label {
	case "chore", "bug", "feature":
	default:
		return fmt.Errorf("%w: agent answered %q", ErrUnresolvedClassification, truncateOutput(res.Output))
	}

	st.Label = label
	o.comment(st, StageClassify.Agent(), res.SessionID, "✅", "classified as "+label, logger)
	return nil
}

func (o *Orchestrator) branch(ctx context.Context, st *run.State, snap *tracker.IssueSnapshot, logger *run.Logger) error {
	if err := o.git.EnsureClean(); err != nil {
		return err
	}

	res, err := o.invoke(ctx, st, StageBranch, "branch.md", prompts.Vars{
		"issue_number": fmt.Sprintf("%d", st.Issue),
		"issue_title":  snap.Title,
		"label":        st.Label,
		"run_id":       st.RunID,
	}, "fast", logger)
	if err != nil {
		return err
	}

	branch := lastLine(res.Output)
	if !gitops.ValidBranch(branch) {
		return fmt.Errorf("agent produced invalid branch name %q", truncateOutput(branch))
	}
	if err := o.git.CheckoutNewBranch(branch); err != nil {
		return err
	}

	st.Branch = branch
	o.comment(st, StageBranch.Agent(), res.SessionID, "✅", "created branch "+branch, logger)
	return nil
}

func (o *Orchestrator) plan(ctx context.Context, st *run.State, snap *tracker.IssueSnapshot, logger *run.Logger) error {
	template := "plan-" + st.Label + ".md"
	res, err := o.invoke(ctx, st, StagePlan, template, prompts.Vars{
		"issue_number": fmt.Sprintf("%d", st.Issue),
		"issue_title":  snap.Title,
		"issue_body":   snap.Body,
		"branch":       st.Branch,
	}, "capable", logger)
	if err != nil {
		return err
	}

	planPath := lastLine(res.Output)
	if planPath == "" {
		return errors.New("agent reported no plan file")
	}
	abs := planPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(o.git.Dir(), planPath)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("plan file %q does not exist: %w", planPath, err)
	}

	st.PlanPath = planPath
	o.comment(st, StagePlan.Agent(), res.SessionID, "✅", "plan written to "+planPath, logger)
	return nil
}

// commit runs a commit stage and verifies a new commit actually landed.
func (o *Orchestrator) commit(ctx context.Context, st *run.State, stage Stage, what string, logger *run.Logger) error {
	before, err := o.git.Head()
	if err != nil {
		return err
	}

	res, err := o.invoke(ctx, st, stage, "commit.md", prompts.Vars{
		"what":      what,
		"plan_path": st.PlanPath,
	}, "fast", logger)
	if err != nil {
		return err
	}

	after, err := o.git.Head()
	if err != nil {
		return err
	}
	if after == before {
		return fmt.Errorf("commit stage produced no new commit (HEAD still %s)", before)
	}

	o.comment(st, stage.Agent(), res.SessionID, "✅", fmt.Sprintf("committed %s (%s)", what, after), logger)
	return nil
}

func (o *Orchestrator) implement(ctx context.Context, st *run.State, snap *tracker.IssueSnapshot, logger *run.Logger) error {
	res, err := o.invoke(ctx, st, StageImplement, "implement.md", prompts.Vars{
		"issue_number": fmt.Sprintf("%d", st.Issue),
		"issue_title":  snap.Title,
		"plan_path":    st.PlanPath,
	}, "capable", logger)
	if err != nil {
		return err
	}

	o.comment(st, StageImplement.Agent(), res.SessionID, "✅", "implementation complete", logger)
	return nil
}

func (o *Orchestrator) openPullRequest(ctx context.Context, st *run.State, snap *tracker.IssueSnapshot, logger *run.Logger) error {
	if err := o.git.Push(st.Branch); err != nil {
		return err
	}

	res, err := o.invoke(ctx, st, StageOpenPullRequest, "pull-request.md", prompts.Vars{
		"issue_number": fmt.Sprintf("%d", st.Issue),
		"issue_title":  snap.Title,
		"run_id":       st.RunID,
		"branch":       st.Branch,
		"plan_path":    st.PlanPath,
		"base_branch":  o.baseBranch,
	}, "fast", logger)
	if err != nil {
		return err
	}

	url := lastLine(res.Output)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("agent produced invalid pull request URL %q", truncateOutput(url))
	}

	st.PRURL = url
	o.comment(st, StageOpenPullRequest.Agent(), res.SessionID, "✅", "opened pull request "+url, logger)
	return nil
}

// invoke renders the stage template, runs the agent, and records the
// invocation in the run state whether or not it succeeded.
func (o *Orchestrator) invoke(ctx context.Context, st *run.State, stage Stage, template string, vars prompts.Vars, model string, logger *run.Logger) (*agent.Result, error) {
	tmpl, err := prompts.Load(template)
	if err != nil {
		return nil, err
	}
	prompt, err := prompts.Render(tmpl, vars)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", template, err)
	}

	res, err := o.agent.Invoke(ctx, agent.InvokeOpts{
		RunID:    st.RunID,
		Stage:    stage.String(),
		Prompt:   prompt,
		Template: template,
		Args:     flattenVars(vars),
		Model:    model,
		Dir:      o.git.Dir(),
	})

	inv := run.Invocation{
		Stage:     stage.String(),
		Template:  template,
		Args:      flattenVars(vars),
		Model:     model,
		Timestamp: nowRFC3339(),
	}
	if res != nil {
		inv.Success = res.Success
		inv.SessionID = res.SessionID
		inv.CostUSD = res.CostUSD
		inv.DurationMS = res.DurationMS
		inv.Transcript = res.Transcript
	}
	st.Invocations = append(st.Invocations, inv)
	if saveErr := o.store.Save(st); saveErr != nil {
		logger.Logf("save state: %v", saveErr)
	}
	if o.events != nil {
		_ = o.events.LogInvocation(st.RunID, inv.Stage, inv.Template, inv.Model,
			inv.SessionID, inv.Success, inv.CostUSD, inv.DurationMS)
	}

	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logger.Logf("stage %s warning: %s", stage, w)
	}
	if !res.Success {
		return nil, fmt.Errorf("agent reported failure: %s", truncateOutput(res.Output))
	}
	return res, nil
}

// comment posts a structured progress comment: {runID}_{agent}[_{session}]: <glyph> <message>.
func (o *Orchestrator) comment(st *run.State, agentName, sessionID, glyph, message string, logger *run.Logger) {
	prefix := st.RunID + "_" + agentName
	if sessionID != "" {
		prefix += "_" + sessionID
	}
	body := fmt.Sprintf("%s: %s %s", prefix, glyph, message)
	if err := o.tracker.PostComment(st.Issue, body); err != nil {
		logger.Logf("post comment: %v", err)
	}
}

func (o *Orchestrator) event(st *run.State, stage, event, detail string) {
	if o.events == nil {
		return
	}
	_ = o.events.LogRunEvent(st.RunID, st.Issue, stage, event, detail)
}

// lastLine returns the final non-empty line of agent output. Agents are told
// to answer with only the value, but some preface it anyway.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func flattenVars(vars prompts.Vars) []string {
	args := make([]string, 0, len(vars))
	for k, v := range vars {
		args = append(args, k+"="+v)
	}
	sort.Strings(args)
	return args
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
