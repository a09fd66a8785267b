// Package workflow drives a run through its fixed stage pipeline.
package workflow

import "fmt"

// Stage is one step of the pipeline. The set is closed: runs always execute
// the same stages in the same order, and a failure halts the run where it is.
type Stage int

const (
	StageClassify Stage = iota
	StageBranch
	StagePlan
	StageCommitPlan
	StageImplement
	StageCommitImplementation
	StageOpenPullRequest
)

// Stages is the pipeline in execution order.
var Stages = []Stage{
	StageClassify,
	StageBranch,
	StagePlan,
	StageCommitPlan,
	StageImplement,
	StageCommitImplementation,
	StageOpenPullRequest,
}

var stageNames = map[Stage]string{
	StageClassify:             "classify",
	StageBranch:               "branch",
	StagePlan:                 "plan",
	StageCommitPlan:           "commit_plan",
	StageImplement:            "implement",
	StageCommitImplementation: "commit_implementation",
	StageOpenPullRequest:      "open_pull_request",
}

// agentNames identify who is speaking in issue comments.
var agentNames = map[Stage]string{
	StageClassify:             "classifier",
	StageBranch:               "brancher",
	StagePlan:                 "planner",
	StageCommitPlan:           "committer",
	StageImplement:            "implementor",
	StageCommitImplementation: "committer",
	StageOpenPullRequest:      "pull_requester",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Agent returns the comment-facing agent name for the stage.
func (s Stage) Agent() string {
	if name, ok := agentNames[s]; ok {
		return name
	}
	return "ops"
}

// ParseStage resolves a stage name back to its Stage.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}
