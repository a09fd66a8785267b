package prompts

// builtinTemplates maps template filename to content. Plan templates are
// label-specific: chore, bug, and feature issues get different framing.
var builtinTemplates = map[string]string{
	"classify.md":     classifyTemplate,
	"branch.md":       branchTemplate,
	"plan-chore.md":   planChoreTemplate,
	"plan-bug.md":     planBugTemplate,
	"plan-feature.md": planFeatureTemplate,
	"commit.md":       commitTemplate,
	"implement.md":    implementTemplate,
	"pull-request.md": pullRequestTemplate,
}

const classifyTemplate = `Classify the following issue as exactly one of: chore, bug, feature.

## Issue #{{issue_number}}: {{issue_title}}

{{issue_body}}

Respond with ONLY the single word classification. No punctuation, no explanation.
`

const branchTemplate = `Generate a git branch name for this change.

Issue #{{issue_number}}: {{issue_title}}
Classification: {{label}}
Run identity: {{run_id}}

The branch name must match the pattern {{label}}-{{issue_number}}-{{run_id}}-<slug>
where <slug> is a short kebab-case summary of the issue title (lowercase letters,
digits, and hyphens only).

Respond with ONLY the branch name.
`

const planChoreTemplate = `Write an implementation plan for this maintenance chore.

## Issue #{{issue_number}}: {{issue_title}}

{{issue_body}}

Keep the plan minimal: chores should not grow scope. Write the plan to a new
markdown file under specs/ named after the branch ({{branch}}), and respond with
ONLY the path to the plan file you created.
`

const planBugTemplate = `Write an implementation plan for fixing this bug.

## Issue #{{issue_number}}: {{issue_title}}

{{issue_body}}

The plan must include: steps to reproduce, root cause analysis, the fix, and a
regression test. Write the plan to a new markdown file under specs/ named after
the branch ({{branch}}), and respond with ONLY the path to the plan file you created.
`

const planFeatureTemplate = `Write an implementation plan for this feature.

## Issue #{{issue_number}}: {{issue_title}}

{{issue_body}}

The plan must include: user-facing behavior, affected modules, implementation
steps, and test coverage. Write the plan to a new markdown file under specs/
named after the branch ({{branch}}), and respond with ONLY the path to the plan
file you created.
`

const commitTemplate = `Commit the current changes.

Context: {{what}}
{{#if plan_path}}
The staged work follows the plan at {{plan_path}}.
{{/if}}

Stage all relevant changes and create a single commit with a concise,
descriptive message. Respond with ONLY the commit hash.
`

const implementTemplate = `Implement the plan at {{plan_path}}.

## Issue #{{issue_number}}: {{issue_title}}

Read the plan file, then modify the working tree to carry it out. Follow the
plan's steps in order. If the project has a test suite, run it and fix failures
you introduced.

When finished, respond with a short summary of what you changed.
`

const pullRequestTemplate = `Open a pull request for branch {{branch}}.

Issue: #{{issue_number}} {{issue_title}}
Run identity: {{run_id}}
Plan: {{plan_path}}

The pull request title should reference issue #{{issue_number}}. The body must
mention the run identity {{run_id}} and close the issue with "Closes #{{issue_number}}".
Use the gh CLI to create the pull request against {{base_branch}}.

Respond with ONLY the pull request URL.
`
