package cli

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/agent"
	"github.com/lucasnoah/issuepilot/internal/config"
	"github.com/lucasnoah/issuepilot/internal/db"
	"github.com/lucasnoah/issuepilot/internal/gitops"
	"github.com/lucasnoah/issuepilot/internal/run"
	"github.com/lucasnoah/issuepilot/internal/runid"
	"github.com/lucasnoah/issuepilot/internal/tracker"
	"github.com/lucasnoah/issuepilot/internal/workflow"
)

var runFlagID string

var runCmd = &cobra.Command{
	Use:   "run <issue-number>",
	Short: "Run the full pipeline for an issue",
	Long: `Run drives one issue through the whole pipeline: classify, branch, plan,
commit the plan, implement, commit the implementation, open the pull request.
A stage failure halts the run and is reported on the issue; nothing retries.

Passing --run-id with the identity of a run that stopped mid-pipeline resumes
it at the pending stage. Finished identities are never reused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issue, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number: %s", args[0])
		}
		if err := tracker.ValidateIssueNumber(issue); err != nil {
			return err
		}

		id := runFlagID
		if id == "" {
			id = runid.New()
		} else if err := runid.Validate(id); err != nil {
			return err
		}

		config.LoadEnv()
		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		orch, store, cleanup, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintf(cmd.OutOrStdout(), "run %s starting for issue #%d\n", id, issue)
		fmt.Fprintf(cmd.OutOrStdout(), "logs: %s\n", store.RunDir(id))

		st, err := orch.Run(cmd.Context(), issue, id)
		if err != nil {
			if st != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s failed at %s: %s\n", id, st.FailedStage, st.FailureReason)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s succeeded: %s\n", id, st.PRURL)
		return nil
	},
}

// buildOrchestrator wires a workflow orchestrator from config. The returned
// cleanup closes the event database.
func buildOrchestrator(cfg *config.Config) (*workflow.Orchestrator, *run.Store, func(), error) {
	p := cfg.Pilot

	if err := os.MkdirAll(p.RunsDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create runs dir: %w", err)
	}
	store := run.NewStore(p.RunsDir)

	var timeout time.Duration
	if p.Agent.Timeout != "" {
		d, err := time.ParseDuration(p.Agent.Timeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse agent timeout %q: %w", p.Agent.Timeout, err)
		}
		timeout = d
	}
	bridge := agent.NewBridge(p.Agent.Binary, p.Agent.Models, p.Agent.RequiredEnv, timeout, store)

	repoDir := p.Repo
	if repoDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve working directory: %w", err)
		}
		repoDir = wd
	}
	repo := gitops.NewRepo(&gitops.ExecGit{}, repoDir, p.DefaultBranch)

	trk := tracker.NewClient(&tracker.ExecRunner{})

	// The event database is an index, not a dependency; a broken database
	// degrades status queries but never blocks runs.
	var events workflow.EventLog
	cleanup := func() {}
	if database := openEventDB(); database != nil {
		events = database
		cleanup = func() { database.Close() }
	}

	orch := workflow.NewOrchestrator(trk, bridge, repo, store, events)
	orch.SetBaseBranch(p.DefaultBranch)
	return orch, store, cleanup, nil
}

func openEventDB() *db.DB {
	path, err := db.DefaultDBPath()
	if err != nil {
		log.Printf("event db unavailable: %v", err)
		return nil
	}
	database, err := db.Open(path)
	if err != nil {
		log.Printf("event db unavailable: %v", err)
		return nil
	}
	if err := database.Migrate(); err != nil {
		log.Printf("event db migration failed: %v", err)
		database.Close()
		return nil
	}
	return database
}

func init() {
	runCmd.Flags().StringVar(&runFlagID, "run-id", "", "use a pre-assigned run identity; an interrupted run's identity resumes it")
}
