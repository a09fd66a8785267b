package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "pilot",
	Short: "issuepilot turns open issues into pull requests",
	Long: `issuepilot turns open tracker issues into reviewed pull requests with no
human in the loop: classify, branch, plan, implement, commit, deliver.

Runs are dispatched manually, by the comment poller, or by webhook. Every
run keeps a full audit trail under ~/.pilot/runs (prompts, raw agent
transcripts, state) plus a queryable SQLite event log in ~/.pilot/pilot.db.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(templatesCmd)
}
