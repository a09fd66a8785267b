package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/config"
	"github.com/lucasnoah/issuepilot/internal/run"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run status",
	Long: `Status lists all runs, or shows one run in detail when given its identity.
State comes from the JSON files in the runs directory, which are the source
of truth even when the event database is unavailable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store := run.NewStore(cfg.Pilot.RunsDir)

		if len(args) == 1 {
			return printRunDetail(cmd, store, args[0])
		}
		return printRunList(cmd, store)
	},
}

func printRunList(cmd *cobra.Command, store *run.Store) error {
	states, err := store.List()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(states) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-10s %-8s %-12s %-22s %s\n", "RUN", "ISSUE", "STATUS", "STAGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-8s %-12s %-22s %s\n",
		strings.Repeat("-", 10),
		strings.Repeat("-", 8),
		strings.Repeat("-", 12),
		strings.Repeat("-", 22),
		strings.Repeat("-", 5))
	for _, st := range states {
		fmt.Fprintf(w, "%-10s %-8d %-12s %-22s %s\n",
			st.RunID, st.Issue, st.Status, st.CurrentStage, st.Title)
	}
	return nil
}

func printRunDetail(cmd *cobra.Command, store *run.Store, runID string) error {
	st, err := store.Get(runID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: issue #%d %s\n", st.RunID, st.Issue, st.Title)
	fmt.Fprintf(w, "  Status:  %s\n", st.Status)
	fmt.Fprintf(w, "  Stage:   %s\n", st.CurrentStage)
	if st.Label != "" {
		fmt.Fprintf(w, "  Label:   %s\n", st.Label)
	}
	if st.Branch != "" {
		fmt.Fprintf(w, "  Branch:  %s\n", st.Branch)
	}
	if st.PlanPath != "" {
		fmt.Fprintf(w, "  Plan:    %s\n", st.PlanPath)
	}
	if st.PRURL != "" {
		fmt.Fprintf(w, "  PR:      %s\n", st.PRURL)
	}
	if st.Status == "failed" {
		fmt.Fprintf(w, "  Failed:  %s (%s)\n", st.FailedStage, st.FailureReason)
	}
	fmt.Fprintf(w, "  Created: %s\n", st.CreatedAt)
	fmt.Fprintf(w, "  Updated: %s\n", st.UpdatedAt)
	fmt.Fprintf(w, "  Logs:    %s\n", store.RunDir(st.RunID))

	if len(st.Invocations) > 0 {
		fmt.Fprintln(w, "  Invocations:")
		var total float64
		for _, inv := range st.Invocations {
			outcome := "ok"
			if !inv.Success {
				outcome = "failed"
			}
			fmt.Fprintf(w, "    %-22s %-8s $%.4f %6.1fs %s\n",
				inv.Stage, outcome, inv.CostUSD, float64(inv.DurationMS)/1000, inv.Model)
			total += inv.CostUSD
		}
		fmt.Fprintf(w, "  Total cost: $%.4f\n", total)
	}
	return nil
}
