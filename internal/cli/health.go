package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/config"
	"github.com/lucasnoah/issuepilot/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check host prerequisites for runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		p := cfg.Pilot

		checker := health.NewChecker(p.Agent.Binary, p.Agent.RequiredEnv, p.RunsDir)
		report := checker.Check()

		w := cmd.OutOrStdout()
		for _, probe := range report.Probes {
			mark := "ok"
			if !probe.OK {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "%-14s %-4s %s\n", probe.Name, mark, probe.Detail)
		}
		fmt.Fprintf(w, "status: %s\n", report.Status)

		if report.Status == health.StatusUnhealthy {
			return fmt.Errorf("host is unhealthy")
		}
		return nil
	},
}
