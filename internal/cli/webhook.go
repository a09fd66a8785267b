package cli

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/config"
	"github.com/lucasnoah/issuepilot/internal/health"
	"github.com/lucasnoah/issuepilot/internal/trigger"
	"github.com/lucasnoah/issuepilot/internal/webhook"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Serve the webhook trigger endpoint",
	Long: `Webhook serves POST /gh-webhook, dispatching a detached run for newly
opened issues and trigger-word comments. GET /health reports liveness and
GET /metrics exposes Prometheus counters.

The endpoint is unauthenticated; front it with a tunnel or proxy that
verifies delivery signatures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		p := cfg.Pilot

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		server := webhook.NewServer(&trigger.ExecLauncher{}, p.TriggerWord, p.RunsDir, p.Webhook.Port, reg, log.Default())
		server.SetChecker(health.NewChecker(p.Agent.Binary, p.Agent.RequiredEnv, p.RunsDir))
		return server.Start()
	},
}
