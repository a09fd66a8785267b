package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/config"
	"github.com/lucasnoah/issuepilot/internal/ledger"
	"github.com/lucasnoah/issuepilot/internal/tracker"
	"github.com/lucasnoah/issuepilot/internal/trigger"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll open issues and dispatch eligible ones",
	Long: `Poll scans open issues on an interval. An issue with no comments, or whose
latest comment is exactly the trigger word, gets a detached run. Progress
comments posted by runs break eligibility, so issues fire once per trigger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg, err := config.LoadDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		p := cfg.Pilot

		interval, err := time.ParseDuration(p.Poller.Interval)
		if err != nil {
			return fmt.Errorf("parse poll interval %q: %w", p.Poller.Interval, err)
		}

		led, closeLedger, err := buildLedger(&p)
		if err != nil {
			return err
		}
		defer closeLedger()

		trk := tracker.NewClient(&tracker.ExecRunner{})
		poller := trigger.NewPoller(trk, &trigger.ExecLauncher{}, led, trigger.PollerOpts{
			TriggerWord: p.TriggerWord,
			Interval:    interval,
			IssueLimit:  p.Poller.IssueLimit,
			Logf:        log.Printf,
		})

		log.Printf("polling every %s (trigger word %q, ledger %s)", interval, p.TriggerWord, p.Poller.Ledger)
		return poller.Run(cmd.Context())
	},
}

// buildLedger selects the dispatch ledger backend from config.
func buildLedger(p *config.Pilot) (ledger.Store, func(), error) {
	switch p.Poller.Ledger {
	case "", "memory":
		return ledger.NewMemoryStore(), func() {}, nil
	case "redis":
		store, err := ledger.NewRedisStore(p.Poller.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("redis ledger: %w", err)
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", p.Poller.Ledger)
	}
}
