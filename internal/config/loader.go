package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a pilot configuration from the given YAML file path.
// After parsing, it fills in defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a pilot config in standard locations and loads the
// first one found. Search order: ./pilot.yaml, ~/.pilot/config.yaml.
// If neither exists, an all-defaults config is returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"pilot.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".pilot", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	var cfg Config
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in defaults for fields the config file leaves unset.
func applyDefaults(cfg *Config) {
	p := &cfg.Pilot

	if p.DefaultBranch == "" {
		p.DefaultBranch = "main"
	}
	if p.TriggerWord == "" {
		p.TriggerWord = "adw"
	}
	if p.RunsDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			p.RunsDir = filepath.Join(home, ".pilot", "runs")
		} else {
			p.RunsDir = "runs"
		}
	}

	if p.Agent.Binary == "" {
		p.Agent.Binary = "claude"
	}
	if p.Agent.RequiredEnv == "" {
		p.Agent.RequiredEnv = "ANTHROPIC_API_KEY"
	}
	if p.Agent.Models == nil {
		p.Agent.Models = map[string]string{}
	}
	if p.Agent.Models["fast"] == "" {
		p.Agent.Models["fast"] = "claude-3-5-haiku-latest"
	}
	if p.Agent.Models["capable"] == "" {
		p.Agent.Models["capable"] = "claude-sonnet-4-5"
	}

	if p.Poller.Interval == "" {
		p.Poller.Interval = "20s"
	}
	if p.Poller.IssueLimit <= 0 {
		p.Poller.IssueLimit = 20
	}
	if p.Poller.Ledger == "" {
		p.Poller.Ledger = "memory"
	}
	if p.Poller.RedisAddr == "" {
		p.Poller.RedisAddr = "localhost:6379"
	}

	if p.Webhook.Port <= 0 {
		p.Webhook.Port = 8001
	}
}
