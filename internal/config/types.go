package config

// Config is the top-level configuration structure parsed from pilot YAML.
type Config struct {
	Pilot Pilot `yaml:"pilot"`
}

// Pilot defines the full automation setup: repo, trigger rules, agent, and daemons.
type Pilot struct {
	Repo          string  `yaml:"repo"`
	DefaultBranch string  `yaml:"default_branch"`
	TriggerWord   string  `yaml:"trigger_word"`
	RunsDir       string  `yaml:"runs_dir"`
	Agent         Agent   `yaml:"agent"`
	Poller        Poller  `yaml:"poller"`
	Webhook       Webhook `yaml:"webhook"`
}

// Agent configures the reasoning-agent subprocess.
type Agent struct {
	Binary      string            `yaml:"binary"`
	Models      map[string]string `yaml:"models"`  // tier name -> model identifier
	Timeout     string            `yaml:"timeout"` // optional ceiling, e.g. "45m"; empty = block until exit
	RequiredEnv string            `yaml:"required_env"`
}

// Poller configures the periodic trigger loop.
type Poller struct {
	Interval   string `yaml:"interval"`
	IssueLimit int    `yaml:"issue_limit"`
	Ledger     string `yaml:"ledger"` // "memory" or "redis"
	RedisAddr  string `yaml:"redis_addr"`
}

// Webhook configures the inbound HTTP trigger.
type Webhook struct {
	Port int `yaml:"port"`
}
