// Package health checks the host prerequisites a run depends on.
package health

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Status is the aggregate outcome of a health check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Probe is one prerequisite check. Required probes gate runs; optional ones
// only degrade the report.
type Probe struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
}

// Report is a full health check result.
type Report struct {
	Status Status  `json:"status"`
	Probes []Probe `json:"checks"`
}

// Checker runs the probes.
type Checker struct {
	agentBinary string
	requiredEnv string
	runsDir     string

	lookPath func(string) (string, error)
	getenv   func(string) string
}

// NewChecker creates a Checker for the configured agent binary, credential
// variable, and runs directory.
func NewChecker(agentBinary, requiredEnv, runsDir string) *Checker {
	return &Checker{
		agentBinary: agentBinary,
		requiredEnv: requiredEnv,
		runsDir:     runsDir,
		lookPath:    exec.LookPath,
		getenv:      os.Getenv,
	}
}

// Check runs every probe and aggregates the outcome: any required failure is
// unhealthy, any optional failure degrades, otherwise healthy.
func (c *Checker) Check() *Report {
	probes := []Probe{
		c.probeBinary("agent binary", c.agentBinary, true),
		c.probeBinary("gh", "gh", true),
		c.probeBinary("git", "git", true),
		c.probeEnv(),
		c.probeRunsDir(),
	}

	status := StatusHealthy
	for _, p := range probes {
		if p.OK {
			continue
		}
		if p.Required {
			status = StatusUnhealthy
			break
		}
		status = StatusDegraded
	}
	return &Report{Status: status, Probes: probes}
}

func (c *Checker) probeBinary(name, binary string, required bool) Probe {
	p := Probe{Name: name, Required: required}
	if binary == "" {
		p.Detail = "no binary configured"
		return p
	}
	path, err := c.lookPath(binary)
	if err != nil {
		p.Detail = fmt.Sprintf("%s not found in PATH", binary)
		return p
	}
	p.OK = true
	p.Detail = path
	return p
}

func (c *Checker) probeEnv() Probe {
	p := Probe{Name: "credential", Required: true}
	if c.requiredEnv == "" {
		p.OK = true
		p.Detail = "no credential variable configured"
		return p
	}
	if c.getenv(c.requiredEnv) == "" {
		p.Detail = c.requiredEnv + " is not set"
		return p
	}
	p.OK = true
	p.Detail = c.requiredEnv + " is set"
	return p
}

// probeRunsDir verifies the audit store is writable by writing a probe file.
func (c *Checker) probeRunsDir() Probe {
	p := Probe{Name: "runs dir", Required: true}
	if c.runsDir == "" {
		p.Detail = "no runs directory configured"
		return p
	}
	if err := os.MkdirAll(c.runsDir, 0o755); err != nil {
		p.Detail = fmt.Sprintf("create %s: %v", c.runsDir, err)
		return p
	}
	probe := filepath.Join(c.runsDir, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		p.Detail = fmt.Sprintf("write to %s: %v", c.runsDir, err)
		return p
	}
	_ = os.Remove(probe)
	p.OK = true
	p.Detail = c.runsDir
	return p
}
