package db

import (
	"database/sql"
	"fmt"
)

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	RunID     string
	Issue     int
	Stage     string
	Event     string
	Detail    string
	Timestamp string
}

// AgentInvocation represents a row in the agent_invocations table.
type AgentInvocation struct {
	ID         int
	RunID      string
	Stage      string
	Template   string
	Model      string
	SessionID  string
	Success    bool
	CostUSD    float64
	DurationMS int64
	Timestamp  string
}

// LogRunEvent inserts a run event.
func (d *DB) LogRunEvent(runID string, issue int, stage, event, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run_id, issue, stage, event, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, issue, stage, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// LogInvocation inserts an agent invocation record.
func (d *DB) LogInvocation(runID, stage, template, model, sessionID string, success bool, costUSD float64, durationMS int64) error {
	_, err := d.conn.Exec(
		`INSERT INTO agent_invocations (run_id, stage, template, model, session_id, success, cost_usd, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, stage, template, model, sessionID, success, costUSD, durationMS,
	)
	if err != nil {
		return fmt.Errorf("log invocation: %w", err)
	}
	return nil
}

// GetRunEvents returns all events for a run, oldest first.
func (d *DB) GetRunEvents(runID string) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, issue, stage, event, detail, timestamp
		 FROM run_events WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Issue, &e.Stage, &e.Event, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetInvocations returns all invocations for a run, oldest first.
func (d *DB) GetInvocations(runID string) ([]AgentInvocation, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, stage, template, model, session_id, success, cost_usd, duration_ms, timestamp
		 FROM agent_invocations WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get invocations: %w", err)
	}
	defer rows.Close()

	var invocations []AgentInvocation
	for rows.Next() {
		var inv AgentInvocation
		var template, sessionID sql.NullString
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.Stage, &template, &inv.Model,
			&sessionID, &inv.Success, &inv.CostUSD, &inv.DurationMS, &inv.Timestamp); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		if template.Valid {
			inv.Template = template.String
		}
		if sessionID.Valid {
			inv.SessionID = sessionID.String
		}
		invocations = append(invocations, inv)
	}
	return invocations, rows.Err()
}

// RunCost returns the total agent spend for a run in USD.
func (d *DB) RunCost(runID string) (float64, error) {
	var cost float64
	err := d.conn.QueryRow(
		`SELECT COALESCE(SUM(cost_usd), 0) FROM agent_invocations WHERE run_id = ?`,
		runID,
	).Scan(&cost)
	if err != nil {
		return 0, fmt.Errorf("run cost: %w", err)
	}
	return cost, nil
}
