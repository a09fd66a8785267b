// Package run is the audit store: a per-run directory of logs, raw agent
// transcripts, and prompts, keyed by run identity.
package run

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store manages run state and artifacts on disk.
//
// Layout under baseDir:
//
//	{runID}/state.json
//	{runID}/exec.log
//	{runID}/{stage}/prompt.txt
//	{runID}/{stage}/raw_output.jsonl
//	{runID}/{stage}/output.json
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.pilot/runs, creating the directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".pilot", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// RunDir returns the directory for a run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// StageDir returns the directory for a stage within a run.
func (s *Store) StageDir(runID string, stage string) string {
	return filepath.Join(s.RunDir(runID), stage)
}

func (s *Store) statePath(runID string) string {
	return filepath.Join(s.RunDir(runID), "state.json")
}

// Create initialises a new run on disk and returns its initial state.
func (s *Store) Create(runID string, issue int, title string, firstStage string) (*State, error) {
	dir := s.RunDir(runID)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("run %s already exists", runID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir run dir: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	st := &State{
		RunID:        runID,
		Issue:        issue,
		Title:        title,
		CurrentStage: firstStage,
		Invocations:  []Invocation{},
		Status:       "in_progress",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := WriteJSON(s.statePath(runID), st); err != nil {
		return nil, fmt.Errorf("write state.json: %w", err)
	}
	return st, nil
}

// Has reports whether state exists for a run.
func (s *Store) Has(runID string) bool {
	_, err := os.Stat(s.statePath(runID))
	return err == nil
}

// Get reads the state for a run.
func (s *Store) Get(runID string) (*State, error) {
	var st State
	if err := ReadJSON(s.statePath(runID), &st); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, err
	}
	return &st, nil
}

// Save persists the run state after a stage transition.
func (s *Store) Save(st *State) error {
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return WriteJSON(s.statePath(st.RunID), st)
}

// List returns all run states, oldest first.
func (s *Store) List() ([]State, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var states []State
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		st, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		states = append(states, *st)
	}
	sort.SliceStable(states, func(i, j int) bool {
		return states[i].CreatedAt < states[j].CreatedAt
	})
	return states, nil
}

// SavePrompt writes the exact prompt for a stage before the agent is
// spawned, so failures are reproducible by replay.
func (s *Store) SavePrompt(runID string, stage string, prompt string) error {
	return WriteAtomic(filepath.Join(s.StageDir(runID, stage), "prompt.txt"), []byte(prompt))
}

// GetPrompt reads a stage's prompt log.
func (s *Store) GetPrompt(runID string, stage string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.StageDir(runID, stage), "prompt.txt"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TranscriptPath is where the bridge streams the raw line-delimited JSON.
func (s *Store) TranscriptPath(runID string, stage string) string {
	return filepath.Join(s.StageDir(runID, stage), "raw_output.jsonl")
}

// ReadablePath is the secondary array-of-objects file for human inspection.
func (s *Store) ReadablePath(runID string, stage string) string {
	return filepath.Join(s.StageDir(runID, stage), "output.json")
}
