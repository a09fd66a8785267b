// Package ledger tracks which issues the poller has already dispatched, so
// one trigger comment fires exactly one run.
package ledger

import "sync"

// Store records dispatched issues keyed by issue number, remembering the
// comment that triggered them.
type Store interface {
	// Has reports whether the issue has already been dispatched.
	Has(issue int) (bool, error)
	// Mark records a dispatch along with the triggering comment's ID.
	Mark(issue int, lastCommentID string) error
	// LastCommentID returns the comment ID recorded at dispatch, "" if none.
	LastCommentID(issue int) (string, error)
}

// MemoryStore keeps the ledger in process memory. Restarting the poller
// forgets past dispatches; the trigger-comment rule keeps that safe, since
// an already-handled issue's last comment is a pilot comment, not the
// trigger word.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int]string
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int]string)}
}

func (s *MemoryStore) Has(issue int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[issue]
	return ok, nil
}

func (s *MemoryStore) Mark(issue int, lastCommentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[issue] = lastCommentID
	return nil
}

func (s *MemoryStore) LastCommentID(issue int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[issue], nil
}
