package store

import (
	"context"
	"sort"
	"sync"

	"docproof/internal/workflow/models"
	"docproof/pkg/platform/sentinel"
)

// MemoryStore keeps workflows in memory. It mirrors the PostgreSQL store's
// semantics, including version compare-and-swap, so services can be unit
// tested against it.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*models.VerificationWorkflow
}

// NewMemory constructs an empty in-memory workflow store.
func NewMemory() *MemoryStore {
	return &MemoryStore{workflows: make(map[string]*models.VerificationWorkflow)}
}

func (s *MemoryStore) Insert(_ context.Context, wf *models.VerificationWorkflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[wf.ID]; ok {
		return sentinel.ErrConflict
	}
	s.workflows[wf.ID] = wf.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.VerificationWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return wf.Clone(), nil
}

// Update persists wf only when the stored version still equals
// expectedVersion, then bumps the version. Returns sentinel.ErrConflict when
// another writer got there first.
func (s *MemoryStore) Update(_ context.Context, wf *models.VerificationWorkflow, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.workflows[wf.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	next := wf.Clone()
	next.Version = expectedVersion + 1
	s.workflows[wf.ID] = next
	wf.Version = next.Version
	return nil
}

func (s *MemoryStore) FindLatestByDocument(_ context.Context, documentID string) (*models.VerificationWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.VerificationWorkflow
	for _, wf := range s.workflows {
		if wf.DocumentID != documentID {
			continue
		}
		if latest == nil || wf.SubmittedAt.After(latest.SubmittedAt) {
			latest = wf
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, state *models.State) ([]*models.VerificationWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.VerificationWorkflow
	for _, wf := range s.workflows {
		if state != nil && wf.CurrentState != *state {
			continue
		}
		out = append(out, wf.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}
