package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

var ErrNotFound = errors.New("report not found")

// MemoryStore keeps ingested reports in memory. Records of a stored report
// are never modified.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*models.Report
	seen    map[string]string // content hash -> report id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*models.Report),
		seen:    make(map[string]string),
	}
}

// Lookup returns the id of the report ingested from content hash.
func (s *MemoryStore) Lookup(hash string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[hash]
	return id, ok
}

// Put stores rep under hash. When hash was already stored it keeps the
// earlier report and returns its id with fresh=false.
func (s *MemoryStore) Put(hash string, rep *models.Report) (id string, fresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.seen[hash]; ok {
		return id, false
	}
	s.seen[hash] = rep.ID
	s.reports[rep.ID] = rep
	return rep.ID, true
}

func (s *MemoryStore) Get(id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rep, nil
}

// All returns the stored reports, newest first.
func (s *MemoryStore) All() []*models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IngestedAt.Equal(out[j].IngestedAt) {
			return out[i].IngestedAt.After(out[j].IngestedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	for h, rid := range s.seen {
		if rid == id {
			delete(s.seen, h)
		}
	}
	return nil
}
