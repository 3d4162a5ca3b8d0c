package applicant

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a source has no applicant with the requested ID
var ErrNotFound = errors.New("applicant not found")

// Source looks up applicant records. Sources are read-only.
type Source interface {
	Get(ctx context.Context, id string) (*Applicant, error)
	List(ctx context.Context) ([]*Applicant, error)
}

// MemorySource is a fixed set of applicants held in memory
type MemorySource struct {
	applicants map[string]Applicant
	mu         sync.RWMutex
}

// NewMemorySource indexes applicants by ID. Later entries win on duplicate IDs.
func NewMemorySource(applicants ...Applicant) *MemorySource {
	s := &MemorySource{applicants: make(map[string]Applicant, len(applicants))}
	for _, a := range applicants {
		s.applicants[a.ID] = a
	}
	return s
}

func (s *MemorySource) Get(ctx context.Context, id string) (*Applicant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applicants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// List returns applicants ordered by ID
func (s *MemorySource) List(ctx context.Context) ([]*Applicant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Applicant, 0, len(s.applicants))
	for _, a := range s.applicants {
		a := a
		list = append(list, &a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
