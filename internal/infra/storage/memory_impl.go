package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// MemoryDefinitionStorage keeps definitions in process. Nothing survives a
// restart. Values are cloned on the way in and out.
type MemoryDefinitionStorage struct {
	mu   sync.RWMutex
	defs map[string]*model.MockDefinition
}

func NewMemoryDefinitionStorage() *MemoryDefinitionStorage {
	return &MemoryDefinitionStorage{defs: make(map[string]*model.MockDefinition)}
}

var _ DefinitionStorageIface = (*MemoryDefinitionStorage)(nil)

func (s *MemoryDefinitionStorage) SaveDefinition(_ context.Context, def *model.MockDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("definition id is required")
	}
	now := time.Now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := def.Clone()
	cp.Source = model.SourcePersisted
	s.defs[def.ID] = cp
	return nil
}

func (s *MemoryDefinitionStorage) GetDefinition(_ context.Context, id string) (*model.MockDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrDefinitionNotFound, id)
	}
	return d.Clone(), nil
}

func (s *MemoryDefinitionStorage) DeleteDefinition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[id]; !ok {
		return fmt.Errorf("%w: %s", model.ErrDefinitionNotFound, id)
	}
	delete(s.defs, id)
	return nil
}

func (s *MemoryDefinitionStorage) BatchGetDefinitions(_ context.Context, ids []string) ([]*model.MockDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.MockDefinition, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.defs[id]; ok {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (s *MemoryDefinitionStorage) ListDefinitions(_ context.Context) ([]*model.MockDefinition, error) {
	s.mu.RLock()
	out := make([]*model.MockDefinition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()

	SortForListing(out)
	return out, nil
}

// SortForListing orders by apiName asc, then createdAt desc.
func SortForListing(defs []*model.MockDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].APIName != defs[j].APIName {
			return defs[i].APIName < defs[j].APIName
		}
		return defs[i].CreatedAt.After(defs[j].CreatedAt)
	})
}
