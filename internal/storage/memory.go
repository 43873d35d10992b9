package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"sarinfer/internal/models"
	"sarinfer/internal/utils"
)

// MemoryStore is an in-process MetadataStore for local development and
// tests. Records are lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.ModelMetadata
	order   []string
	logger  *utils.Logger
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.ModelMetadata),
		logger:  utils.NewLogger("memory-store"),
	}
}

func (s *MemoryStore) Add(ctx context.Context, m *models.ModelMetadata) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[m.ModelID]; exists {
		s.logger.Info("Model already exists", "model_id", m.ModelID)
		return "", false, nil
	}
	s.records[m.ModelID] = m.Clone()
	s.order = append(s.order, m.ModelID)
	return m.ModelID, true, nil
}

func (s *MemoryStore) Get(ctx context.Context, modelID string) (*models.ModelMetadata, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.records[modelID]
	if !ok {
		return nil, false, nil
	}
	return m.Clone(), true, nil
}

func (s *MemoryStore) Update(ctx context.Context, modelID string, update models.MetadataUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[modelID]
	if !ok {
		return 0, nil
	}
	m.Apply(update, time.Now().UTC())
	return 1, nil
}

func (s *MemoryStore) Delete(ctx context.Context, modelID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[modelID]; !ok {
		return 0, nil
	}
	delete(s.records, modelID)
	for i, id := range s.order {
		if id == modelID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ModelMetadata, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) FindByName(ctx context.Context, name string) ([]*models.ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ModelMetadata
	for i := len(s.order) - 1; i >= 0; i-- {
		if m := s.records[s.order[i]]; m.ModelName == name {
			out = append(out, m.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
