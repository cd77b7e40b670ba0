package storage

import (
	"context"
	"sync"
	"time"

	"github.com/solacechat/engine/internal/models"
)

// MemoryStore is an in-memory Storage implementation used for tests and
// local development.
type MemoryStore struct {
	mu            sync.RWMutex
	memories      map[string]*models.Memory
	relationships map[string]*models.RelationshipState
	audits        []*models.CrisisAuditRecord
	techniques    []*models.TechniqueRecord
	triggers      []*models.CareTrigger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memories:      make(map[string]*models.Memory),
		relationships: make(map[string]*models.RelationshipState),
	}
}

func (s *MemoryStore) CreateMemory(ctx context.Context, memory *models.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *memory
	s.memories[memory.ID] = &stored
	return nil
}

func (s *MemoryStore) ListActiveMemories(ctx context.Context, userID string) ([]*models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Memory
	for _, m := range s.memories {
		if m.UserID == userID && m.IsActive {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkMemoryReferenced(ctx context.Context, memoryID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, exists := s.memories[memoryID]; exists {
		when := at
		m.LastReferencedAt = &when
	}
	return nil
}

func (s *MemoryStore) DeactivateMemory(ctx context.Context, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, exists := s.memories[memoryID]; exists {
		m.IsActive = false
	}
	return nil
}

func (s *MemoryStore) GetRelationship(ctx context.Context, userID string) (*models.RelationshipState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.relationships[userID]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *state
	copied.UnlockedFeatures = append([]string(nil), state.UnlockedFeatures...)
	copied.ComfortZones = append([]string(nil), state.ComfortZones...)
	return &copied, nil
}

func (s *MemoryStore) SaveRelationship(ctx context.Context, state *models.RelationshipState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	copied.UnlockedFeatures = append([]string(nil), state.UnlockedFeatures...)
	copied.ComfortZones = append([]string(nil), state.ComfortZones...)
	s.relationships[state.UserID] = &copied
	return nil
}

func (s *MemoryStore) SaveCrisisAudit(ctx context.Context, record *models.CrisisAuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	s.audits = append(s.audits, &stored)
	return nil
}

func (s *MemoryStore) SaveTechniqueRecord(ctx context.Context, record *models.TechniqueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	s.techniques = append(s.techniques, &stored)
	return nil
}

func (s *MemoryStore) CreateCareTrigger(ctx context.Context, trigger *models.CareTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *trigger
	s.triggers = append(s.triggers, &stored)
	return nil
}

// CrisisAudits returns the recorded audit entries, oldest first.
func (s *MemoryStore) CrisisAudits() []*models.CrisisAuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*models.CrisisAuditRecord(nil), s.audits...)
}

// TechniqueRecords returns the recorded telemetry entries, oldest first.
func (s *MemoryStore) TechniqueRecords() []*models.TechniqueRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*models.TechniqueRecord(nil), s.techniques...)
}

// CareTriggers returns the recorded follow-up triggers, oldest first.
func (s *MemoryStore) CareTriggers() []*models.CareTrigger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*models.CareTrigger(nil), s.triggers...)
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
