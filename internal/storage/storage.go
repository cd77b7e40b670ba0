package storage

import (
	"context"
	"errors"
	"time"

	"github.com/solacechat/engine/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the persistence collaborator for the orchestration engine.
// Implementations must be safe for concurrent use.
type Storage interface {
	MemoryStorage
	RelationshipStorage

	SaveCrisisAudit(ctx context.Context, record *models.CrisisAuditRecord) error
	SaveTechniqueRecord(ctx context.Context, record *models.TechniqueRecord) error
	CreateCareTrigger(ctx context.Context, trigger *models.CareTrigger) error

	Close() error
}

type MemoryStorage interface {
	CreateMemory(ctx context.Context, memory *models.Memory) error
	ListActiveMemories(ctx context.Context, userID string) ([]*models.Memory, error)
	MarkMemoryReferenced(ctx context.Context, memoryID string, at time.Time) error
	DeactivateMemory(ctx context.Context, memoryID string) error
}

type RelationshipStorage interface {
	GetRelationship(ctx context.Context, userID string) (*models.RelationshipState, error)
	SaveRelationship(ctx context.Context, state *models.RelationshipState) error
}

// Retry runs op and, if it fails, retries once after a short backoff.
// Persistence collaborators get exactly one retry; generation never does.
func Retry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(150 * time.Millisecond):
	}
	return op()
}
