package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
	"github.com/solacechat/engine/internal/storage"
)

// ErrValidation is returned for bad memory input. It is reported to the
// caller and never retried.
var ErrValidation = errors.New("invalid memory input")

// Store ranks and retrieves salient conversational facts about a user.
type Store struct {
	store  storage.MemoryStorage
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(store storage.MemoryStorage, logger *zap.Logger) *Store {
	return &Store{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

type AddInput struct {
	UserID           string
	Type             models.MemoryType
	Title            string
	Content          string
	EmotionalContext models.EmotionalContext
	ImportanceScore  float64
	Tags             []string
}

// Add records a new memory. ImportanceScore is clamped to [0,1] at write
// time; empty title or content is a validation error.
func (s *Store) Add(ctx context.Context, in AddInput) (*models.Memory, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	score := in.ImportanceScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	memory := &models.Memory{
		ID:               uuid.New().String(),
		UserID:           in.UserID,
		Type:             in.Type,
		Title:            in.Title,
		Content:          in.Content,
		EmotionalContext: in.EmotionalContext,
		ImportanceScore:  score,
		Tags:             in.Tags,
		IsActive:         true,
		CreatedAt:        s.now(),
	}

	if err := storage.Retry(ctx, func() error {
		return s.store.CreateMemory(ctx, memory)
	}); err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}

	s.logger.Debug("memory added",
		zap.String("memory_id", memory.ID),
		zap.String("user_id", memory.UserID),
		zap.String("type", string(memory.Type)))

	return memory, nil
}

// Relevant returns the user's active memories ordered by importance
// descending, ties broken by most recently referenced (never referenced
// sorts last), truncated to limit. It is side-effect free: retrieval alone
// does not count as a reference.
func (s *Store) Relevant(ctx context.Context, userID string, limit int) ([]*models.Memory, error) {
	memories, err := s.store.ListActiveMemories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].ImportanceScore != memories[j].ImportanceScore {
			return memories[i].ImportanceScore > memories[j].ImportanceScore
		}
		left, right := memories[i].LastReferencedAt, memories[j].LastReferencedAt
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return left.After(*right)
		}
	})

	if limit >= 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	return memories, nil
}

// MarkReferenced stamps a memory as referenced now. Idempotent.
func (s *Store) MarkReferenced(ctx context.Context, memoryID string) error {
	if err := storage.Retry(ctx, func() error {
		return s.store.MarkMemoryReferenced(ctx, memoryID, s.now())
	}); err != nil {
		return fmt.Errorf("failed to mark memory referenced: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a memory. The row is kept; this subsystem never
// hard-deletes.
func (s *Store) Deactivate(ctx context.Context, memoryID string) error {
	if err := storage.Retry(ctx, func() error {
		return s.store.DeactivateMemory(ctx, memoryID)
	}); err != nil {
		return fmt.Errorf("failed to deactivate memory: %w", err)
	}
	return nil
}

// GenerateCallbacks maps memories to conversational continuity phrases.
// Memory types without a template produce no callback. Output order mirrors
// input order.
func GenerateCallbacks(memories []*models.Memory) []string {
	var callbacks []string
	for _, m := range memories {
		switch m.Type {
		case models.MemoryConcern:
			callbacks = append(callbacks, fmt.Sprintf("How are you feeling about %s that we discussed?", m.Title))
		case models.MemoryGoal:
			callbacks = append(callbacks, fmt.Sprintf("I remember you wanted to work on %s. How's that going?", m.Title))
		case models.MemoryMilestone:
			callbacks = append(callbacks, fmt.Sprintf("Last time you achieved %s. That was wonderful!", m.Title))
		case models.MemoryPersonalDetail:
			callbacks = append(callbacks, fmt.Sprintf("I remember you mentioned %s.", m.Title))
		}
	}
	return callbacks
}
