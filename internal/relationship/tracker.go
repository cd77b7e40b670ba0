package relationship

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
	"github.com/solacechat/engine/internal/storage"
)

const (
	MinTrustLevel = 1.0
	MaxTrustLevel = 5.0
)

// Features available regardless of trust level.
var baseFeatures = []string{
	"active_listening",
	"validation",
	"grounding_exercises",
}

// Features unlocked when a stage is first reached. Unlocks are monotonic:
// a later trust decrease never strips an earned feature.
var stageUnlocks = map[models.RelationshipStage][]string{
	models.StageEstablished: {"personal_sharing"},
	models.StageDeepTrust:   {"deeper_techniques", "vulnerable_conversations"},
}

// Tracker owns all trust-level mutations. Reads and read-modify-write
// updates for a given user are serialized by a per-user lock so concurrent
// sessions (multi-device) cannot lose updates.
type Tracker struct {
	store  storage.RelationshipStorage
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTracker(store storage.RelationshipStorage, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (t *Tracker) userLock(userID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, exists := t.locks[userID]
	if !exists {
		lock = &sync.Mutex{}
		t.locks[userID] = lock
	}
	return lock
}

// StageForTrust derives the relationship stage from a trust level. The stage
// is never stored independently; it is recomputed on every read.
func StageForTrust(trustLevel float64) models.RelationshipStage {
	switch {
	case trustLevel >= 5:
		return models.StageDeepTrust
	case trustLevel >= 3:
		return models.StageEstablished
	case trustLevel >= 2:
		return models.StageBuildingRapport
	default:
		return models.StageInitial
	}
}

// Get returns the relationship state for a user, lazily creating the
// default state on first interaction.
func (t *Tracker) Get(ctx context.Context, userID string) (*models.RelationshipState, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return t.load(ctx, userID)
}

func (t *Tracker) load(ctx context.Context, userID string) (*models.RelationshipState, error) {
	state, err := t.store.GetRelationship(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		state = &models.RelationshipState{
			UserID:     userID,
			TrustLevel: MinTrustLevel,
		}
		if saveErr := storage.Retry(ctx, func() error {
			return t.store.SaveRelationship(ctx, state)
		}); saveErr != nil {
			return nil, fmt.Errorf("failed to create relationship state: %w", saveErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load relationship state: %w", err)
	}

	state.Stage = StageForTrust(state.TrustLevel)
	return state, nil
}

// UpdateTrust applies a trust delta, clamps to [1,5], recomputes the stage
// and grows unlocked features for any newly reached stage. The delta itself
// is decided by the caller.
func (t *Tracker) UpdateTrust(ctx context.Context, userID string, delta float64) (*models.RelationshipState, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := t.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	state.TrustLevel = clamp(state.TrustLevel+delta, MinTrustLevel, MaxTrustLevel)
	previous := state.Stage
	state.Stage = StageForTrust(state.TrustLevel)

	for _, feature := range stageUnlocks[state.Stage] {
		if !contains(state.UnlockedFeatures, feature) {
			state.UnlockedFeatures = append(state.UnlockedFeatures, feature)
		}
	}
	// deep_trust implies the established unlocks as well
	if state.Stage == models.StageDeepTrust {
		for _, feature := range stageUnlocks[models.StageEstablished] {
			if !contains(state.UnlockedFeatures, feature) {
				state.UnlockedFeatures = append(state.UnlockedFeatures, feature)
			}
		}
	}

	if state.Stage != previous {
		t.logger.Info("relationship stage changed",
			zap.String("user_id", userID),
			zap.String("from", string(previous)),
			zap.String("to", string(state.Stage)),
			zap.Float64("trust_level", state.TrustLevel))
	}

	if err := storage.Retry(ctx, func() error {
		return t.store.SaveRelationship(ctx, state)
	}); err != nil {
		return nil, fmt.Errorf("failed to save relationship state: %w", err)
	}

	return state, nil
}

// CanAccess reports whether a feature is available to the user, either from
// the unconditional base set or from earned unlocks.
func (t *Tracker) CanAccess(ctx context.Context, userID, feature string) (bool, error) {
	if contains(baseFeatures, feature) {
		return true, nil
	}

	state, err := t.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return contains(state.UnlockedFeatures, feature), nil
}

// RecordInteraction increments the interaction counter and stamps the last
// interaction time.
func (t *Tracker) RecordInteraction(ctx context.Context, userID string) error {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := t.load(ctx, userID)
	if err != nil {
		return err
	}

	state.TotalInteractions++
	state.LastInteractionAt = t.now()

	if err := storage.Retry(ctx, func() error {
		return t.store.SaveRelationship(ctx, state)
	}); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
