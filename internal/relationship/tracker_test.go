package relationship

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
	"github.com/solacechat/engine/internal/storage"
)

func newTestTracker() (*Tracker, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewTracker(store, zap.NewNop()), store
}

func TestGet_LazilyCreatesDefault(t *testing.T) {
	tracker, _ := newTestTracker()

	state, err := tracker.Get(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", state.UserID)
	assert.Equal(t, MinTrustLevel, state.TrustLevel)
	assert.Equal(t, models.StageInitial, state.Stage)
	assert.Empty(t, state.UnlockedFeatures)
}

func TestUpdateTrust_ClampsToBounds(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		state, err := tracker.UpdateTrust(ctx, "user-1", 1.0)
		require.NoError(t, err)
		require.LessOrEqual(t, state.TrustLevel, MaxTrustLevel)
	}

	for i := 0; i < 100; i++ {
		state, err := tracker.UpdateTrust(ctx, "user-1", -3.0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, state.TrustLevel, MinTrustLevel)
	}
}

func TestUpdateTrust_CrossingIntoEstablished(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()

	require.NoError(t, store.SaveRelationship(ctx, &models.RelationshipState{
		UserID:     "user-1",
		TrustLevel: 2.9,
	}))

	state, err := tracker.UpdateTrust(ctx, "user-1", 0.2)
	require.NoError(t, err)

	assert.InDelta(t, 3.1, state.TrustLevel, 1e-9)
	assert.Equal(t, models.StageEstablished, state.Stage)
	assert.Contains(t, state.UnlockedFeatures, "personal_sharing")
}

func TestUpdateTrust_DeepTrustUnlocks(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()

	require.NoError(t, store.SaveRelationship(ctx, &models.RelationshipState{
		UserID:     "user-1",
		TrustLevel: 4.9,
	}))

	state, err := tracker.UpdateTrust(ctx, "user-1", 0.2)
	require.NoError(t, err)

	assert.Equal(t, models.StageDeepTrust, state.Stage)
	assert.Contains(t, state.UnlockedFeatures, "deeper_techniques")
	assert.Contains(t, state.UnlockedFeatures, "vulnerable_conversations")
	assert.Contains(t, state.UnlockedFeatures, "personal_sharing")
}

func TestUpdateTrust_UnlocksAreMonotonic(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()

	require.NoError(t, store.SaveRelationship(ctx, &models.RelationshipState{
		UserID:     "user-1",
		TrustLevel: 5,
	}))

	state, err := tracker.UpdateTrust(ctx, "user-1", 0.1)
	require.NoError(t, err)
	unlocked := len(state.UnlockedFeatures)
	require.Greater(t, unlocked, 0)

	// A later decrease must not strip earned features.
	state, err = tracker.UpdateTrust(ctx, "user-1", -4.0)
	require.NoError(t, err)

	assert.Equal(t, MinTrustLevel, state.TrustLevel)
	assert.Equal(t, models.StageInitial, state.Stage)
	assert.Len(t, state.UnlockedFeatures, unlocked)
}

func TestStageForTrust(t *testing.T) {
	cases := []struct {
		trust float64
		stage models.RelationshipStage
	}{
		{1, models.StageInitial},
		{1.9, models.StageInitial},
		{2, models.StageBuildingRapport},
		{2.9, models.StageBuildingRapport},
		{3, models.StageEstablished},
		{4.9, models.StageEstablished},
		{5, models.StageDeepTrust},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.stage, StageForTrust(tc.trust), "trust %v", tc.trust)
	}
}

func TestCanAccess(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()

	ok, err := tracker.CanAccess(ctx, "user-1", "active_listening")
	require.NoError(t, err)
	assert.True(t, ok, "base features are always accessible")

	ok, err = tracker.CanAccess(ctx, "user-1", "personal_sharing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveRelationship(ctx, &models.RelationshipState{
		UserID:           "user-1",
		TrustLevel:       3,
		UnlockedFeatures: []string{"personal_sharing"},
	}))

	ok, err = tracker.CanAccess(ctx, "user-1", "personal_sharing")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecordInteraction(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	require.NoError(t, tracker.RecordInteraction(ctx, "user-1"))
	require.NoError(t, tracker.RecordInteraction(ctx, "user-1"))

	state, err := tracker.Get(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, state.TotalInteractions)
	assert.False(t, state.LastInteractionAt.IsZero())
}

func TestUpdateTrust_NoLostUpdatesUnderConcurrency(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	const workers = 4
	const updates = 5

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < updates; j++ {
				_, err := tracker.UpdateTrust(ctx, "user-1", 0.1)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	state, err := tracker.Get(ctx, "user-1")
	require.NoError(t, err)

	// 1.0 start + 20 * 0.1, no update lost.
	assert.InDelta(t, 3.0, state.TrustLevel, 1e-9)
}
