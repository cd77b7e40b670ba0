package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solacechat/engine/internal/models"
)

func TestMemoryStore_RelationshipRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetRelationship(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	state := &models.RelationshipState{
		UserID:           "u1",
		TrustLevel:       2.5,
		UnlockedFeatures: []string{"personal_sharing"},
	}
	require.NoError(t, store.SaveRelationship(ctx, state))

	got, err := store.GetRelationship(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.TrustLevel)
	assert.Equal(t, []string{"personal_sharing"}, got.UnlockedFeatures)

	// returned state is a copy; mutating it must not affect the store
	got.UnlockedFeatures[0] = "mutated"
	again, err := store.GetRelationship(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "personal_sharing", again.UnlockedFeatures[0])
}

func TestMemoryStore_MemoryLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	m := &models.Memory{
		ID:       "m1",
		UserID:   "u1",
		Type:     models.MemoryConcern,
		Title:    "t",
		Content:  "c",
		IsActive: true,
	}
	require.NoError(t, store.CreateMemory(ctx, m))

	active, err := store.ListActiveMemories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Nil(t, active[0].LastReferencedAt)

	when := time.Now()
	require.NoError(t, store.MarkMemoryReferenced(ctx, "m1", when))

	active, err = store.ListActiveMemories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].LastReferencedAt)
	assert.True(t, active[0].LastReferencedAt.Equal(when))

	require.NoError(t, store.DeactivateMemory(ctx, "m1"))
	active, err = store.ListActiveMemories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)
}
