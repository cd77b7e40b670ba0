package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
)

var instantProfile = models.TypingProfile{}

func TestStream_EmitsGrowingPartials(t *testing.T) {
	sim := NewSimulator(zap.NewNop())

	var chunks []string
	err := sim.Stream(context.Background(), "Hi there.", instantProfile, func(partial string) {
		chunks = append(chunks, partial)
	})
	require.NoError(t, err)

	require.Len(t, chunks, len("Hi there."))
	assert.Equal(t, "H", chunks[0])
	assert.Equal(t, "Hi", chunks[1])
	assert.Equal(t, "Hi there.", chunks[len(chunks)-1])
}

func TestStream_EmptyText(t *testing.T) {
	sim := NewSimulator(zap.NewNop())

	calls := 0
	err := sim.Stream(context.Background(), "", instantProfile, func(string) { calls++ })
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestStream_CancellationStopsChunks(t *testing.T) {
	sim := NewSimulator(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	profile := models.TypingProfile{BaseDelay: 5 * time.Millisecond}

	var chunks []string
	err := sim.Stream(ctx, "a long reply that should be interrupted", profile, func(partial string) {
		chunks = append(chunks, partial)
		if len(chunks) == 3 {
			cancel()
		}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, chunks, 3, "no chunks may be emitted after cancellation")
}

func TestStream_AlreadyCancelled(t *testing.T) {
	sim := NewSimulator(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	profile := models.TypingProfile{BaseDelay: time.Millisecond}

	calls := 0
	err := sim.Stream(ctx, "hello", profile, func(string) { calls++ })

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestStream_HonorsUnicode(t *testing.T) {
	sim := NewSimulator(zap.NewNop())

	var last string
	err := sim.Stream(context.Background(), "héllo 🌙", instantProfile, func(partial string) {
		last = partial
	})
	require.NoError(t, err)
	assert.Equal(t, "héllo 🌙", last)
}
