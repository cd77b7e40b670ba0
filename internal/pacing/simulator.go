package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
)

const (
	thinkingPause       = 800 * time.Millisecond
	thinkingProbability = 0.1
)

// Simulator turns a finished reply into a cancellable, human-paced
// character stream.
type Simulator struct {
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(logger *zap.Logger) *Simulator {
	return &Simulator{
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Stream emits text character-by-character through onChunk, each call
// receiving the accumulated partial text. Cancellation through ctx stops
// the stream immediately: no further onChunk calls are made and the pending
// timer is released.
func (s *Simulator) Stream(ctx context.Context, text string, profile models.TypingProfile, onChunk func(partial string)) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var partial []rune
	var previous rune

	for _, r := range text {
		delay := profile.BaseDelay
		if profile.CharacterVariation > 0 {
			jitter := (s.float64() - 0.5) * float64(profile.CharacterVariation)
			delay += time.Duration(jitter)
		}
		if isSentenceEnd(previous) {
			delay += profile.PunctuationPause
		}
		if profile.ThinkingPauses && s.float64() < thinkingProbability {
			delay += thinkingPause
		}
		if delay < 0 {
			delay = 0
		}

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
		}

		partial = append(partial, r)
		onChunk(string(partial))
		previous = r
	}

	return nil
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
