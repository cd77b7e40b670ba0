package crisis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
)

func newTestScorer() *Scorer {
	return NewScorer(zap.NewNop())
}

func TestAssess_CriticalMessage(t *testing.T) {
	scorer := newTestScorer()

	assessment := scorer.Assess("I want to kill myself tonight", nil)

	// "kill myself" (10) + "tonight" (7)
	assert.Equal(t, 17, assessment.CrisisScore)
	assert.Equal(t, models.CrisisCritical, assessment.CrisisLevel)
	assert.True(t, assessment.RequiresImmediateEscalation)
	assert.Contains(t, assessment.MatchedIndicators, IndicatorSelfHarm)
	assert.Contains(t, assessment.MatchedIndicators, IndicatorPlanning)
}

func TestAssess_BenignMessage(t *testing.T) {
	scorer := newTestScorer()

	assessment := scorer.Assess("I had a good day", nil)

	assert.Equal(t, 0, assessment.CrisisScore)
	assert.Equal(t, models.CrisisLow, assessment.CrisisLevel)
	assert.False(t, assessment.RequiresImmediateEscalation)
	assert.Empty(t, assessment.MatchedIndicators)
}

func TestAssess_SelfHarmPatternsAlwaysEscalate(t *testing.T) {
	scorer := newTestScorer()

	for _, pattern := range categories[0].patterns {
		assessment := scorer.Assess("sometimes I think about "+pattern, nil)

		require.GreaterOrEqual(t, assessment.CrisisScore, 10, "pattern %q", pattern)
		require.Contains(t,
			[]models.CrisisLevel{models.CrisisHigh, models.CrisisCritical},
			assessment.CrisisLevel, "pattern %q", pattern)
		require.True(t, assessment.RequiresImmediateEscalation, "pattern %q", pattern)
	}
}

func TestAssess_CaseInsensitive(t *testing.T) {
	scorer := newTestScorer()

	assessment := scorer.Assess("Everything feels HOPELESS", nil)

	assert.Equal(t, 5, assessment.CrisisScore)
	assert.Equal(t, models.CrisisMedium, assessment.CrisisLevel)
	assert.False(t, assessment.RequiresImmediateEscalation)
}

func TestAssess_SameLiteralNotDoubleCounted(t *testing.T) {
	scorer := newTestScorer()

	once := scorer.Assess("everything is hopeless", nil)
	twice := scorer.Assess("hopeless, just hopeless", nil)

	assert.Equal(t, once.CrisisScore, twice.CrisisScore)
}

func TestAssess_MultipleCategoriesAccumulate(t *testing.T) {
	scorer := newTestScorer()

	assessment := scorer.Assess("it's hopeless, I feel overwhelmed and nobody cares", nil)

	// hopelessness (5) + intensity (4) + isolation (3)
	assert.Equal(t, 12, assessment.CrisisScore)
	assert.Equal(t, models.CrisisHigh, assessment.CrisisLevel)
	assert.True(t, assessment.RequiresImmediateEscalation)
}

func TestAssess_RecentMessagesDoNotChangeScore(t *testing.T) {
	scorer := newTestScorer()

	without := scorer.Assess("I had a good day", nil)
	with := scorer.Assess("I had a good day", []string{"I want to kill myself"})

	assert.Equal(t, without.CrisisScore, with.CrisisScore)
	assert.Equal(t, without.CrisisLevel, with.CrisisLevel)
}

func TestLevelForScore_Thresholds(t *testing.T) {
	cases := []struct {
		score int
		level models.CrisisLevel
	}{
		{0, models.CrisisLow},
		{4, models.CrisisLow},
		{5, models.CrisisMedium},
		{9, models.CrisisMedium},
		{10, models.CrisisHigh},
		{14, models.CrisisHigh},
		{15, models.CrisisCritical},
		{40, models.CrisisCritical},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.level, levelForScore(tc.score), "score %d", tc.score)
	}
}
