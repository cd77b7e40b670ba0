package crisis

import (
	"strings"

	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/models"
)

// Indicator category tags recorded in CrisisAssessment.MatchedIndicators.
const (
	IndicatorSelfHarm     = "self_harm"
	IndicatorPlanning     = "planning"
	IndicatorHopelessness = "hopelessness"
	IndicatorIntensity    = "emotional_intensity"
	IndicatorIsolation    = "isolation"
)

type category struct {
	tag      string
	weight   int
	patterns []string
}

// Pattern tables are fixed so assessments stay deterministic and auditable.
var categories = []category{
	{
		tag:    IndicatorSelfHarm,
		weight: 10,
		patterns: []string{
			"kill myself",
			"suicide",
			"suicidal",
			"end my life",
			"hurt myself",
			"self harm",
			"self-harm",
			"want to die",
			"better off dead",
			"end it all",
		},
	},
	{
		tag:    IndicatorPlanning,
		weight: 7,
		patterns: []string{
			"tonight",
			"going to",
			"this weekend",
			"have a plan",
			"made a plan",
			"wrote a note",
			"say goodbye",
			"saying goodbye",
			"give away my",
		},
	},
	{
		tag:    IndicatorHopelessness,
		weight: 5,
		patterns: []string{
			"hopeless",
			"no point",
			"pointless",
			"no future",
			"nothing matters",
			"no way out",
			"never get better",
			"can't go on",
			"cant go on",
			"give up",
		},
	},
	{
		tag:    IndicatorIntensity,
		weight: 4,
		patterns: []string{
			"can't take it",
			"cant take it",
			"unbearable",
			"overwhelmed",
			"desperate",
			"falling apart",
			"breaking down",
			"too much pain",
		},
	},
	{
		tag:    IndicatorIsolation,
		weight: 3,
		patterns: []string{
			"all alone",
			"completely alone",
			"nobody cares",
			"no one cares",
			"no one would notice",
			"nobody understands",
			"no one understands",
			"no friends",
		},
	},
}

// Level thresholds over the summed indicator weights.
const (
	criticalThreshold   = 15
	highThreshold       = 10
	mediumThreshold     = 5
	escalationThreshold = 10
)

// Scorer classifies a message's safety risk from weighted indicator
// categories. It is stateless; Assess is a pure function of its inputs.
type Scorer struct {
	logger *zap.Logger
}

func NewScorer(logger *zap.Logger) *Scorer {
	return &Scorer{logger: logger}
}

// Assess scores one message. recentMessages is accepted as context for
// future extension and never changes the score of the current message.
// Assess never fails open: any internal panic is recovered into a critical
// assessment with escalation required.
func (s *Scorer) Assess(message string, recentMessages []string) (assessment models.CrisisAssessment) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("crisis scorer panicked, failing closed",
				zap.Any("panic", r))
			assessment = models.CrisisAssessment{
				MessageRef:                  message,
				CrisisScore:                 criticalThreshold,
				CrisisLevel:                 models.CrisisCritical,
				RequiresImmediateEscalation: true,
			}
		}
	}()

	lowered := strings.ToLower(message)

	score := 0
	var matched []string
	seen := make(map[string]struct{})

	for _, cat := range categories {
		for _, pattern := range cat.patterns {
			if !strings.Contains(lowered, pattern) {
				continue
			}
			// The same literal match never counts twice, even if two
			// categories share a pattern.
			if _, dup := seen[pattern]; dup {
				continue
			}
			seen[pattern] = struct{}{}
			score += cat.weight
			matched = append(matched, cat.tag)
		}
	}

	return models.CrisisAssessment{
		MessageRef:                  message,
		MatchedIndicators:           matched,
		CrisisScore:                 score,
		CrisisLevel:                 levelForScore(score),
		RequiresImmediateEscalation: score >= escalationThreshold,
	}
}

func levelForScore(score int) models.CrisisLevel {
	switch {
	case score >= criticalThreshold:
		return models.CrisisCritical
	case score >= highThreshold:
		return models.CrisisHigh
	case score >= mediumThreshold:
		return models.CrisisMedium
	default:
		return models.CrisisLow
	}
}
