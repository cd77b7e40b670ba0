package generator

import (
	"context"
	"errors"

	"github.com/solacechat/engine/internal/contextual"
	"github.com/solacechat/engine/internal/models"
)

var (
	// ErrTimeout means the generation backend missed its deadline. The
	// caller falls back immediately; generation is never retried first.
	ErrTimeout = errors.New("generation collaborator timed out")
	// ErrUnavailable means the backend failed hard. Same fallback policy
	// as a timeout.
	ErrUnavailable = errors.New("generation collaborator unavailable")
)

// Signals carries the control-plane context the orchestrator has assembled
// for one turn.
type Signals struct {
	CrisisLevel      models.CrisisLevel
	Stage            models.RelationshipStage
	UnlockedFeatures []string
	Callbacks        []string
	Context          contextual.Snapshot
}

// Generator is the external model collaborator. Implementations must honor
// the context deadline.
type Generator interface {
	Generate(ctx context.Context, message string, signals Signals) (text string, confidence float64, err error)
}
