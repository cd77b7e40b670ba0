package generator

import (
	"context"
	"fmt"
)

// StaticGenerator is a deterministic Generator for tests and local runs
// without an API key.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (g *StaticGenerator) Generate(ctx context.Context, message string, signals Signals) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Sprintf("I hear you. You said %q. Tell me more about how that feels.", message), 1.0, nil
}
