package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type gptReply struct {
	Response   string  `json:"response"`
	Technique  string  `json:"technique"`
	Confidence float64 `json:"confidence"`
}

// GPTGenerator produces therapeutic replies through the OpenAI chat API.
type GPTGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTGenerator(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTGenerator {
	return &GPTGenerator{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (g *GPTGenerator) Generate(ctx context.Context, message string, signals Signals) (string, float64, error) {
	prompt := buildPrompt(message, signals)

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   g.maxTokens,
			Temperature: float32(g.temperature),
		},
	)
	if err != nil {
		g.logger.Error("failed to get model response", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return "", 0, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var reply gptReply
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		g.logger.Error("failed to parse model response",
			zap.Error(err),
			zap.String("response", raw))
		return "", 0, fmt.Errorf("%w: malformed response", ErrUnavailable)
	}

	return reply.Response, reply.Confidence, nil
}

func buildPrompt(message string, signals Signals) string {
	var b strings.Builder

	b.WriteString("You are a warm, supportive therapeutic companion.\n")
	fmt.Fprintf(&b, "Relationship stage: %s. Crisis level: %s.\n", signals.Stage, signals.CrisisLevel)
	fmt.Fprintf(&b, "It is %s (%s)", signals.Context.TimeOfDay, signals.Context.Season)
	if signals.Context.IsWeekend {
		b.WriteString(", on a weekend")
	}
	b.WriteString(".\n")

	if len(signals.UnlockedFeatures) > 0 {
		fmt.Fprintf(&b, "You may use these techniques: %s.\n", strings.Join(signals.UnlockedFeatures, ", "))
	}
	if len(signals.Callbacks) > 0 {
		b.WriteString("You may weave in at most one of these continuity prompts if natural:\n")
		for _, cb := range signals.Callbacks {
			fmt.Fprintf(&b, "- %s\n", cb)
		}
	}

	b.WriteString(`
Return the response as a JSON object with this structure:
{
    "response": "your_reply_to_the_user",
    "technique": "primary_technique_used",
    "confidence": 0.0
}

`)
	fmt.Fprintf(&b, "User message: %s", message)
	return b.String()
}
