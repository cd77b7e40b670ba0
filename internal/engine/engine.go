package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solacechat/engine/internal/contextual"
	"github.com/solacechat/engine/internal/crisis"
	"github.com/solacechat/engine/internal/generator"
	"github.com/solacechat/engine/internal/memory"
	"github.com/solacechat/engine/internal/models"
	"github.com/solacechat/engine/internal/pacing"
	"github.com/solacechat/engine/internal/relationship"
	"github.com/solacechat/engine/internal/storage"
)

// safetyMessage is pre-approved static text. Its delivery never depends on
// the generation collaborator.
const safetyMessage = "I'm really concerned about what you're sharing with me right now, and I want you to know that your safety matters. " +
	"If you are in immediate danger, please reach out right now: " +
	"call or text 988 (Suicide & Crisis Lifeline), text HOME to 741741 (Crisis Text Line), " +
	"or call your local emergency number. You don't have to face this alone."

// fallbackReply is used when the generation collaborator fails or times
// out. It is paced like any reply, so the degradation is invisible to the
// user.
const fallbackReply = "I'm here with you. I'm having a little trouble finding the right words just now, " +
	"but what you're sharing matters to me. Could you tell me a bit more about how you're feeling?"

const careTriggerDelay = 24 * time.Hour

type Config struct {
	MemoryLimit       int
	GenerationTimeout time.Duration
	TrustDeltaNormal  float64
	TrustDeltaCrisis  float64
	Timezone          *time.Location
	Profiles          map[string]models.TypingProfile
	DefaultProfile    models.TypingProfile
}

// Engine is the turn orchestrator: the only component invoked per inbound
// message. It composes the crisis scorer, memory store, relationship
// tracker, contextual modulator, pacing simulator and the external
// generation collaborator, and enforces their ordering and fail-safes.
type Engine struct {
	scorer        *crisis.Scorer
	memories      *memory.Store
	relationships *relationship.Tracker
	pacer         *pacing.Simulator
	generator     generator.Generator
	store         storage.Storage
	logger        *zap.Logger
	cfg           Config
	now           func() time.Time

	sessions *sessionRegistry
}

func New(
	scorer *crisis.Scorer,
	memories *memory.Store,
	relationships *relationship.Tracker,
	pacer *pacing.Simulator,
	gen generator.Generator,
	store storage.Storage,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = 5
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 20 * time.Second
	}
	if cfg.TrustDeltaNormal == 0 {
		cfg.TrustDeltaNormal = 0.1
	}
	if cfg.TrustDeltaCrisis == 0 {
		cfg.TrustDeltaCrisis = 0.2
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	return &Engine{
		scorer:        scorer,
		memories:      memories,
		relationships: relationships,
		pacer:         pacer,
		generator:     gen,
		store:         store,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
		sessions:      newSessionRegistry(logger),
	}
}

type TurnRequest struct {
	SessionID      string
	UserID         string
	TherapistID    string
	Message        string
	RecentMessages []string
}

type TurnResult struct {
	Assessment    models.CrisisAssessment
	Response      string
	FallbackUsed  bool
	CrisisEngaged bool
	Completed     bool
}

// ProcessTurn runs one full turn: barge-in, risk assessment, memory and
// relationship fetch, generation, contextual adaptation, paced delivery,
// then completion bookkeeping. Turns within a session are strictly
// sequential; onChunk receives the accumulated outgoing text.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest, onChunk func(partial string)) (*TurnResult, error) {
	log := e.logger.With(
		zap.String("session_id", req.SessionID),
		zap.String("user_id", req.UserID))

	sess := e.sessions.acquire(req.SessionID, req.UserID, req.TherapistID)
	sess.bargeIn()

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()
	done := make(chan struct{})
	sess.beginTurn(cancelTurn, done, e.now())
	defer sess.endTurn(done)

	// Risk assessment runs first, synchronously, before anything else.
	assessment := e.scorer.Assess(req.Message, req.RecentMessages)
	result := &TurnResult{
		Assessment:    assessment,
		CrisisEngaged: assessment.RequiresImmediateEscalation,
	}

	// The audit record survives barge-in: the assessment already happened.
	e.auditAssessment(context.WithoutCancel(ctx), req, assessment, log)

	prefix := ""
	if assessment.RequiresImmediateEscalation {
		log.Warn("crisis escalation engaged",
			zap.Int("crisis_score", assessment.CrisisScore),
			zap.String("crisis_level", string(assessment.CrisisLevel)))

		// Safety message is always the first chunk delivered.
		onChunk(safetyMessage)
		prefix = safetyMessage + "\n\n"

		e.requestFollowUp(context.WithoutCancel(ctx), req, log)
	}

	memories, state := e.fetchSignals(turnCtx, req.UserID, log)
	callbacks := memory.GenerateCallbacks(memories)

	stage := models.StageInitial
	var features []string
	if state != nil {
		stage = state.Stage
		features = state.UnlockedFeatures
	}

	snapshot := contextual.CurrentContext(e.now(), e.cfg.Timezone)

	genCtx, cancelGen := context.WithTimeout(turnCtx, e.cfg.GenerationTimeout)
	text, confidence, err := e.generator.Generate(genCtx, req.Message, generator.Signals{
		CrisisLevel:      assessment.CrisisLevel,
		Stage:            stage,
		UnlockedFeatures: features,
		Callbacks:        callbacks,
		Context:          snapshot,
	})
	cancelGen()

	fallbackUsed := false
	if err != nil {
		if turnCtx.Err() != nil {
			// Barge-in or caller cancellation: no output was produced, so
			// no bookkeeping applies.
			return result, turnCtx.Err()
		}
		log.Warn("generation failed, using local fallback", zap.Error(err))
		text = fallbackReply
		fallbackUsed = true
	} else {
		log.Debug("generation succeeded", zap.Float64("confidence", confidence))
	}

	if !assessment.RequiresImmediateEscalation {
		text = contextual.Adapt(text, snapshot)
	}

	deliver := onChunk
	if prefix != "" {
		deliver = func(partial string) {
			onChunk(prefix + partial)
		}
	}

	if err := e.pacer.Stream(turnCtx, text, e.profileFor(req.TherapistID), deliver); err != nil {
		// Cancelled mid-stream. Bookkeeping is tied to a completed
		// delivery, not a started one.
		log.Info("delivery cancelled mid-stream", zap.Error(err))
		return result, err
	}

	result.Response = prefix + text
	result.FallbackUsed = fallbackUsed
	result.Completed = true

	e.completeTurn(context.WithoutCancel(ctx), req, result, memories, log)
	return result, nil
}

// EndSession archives a session explicitly, cancelling any in-flight
// delivery.
func (e *Engine) EndSession(sessionID string) {
	e.sessions.end(sessionID)
}

// StartSessionSweeper launches the inactivity sweep task. It stops when
// ctx is cancelled.
func (e *Engine) StartSessionSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	go e.sessions.runSweeper(ctx, interval, maxIdle)
}

// fetchSignals loads relevant memories and relationship state in parallel.
// Either fetch failing degrades that signal to empty rather than aborting
// the turn.
func (e *Engine) fetchSignals(ctx context.Context, userID string, log *zap.Logger) ([]*models.Memory, *models.RelationshipState) {
	var (
		memories []*models.Memory
		state    *models.RelationshipState
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := e.memories.Relevant(gctx, userID, e.cfg.MemoryLimit)
		if err != nil {
			log.Warn("memory fetch failed", zap.Error(err))
			return nil
		}
		memories = m
		return nil
	})
	g.Go(func() error {
		s, err := e.relationships.Get(gctx, userID)
		if err != nil {
			log.Warn("relationship fetch failed", zap.Error(err))
			return nil
		}
		state = s
		return nil
	})
	_ = g.Wait()

	return memories, state
}

func (e *Engine) auditAssessment(ctx context.Context, req TurnRequest, assessment models.CrisisAssessment, log *zap.Logger) {
	record := &models.CrisisAuditRecord{
		ID:         uuid.New().String(),
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Assessment: assessment,
		CreatedAt:  e.now(),
	}

	err := storage.Retry(ctx, func() error {
		return e.store.SaveCrisisAudit(ctx, record)
	})
	if err != nil {
		// Operational alert. The safety message must still go out, so
		// this is never propagated.
		log.Error("crisis audit write failed",
			zap.Error(err),
			zap.String("audit_id", record.ID),
			zap.Int("crisis_score", assessment.CrisisScore))
	}
}

func (e *Engine) requestFollowUp(ctx context.Context, req TurnRequest, log *zap.Logger) {
	trigger := &models.CareTrigger{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Reason:    "crisis_escalation",
		DueAt:     e.now().Add(careTriggerDelay),
		CreatedAt: e.now(),
	}

	err := storage.Retry(ctx, func() error {
		return e.store.CreateCareTrigger(ctx, trigger)
	})
	if err != nil {
		log.Error("failed to create care trigger", zap.Error(err))
	}
}

// completeTurn applies the bookkeeping for a delivered turn. Each step is
// independent: one failing never blocks the others, and failures are
// logged, never surfaced to the user.
func (e *Engine) completeTurn(ctx context.Context, req TurnRequest, result *TurnResult, memories []*models.Memory, log *zap.Logger) {
	for _, m := range memories {
		if err := e.memories.MarkReferenced(ctx, m.ID); err != nil {
			log.Error("failed to mark memory referenced",
				zap.Error(err),
				zap.String("memory_id", m.ID))
		}
	}

	delta := e.cfg.TrustDeltaNormal
	technique := "supportive_conversation"
	if result.CrisisEngaged {
		delta = e.cfg.TrustDeltaCrisis
		technique = "crisis_support"
	}

	state, err := e.relationships.UpdateTrust(ctx, req.UserID, delta)
	if err != nil {
		log.Error("failed to update trust", zap.Error(err))
	}
	if err := e.relationships.RecordInteraction(ctx, req.UserID); err != nil {
		log.Error("failed to record interaction", zap.Error(err))
	}

	stage := models.StageInitial
	if state != nil {
		stage = state.Stage
	}
	record := &models.TechniqueRecord{
		ID:           uuid.New().String(),
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		Technique:    technique,
		CrisisLevel:  result.Assessment.CrisisLevel,
		Stage:        stage,
		FallbackUsed: result.FallbackUsed,
		CreatedAt:    e.now(),
	}
	err = storage.Retry(ctx, func() error {
		return e.store.SaveTechniqueRecord(ctx, record)
	})
	if err != nil {
		log.Error("failed to save technique record", zap.Error(err))
	}
}

func (e *Engine) profileFor(therapistID string) models.TypingProfile {
	if profile, exists := e.cfg.Profiles[therapistID]; exists {
		return profile
	}
	return e.cfg.DefaultProfile
}
