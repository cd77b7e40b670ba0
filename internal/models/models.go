package models

import "time"

type CrisisLevel string

const (
	CrisisLow      CrisisLevel = "low"
	CrisisMedium   CrisisLevel = "medium"
	CrisisHigh     CrisisLevel = "high"
	CrisisCritical CrisisLevel = "critical"
)

// CrisisAssessment is the result of scoring one message. Produced fresh for
// every message and immutable once produced.
type CrisisAssessment struct {
	MessageRef                  string      `json:"message_ref"`
	MatchedIndicators           []string    `json:"matched_indicators"`
	CrisisScore                 int         `json:"crisis_score"`
	CrisisLevel                 CrisisLevel `json:"crisis_level"`
	RequiresImmediateEscalation bool        `json:"requires_immediate_escalation"`
}

// TypingProfile configures the pacing simulator. Selected per therapist
// personality, read-only at runtime.
type TypingProfile struct {
	BaseDelay          time.Duration `json:"base_delay_ms"`
	CharacterVariation time.Duration `json:"character_variation_ms"`
	PunctuationPause   time.Duration `json:"punctuation_pause_ms"`
	ThinkingPauses     bool          `json:"thinking_pauses_enabled"`
}

// CrisisAuditRecord is the immutable audit entry written for every
// assessment.
type CrisisAuditRecord struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"session_id"`
	UserID     string           `json:"user_id"`
	Assessment CrisisAssessment `json:"assessment"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TechniqueRecord is the telemetry entry emitted after a completed turn.
type TechniqueRecord struct {
	ID           string            `json:"id"`
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	Technique    string            `json:"technique"`
	CrisisLevel  CrisisLevel       `json:"crisis_level"`
	Stage        RelationshipStage `json:"stage"`
	FallbackUsed bool              `json:"fallback_used"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CareTrigger requests a proactive follow-up after a crisis escalation.
type CareTrigger struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}
