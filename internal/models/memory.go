package models

import (
	"time"
)

type MemoryType string

const (
	MemoryPersonalDetail MemoryType = "personal_detail"
	MemoryConcern        MemoryType = "concern"
	MemoryGoal           MemoryType = "goal"
	MemoryMilestone      MemoryType = "milestone"
	MemoryPreference     MemoryType = "preference"
	MemoryRelationship   MemoryType = "relationship"
	MemoryTrigger        MemoryType = "trigger"
	MemoryStrength       MemoryType = "strength"
)

// EmotionalContext captures the emotional framing a memory was recorded
// with. All fields are optional.
type EmotionalContext struct {
	Mood      string  `json:"mood,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Memory is a durable fact about a user. Soft-deleted via IsActive=false,
// never hard-deleted by this subsystem.
type Memory struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Type             MemoryType       `json:"type"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	EmotionalContext EmotionalContext `json:"emotional_context"`
	ImportanceScore  float64          `json:"importance_score"`
	Tags             []string         `json:"tags"`
	IsActive         bool             `json:"is_active"`
	LastReferencedAt *time.Time       `json:"last_referenced_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}
