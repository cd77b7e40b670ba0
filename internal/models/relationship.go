package models

import "time"

type RelationshipStage string

const (
	StageInitial         RelationshipStage = "initial"
	StageBuildingRapport RelationshipStage = "building_rapport"
	StageEstablished     RelationshipStage = "established"
	StageDeepTrust       RelationshipStage = "deep_trust"
)

// RelationshipState tracks the evolving relationship with a user. One per
// user, long-lived. TrustLevel is bounded to [1,5]; Stage is always derived
// from TrustLevel and UnlockedFeatures only ever grows.
type RelationshipState struct {
	UserID            string            `json:"user_id"`
	TrustLevel        float64           `json:"trust_level"`
	Stage             RelationshipStage `json:"stage"`
	UnlockedFeatures  []string          `json:"unlocked_features"`
	ComfortZones      []string          `json:"comfort_zones"`
	LastInteractionAt time.Time         `json:"last_interaction_at"`
	TotalInteractions int               `json:"total_interactions"`
}
