package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/solacechat/engine/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) CreateMemory(ctx context.Context, memory *models.Memory) error {
	emotional, err := json.Marshal(memory.EmotionalContext)
	if err != nil {
		return fmt.Errorf("error encoding emotional context: %w", err)
	}

	query := `
		INSERT INTO memories (id, user_id, memory_type, title, content, emotional_context,
			importance_score, tags, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.db.ExecContext(ctx, query,
		memory.ID,
		memory.UserID,
		memory.Type,
		memory.Title,
		memory.Content,
		emotional,
		memory.ImportanceScore,
		pq.Array(memory.Tags),
		memory.IsActive,
		memory.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating memory: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListActiveMemories(ctx context.Context, userID string) ([]*models.Memory, error) {
	query := `
		SELECT id, user_id, memory_type, title, content, emotional_context,
			importance_score, tags, is_active, last_referenced_at, created_at
		FROM memories
		WHERE user_id = $1 AND is_active = TRUE`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying memories: %w", err)
	}
	defer rows.Close()

	var memories []*models.Memory
	for rows.Next() {
		memory := &models.Memory{}
		var emotional []byte
		var lastReferenced sql.NullTime

		err := rows.Scan(
			&memory.ID,
			&memory.UserID,
			&memory.Type,
			&memory.Title,
			&memory.Content,
			&emotional,
			&memory.ImportanceScore,
			pq.Array(&memory.Tags),
			&memory.IsActive,
			&lastReferenced,
			&memory.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning memory: %w", err)
		}

		if len(emotional) > 0 {
			if err := json.Unmarshal(emotional, &memory.EmotionalContext); err != nil {
				return nil, fmt.Errorf("error decoding emotional context: %w", err)
			}
		}
		if lastReferenced.Valid {
			when := lastReferenced.Time
			memory.LastReferencedAt = &when
		}

		memories = append(memories, memory)
	}

	return memories, rows.Err()
}

func (s *PostgresStore) MarkMemoryReferenced(ctx context.Context, memoryID string, at time.Time) error {
	query := `UPDATE memories SET last_referenced_at = $1 WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, at, memoryID); err != nil {
		return fmt.Errorf("error marking memory referenced: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeactivateMemory(ctx context.Context, memoryID string) error {
	query := `UPDATE memories SET is_active = FALSE WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, memoryID); err != nil {
		return fmt.Errorf("error deactivating memory: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRelationship(ctx context.Context, userID string) (*models.RelationshipState, error) {
	query := `
		SELECT user_id, trust_level, unlocked_features, comfort_zones,
			last_interaction_at, total_interactions
		FROM relationships
		WHERE user_id = $1`

	state := &models.RelationshipState{}
	var lastInteraction sql.NullTime

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID,
		&state.TrustLevel,
		pq.Array(&state.UnlockedFeatures),
		pq.Array(&state.ComfortZones),
		&lastInteraction,
		&state.TotalInteractions,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying relationship: %w", err)
	}

	if lastInteraction.Valid {
		state.LastInteractionAt = lastInteraction.Time
	}
	return state, nil
}

func (s *PostgresStore) SaveRelationship(ctx context.Context, state *models.RelationshipState) error {
	query := `
		INSERT INTO relationships (user_id, trust_level, unlocked_features, comfort_zones,
			last_interaction_at, total_interactions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			trust_level = EXCLUDED.trust_level,
			unlocked_features = EXCLUDED.unlocked_features,
			comfort_zones = EXCLUDED.comfort_zones,
			last_interaction_at = EXCLUDED.last_interaction_at,
			total_interactions = EXCLUDED.total_interactions`

	_, err := s.db.ExecContext(ctx, query,
		state.UserID,
		state.TrustLevel,
		pq.Array(state.UnlockedFeatures),
		pq.Array(state.ComfortZones),
		state.LastInteractionAt,
		state.TotalInteractions,
	)
	if err != nil {
		return fmt.Errorf("error saving relationship: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCrisisAudit(ctx context.Context, record *models.CrisisAuditRecord) error {
	query := `
		INSERT INTO crisis_audits (id, session_id, user_id, matched_indicators,
			crisis_score, crisis_level, requires_escalation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.SessionID,
		record.UserID,
		pq.Array(record.Assessment.MatchedIndicators),
		record.Assessment.CrisisScore,
		record.Assessment.CrisisLevel,
		record.Assessment.RequiresImmediateEscalation,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving crisis audit: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveTechniqueRecord(ctx context.Context, record *models.TechniqueRecord) error {
	query := `
		INSERT INTO technique_records (id, session_id, user_id, technique,
			crisis_level, stage, fallback_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.SessionID,
		record.UserID,
		record.Technique,
		record.CrisisLevel,
		record.Stage,
		record.FallbackUsed,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving technique record: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCareTrigger(ctx context.Context, trigger *models.CareTrigger) error {
	query := `
		INSERT INTO care_triggers (id, session_id, user_id, reason, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.SessionID,
		trigger.UserID,
		trigger.Reason,
		trigger.DueAt,
		trigger.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating care trigger: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
