package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/rollback"
)

// CreateCheckpoint persists a pending checkpoint with the captured pre-state.
func (s *Store) CreateCheckpoint(ctx context.Context, cp *rollback.Checkpoint) error {
	const q = `
		INSERT INTO rollback_log (domain, operation, entity_id, previous_state, current_state, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`

	prev, err := json.Marshal(cp.PreviousState)
	if err != nil {
		return fmt.Errorf("marshal previous_state: %w", err)
	}
	curr, err := json.Marshal(cp.CurrentState)
	if err != nil {
		return fmt.Errorf("marshal current_state: %w", err)
	}

	err = s.pool.QueryRow(ctx, q,
		cp.Domain, cp.Operation, cp.EntityID, prev, curr, cp.Status, cp.CreatedAt,
	).Scan(&cp.ID)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint reads a checkpoint by ID.
func (s *Store) GetCheckpoint(ctx context.Context, id string) (*rollback.Checkpoint, error) {
	const q = `
		SELECT id, domain, operation, entity_id, previous_state, current_state, status, error, created_at, updated_at
		FROM rollback_log
		WHERE id = $1`

	var cp rollback.Checkpoint
	var prev, curr []byte
	var errMsg *string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&cp.ID, &cp.Domain, &cp.Operation, &cp.EntityID,
		&prev, &curr, &cp.Status, &errMsg, &cp.CreatedAt, &cp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("checkpoint %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	if errMsg != nil {
		cp.Error = *errMsg
	}
	if len(prev) > 0 {
		if err := json.Unmarshal(prev, &cp.PreviousState); err != nil {
			return nil, fmt.Errorf("unmarshal previous_state: %w", err)
		}
	}
	if len(curr) > 0 {
		if err := json.Unmarshal(curr, &cp.CurrentState); err != nil {
			return nil, fmt.Errorf("unmarshal current_state: %w", err)
		}
	}
	return &cp, nil
}

// UpdateCheckpoint writes the checkpoint's status, current state and error.
// Previous state is immutable once captured.
func (s *Store) UpdateCheckpoint(ctx context.Context, cp *rollback.Checkpoint) error {
	const q = `
		UPDATE rollback_log
		SET current_state = $2, status = $3, error = $4, updated_at = $5
		WHERE id = $1`

	curr, err := json.Marshal(cp.CurrentState)
	if err != nil {
		return fmt.Errorf("marshal current_state: %w", err)
	}

	tag, err := s.pool.Exec(ctx, q, cp.ID, curr, cp.Status, nullIfEmpty(cp.Error), cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update checkpoint %s: %w", cp.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("checkpoint %s: %w", cp.ID, domain.ErrNotFound)
	}
	return nil
}
