package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/rollback"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// revertTables maps a checkpoint domain to the table its revert writes.
var revertTables = map[string]string{
	DomainTicket: "tickets",
	DomainKB:     "articles",
	DomainTeam:   "members",
}

// RollbackService captures pre-mutation checkpoints and restores records from
// them. Checkpoints are never deleted; a rolled-back checkpoint is re-marked
// rather than removed.
type RollbackService struct {
	store  database.Store
	audit  *AuditService
	logger *slog.Logger
	now    func() time.Time
}

func NewRollback(store database.Store, auditSvc *AuditService, logger *slog.Logger) *RollbackService {
	return &RollbackService{store: store, audit: auditSvc, logger: logger, now: time.Now}
}

// CreateCheckpoint persists the pre-mutation state and returns the checkpoint
// ID. For inserts there is no prior state and entityID is empty.
func (s *RollbackService) CreateCheckpoint(ctx context.Context, domainName, operation, entityID string, previous map[string]any) (string, error) {
	cp := &rollback.Checkpoint{
		Domain:        domainName,
		Operation:     operation,
		EntityID:      entityID,
		PreviousState: previous,
		Status:        rollback.StatusPending,
		CreatedAt:     s.now().UTC(),
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateCheckpoint(ctx, cp); err != nil {
		return "", fmt.Errorf("create checkpoint: %w", err)
	}
	return cp.ID, nil
}

// Commit marks a checkpoint completed and records the post-mutation state.
func (s *RollbackService) Commit(ctx context.Context, id string, current map[string]any) error {
	cp, err := s.store.GetCheckpoint(ctx, id)
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	cp.Status = rollback.StatusCompleted
	cp.CurrentState = current
	cp.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("commit checkpoint %s: %w", id, err)
	}
	return nil
}

// Fail marks a checkpoint failed with the causing error.
func (s *RollbackService) Fail(ctx context.Context, id string, cause error) error {
	cp, err := s.store.GetCheckpoint(ctx, id)
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	cp.Status = rollback.StatusFailed
	if cause != nil {
		cp.Error = cause.Error()
	}
	cp.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("mark checkpoint %s failed: %w", id, err)
	}
	return nil
}

// Rollback restores the checkpointed record to its previous state. Ticket and
// article checkpoints write the saved state back verbatim; team checkpoints
// revert only the membership assignment through the store procedure so
// derived membership state stays consistent. The revert itself is audited.
func (s *RollbackService) Rollback(ctx context.Context, id string) error {
	cp, err := s.store.GetCheckpoint(ctx, id)
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	if len(cp.PreviousState) == 0 || cp.EntityID == "" {
		return fmt.Errorf("%w: checkpoint %s has no restorable state", domain.ErrValidation, id)
	}

	table, ok := revertTables[cp.Domain]
	if !ok {
		return fmt.Errorf("%w: unknown checkpoint domain %q", domain.ErrValidation, cp.Domain)
	}

	switch cp.Domain {
	case DomainTeam:
		teamID, _ := cp.PreviousState["team_id"].(string)
		if err := s.store.AssignMemberToTeam(ctx, cp.EntityID, teamID); err != nil {
			return s.revertFailed(ctx, cp, fmt.Errorf("revert membership of %s: %w", cp.EntityID, err))
		}
	default:
		data := writableState(cp.PreviousState)
		conds := []plan.Condition{{Field: "id", Value: cp.EntityID, Kind: entity.FormatUUID}}
		if _, err := s.store.Update(ctx, table, data, conds); err != nil {
			return s.revertFailed(ctx, cp, fmt.Errorf("restore %s %s: %w", table, cp.EntityID, err))
		}
	}

	cp.Status = rollback.StatusCompleted
	cp.Error = ""
	cp.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("re-mark checkpoint %s: %w", id, err)
	}

	if _, err := s.audit.Record(ctx, cp.Domain, "rollback", table, "", cp.CurrentState, cp.PreviousState); err != nil {
		return err
	}
	s.logger.Info("checkpoint rolled back", "checkpoint_id", id, "domain", cp.Domain, "entity_id", cp.EntityID)
	return nil
}

func (s *RollbackService) revertFailed(ctx context.Context, cp *rollback.Checkpoint, cause error) error {
	cp.Status = rollback.StatusFailed
	cp.Error = cause.Error()
	cp.UpdatedAt = s.now().UTC()
	if uerr := s.store.UpdateCheckpoint(ctx, cp); uerr != nil {
		s.logger.Error("checkpoint update after failed revert", "checkpoint_id", cp.ID, "error", uerr)
	}
	return cause
}

// writableState strips columns a restore must not write back.
func writableState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		switch k {
		case "id", "created_at", "updated_at", "reference":
			continue
		}
		out[k] = v
	}
	return out
}
