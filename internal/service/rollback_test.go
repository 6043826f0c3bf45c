package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/rollback"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

func newRollbackService(store *mockStore) *RollbackService {
	return NewRollback(store, NewAudit(store, testLogger()), testLogger())
}

func TestCheckpointLifecycle(t *testing.T) {
	store := newMockStore()
	var saved *rollback.Checkpoint
	store.createCpFn = func(cp *rollback.Checkpoint) error {
		cp.ID = "cp-1"
		saved = cp
		return nil
	}
	store.getCpFn = func(id string) (*rollback.Checkpoint, error) { return saved, nil }
	store.updateCpFn = func(cp *rollback.Checkpoint) error {
		saved = cp
		return nil
	}
	s := newRollbackService(store)

	id, err := s.CreateCheckpoint(context.Background(), DomainTicket, "update_status", "t-1",
		map[string]any{"id": "t-1", "status": "open"})
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}
	if saved.Status != rollback.StatusPending {
		t.Errorf("status = %s, want pending", saved.Status)
	}

	if err := s.Commit(context.Background(), id, map[string]any{"id": "t-1", "status": "in_progress"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if saved.Status != rollback.StatusCompleted {
		t.Errorf("status = %s, want completed", saved.Status)
	}
	if saved.PreviousState["status"] != "open" {
		t.Errorf("previous state mutated: %v", saved.PreviousState)
	}
}

func TestRollbackRestoresPreviousState(t *testing.T) {
	store := newMockStore()
	cp := &rollback.Checkpoint{
		ID:            "cp-1",
		Domain:        DomainTicket,
		Operation:     "update_status",
		EntityID:      "t-1",
		PreviousState: map[string]any{"id": "t-1", "status": "open", "title": "Printer jam"},
		CurrentState:  map[string]any{"id": "t-1", "status": "in_progress"},
		Status:        rollback.StatusCompleted,
	}
	store.getCpFn = func(id string) (*rollback.Checkpoint, error) { return cp, nil }
	store.updateCpFn = func(c *rollback.Checkpoint) error {
		cp = c
		return nil
	}
	var wroteTable string
	var wroteData database.Row
	store.updateFn = func(table string, data database.Row, conds []plan.Condition) ([]database.Row, error) {
		wroteTable, wroteData = table, data
		return []database.Row{data}, nil
	}
	s := newRollbackService(store)

	if err := s.Rollback(context.Background(), "cp-1"); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if wroteTable != "tickets" || wroteData["status"] != "open" {
		t.Errorf("restored %s %v", wroteTable, wroteData)
	}
	if _, ok := wroteData["id"]; ok {
		t.Error("restore wrote the id column back")
	}
	if cp.Status != rollback.StatusCompleted {
		t.Errorf("checkpoint status = %s", cp.Status)
	}
	if store.callCount("AppendAudit") != 1 {
		t.Error("rollback was not audited")
	}
}

func TestRollbackTeamRevertsMembershipOnly(t *testing.T) {
	store := newMockStore()
	cp := &rollback.Checkpoint{
		ID:            "cp-2",
		Domain:        DomainTeam,
		Operation:     "assign_member",
		EntityID:      "member-1",
		PreviousState: map[string]any{"id": "member-1", "team_id": "team-old", "name": "Dana"},
		Status:        rollback.StatusCompleted,
	}
	store.getCpFn = func(id string) (*rollback.Checkpoint, error) { return cp, nil }
	var revertedMember, revertedTeam string
	store.assignFn = func(memberID, teamID string) error {
		revertedMember, revertedTeam = memberID, teamID
		return nil
	}
	s := newRollbackService(store)

	if err := s.Rollback(context.Background(), "cp-2"); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if revertedMember != "member-1" || revertedTeam != "team-old" {
		t.Errorf("reverted %s to %s", revertedMember, revertedTeam)
	}
	if store.callCount("Update") != 0 {
		t.Error("team rollback used a raw update instead of the membership procedure")
	}
}

func TestRollbackWithoutStateIsRejected(t *testing.T) {
	store := newMockStore()
	store.getCpFn = func(id string) (*rollback.Checkpoint, error) {
		return &rollback.Checkpoint{ID: id, Domain: DomainTicket, Operation: "create"}, nil
	}
	s := newRollbackService(store)

	if err := s.Rollback(context.Background(), "cp-3"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestRollbackRevertFailureMarksCheckpoint(t *testing.T) {
	store := newMockStore()
	cp := &rollback.Checkpoint{
		ID:            "cp-4",
		Domain:        DomainTicket,
		EntityID:      "t-1",
		PreviousState: map[string]any{"id": "t-1", "status": "open"},
		Status:        rollback.StatusCompleted,
	}
	store.getCpFn = func(id string) (*rollback.Checkpoint, error) { return cp, nil }
	store.updateFn = func(table string, data database.Row, conds []plan.Condition) ([]database.Row, error) {
		return nil, errors.New("connection reset")
	}
	var marked *rollback.Checkpoint
	store.updateCpFn = func(c *rollback.Checkpoint) error {
		marked = c
		return nil
	}
	s := newRollbackService(store)

	if err := s.Rollback(context.Background(), "cp-4"); err == nil {
		t.Fatal("Rollback succeeded despite store failure")
	}
	if marked == nil || marked.Status != rollback.StatusFailed || marked.Error == "" {
		t.Errorf("checkpoint after failed revert = %+v", marked)
	}
}
