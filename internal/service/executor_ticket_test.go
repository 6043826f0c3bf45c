package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
)

const ticketUUID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

func ticketRouting(op string, params map[string]any) *RoutingResult {
	if params == nil {
		params = map[string]any{}
	}
	return &RoutingResult{Domain: DomainTicket, Operation: op, Urgency: "medium", Parameters: params}
}

func TestTicketCreateBuildsBatchPlan(t *testing.T) {
	e := NewTicketExecutor(newMockStore())
	res := ticketRouting("create", map[string]any{
		"title": "Printer offline in reception",
		"query": "the reception printer is offline, needs someone who speaks french",
		"skills": []entity.SkillRef{
			{Name: "french", Proficiency: 4},
			{Name: "hardware", Proficiency: team.DefaultProficiency},
		},
	})

	p, err := e.Build(context.Background(), res)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Action != plan.ActionInsert || p.Table != "tickets" {
		t.Fatalf("plan = %s %s", p.Action, p.Table)
	}
	if p.Data["status"] != string(ticket.StatusOpen) {
		t.Errorf("new ticket status = %v, want open", p.Data["status"])
	}
	if len(p.Batch) != 2 {
		t.Fatalf("batch = %d, want 2 skill inserts", len(p.Batch))
	}
	for _, sub := range p.Batch {
		if sub.Data["ticket_id"] != plan.ParentIDPlaceholder {
			t.Errorf("batch ticket_id = %v, want placeholder", sub.Data["ticket_id"])
		}
	}
}

func TestTicketCreateDefaultsPriorityFromUrgency(t *testing.T) {
	e := NewTicketExecutor(newMockStore())
	res := ticketRouting("create", map[string]any{"title": "VPN down", "query": "vpn is down"})
	res.Urgency = "high"

	p, err := e.Build(context.Background(), res)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Data["priority"] != "high" {
		t.Errorf("priority = %v, want high from urgency", p.Data["priority"])
	}
}

func TestTicketStatusUpdateChecksTransition(t *testing.T) {
	store := newMockStore()
	store.ticketFn = func(id string) (*ticket.Ticket, error) {
		return &ticket.Ticket{ID: id, Status: ticket.StatusOpen}, nil
	}
	e := NewTicketExecutor(store)

	// open -> resolved is not a legal edge.
	res := ticketRouting("update_status", map[string]any{"ticket_id": ticketUUID, "status": "resolved"})
	_, err := e.Build(context.Background(), res)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	// open -> in_progress is legal.
	res = ticketRouting("update_status", map[string]any{"ticket_id": ticketUUID, "status": "in_progress"})
	p, err := e.Build(context.Background(), res)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Data["status"] != "in_progress" {
		t.Errorf("plan status = %v", p.Data["status"])
	}
}

func TestTicketSameStatusSkipsTransitionCheck(t *testing.T) {
	store := newMockStore()
	store.ticketFn = func(id string) (*ticket.Ticket, error) {
		return &ticket.Ticket{ID: id, Status: ticket.StatusOpen}, nil
	}
	e := NewTicketExecutor(store)

	// open -> open is not a graph edge but must build so the engine can
	// report the idempotent no-op.
	res := ticketRouting("update_status", map[string]any{"ticket_id": ticketUUID, "status": "open"})
	if _, err := e.Build(context.Background(), res); err != nil {
		t.Fatalf("same-status build rejected: %v", err)
	}
}

func TestTicketStatusUpdateResolvesReference(t *testing.T) {
	store := newMockStore()
	store.referenceFn = func(table, reference string) (string, error) {
		if table != "tickets" || reference != "TK-42" {
			t.Errorf("lookup %s %s", table, reference)
		}
		return ticketUUID, nil
	}
	store.ticketFn = func(id string) (*ticket.Ticket, error) {
		return &ticket.Ticket{ID: id, Status: ticket.StatusInProgress}, nil
	}
	e := NewTicketExecutor(store)

	res := ticketRouting("update_status", map[string]any{"ticket_id": "tk-42", "status": "resolved"})
	p, err := e.Build(context.Background(), res)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Conditions[0].Value != ticketUUID {
		t.Errorf("condition value = %v, want resolved UUID", p.Conditions[0].Value)
	}
}

func TestTicketReassignResolvesBothSides(t *testing.T) {
	store := newMockStore()
	store.titleFn = func(table, title string) (string, error) { return ticketUUID, nil }
	store.memberFn = func(name string) (*team.Member, error) {
		return &team.Member{ID: "member-1", Name: name}, nil
	}
	e := NewTicketExecutor(store)

	res := ticketRouting("reassign", map[string]any{"ticket_id": "printer issue", "assignee": "Dana"})
	p, err := e.Build(context.Background(), res)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Data["assignee_id"] != "member-1" {
		t.Errorf("assignee_id = %v", p.Data["assignee_id"])
	}
	if p.Conditions[0].Value != ticketUUID {
		t.Errorf("ticket condition = %v", p.Conditions[0].Value)
	}
}

func TestTicketReassignFailsWhenMemberUnknown(t *testing.T) {
	store := newMockStore()
	store.titleFn = func(table, title string) (string, error) { return ticketUUID, nil }
	e := NewTicketExecutor(store)

	res := ticketRouting("reassign", map[string]any{"ticket_id": "printer issue", "assignee": "Nobody"})
	if _, err := e.Build(context.Background(), res); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unresolved assignee", err)
	}
}

func TestTicketUnknownOperation(t *testing.T) {
	e := NewTicketExecutor(newMockStore())
	if _, err := e.Build(context.Background(), ticketRouting("escalate", nil)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
