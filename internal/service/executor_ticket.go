package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// TicketExecutor builds operation plans for the ticket domain.
type TicketExecutor struct {
	store database.Store
}

func NewTicketExecutor(store database.Store) *TicketExecutor {
	return &TicketExecutor{store: store}
}

func (e *TicketExecutor) Domain() string { return DomainTicket }

func (e *TicketExecutor) Build(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	switch res.Operation {
	case "create":
		return e.buildCreate(res)
	case "update_status":
		return e.buildStatusUpdate(ctx, res)
	case "reassign":
		return e.buildReassign(ctx, res)
	case "find":
		return e.buildFind(res), nil
	case "delete":
		return e.buildDelete(ctx, res)
	default:
		return nil, fmt.Errorf("%w: unknown ticket operation %q", domain.ErrValidation, res.Operation)
	}
}

func (e *TicketExecutor) buildCreate(res *RoutingResult) (*plan.Plan, error) {
	req := ticket.CreateRequest{
		Title:       paramString(res.Parameters, "title"),
		Description: paramString(res.Parameters, "description"),
		Priority:    ticket.Priority(paramString(res.Parameters, "priority")),
	}
	if req.Description == "" {
		req.Description = paramString(res.Parameters, "query")
	}
	if req.Priority == "" {
		req.Priority = ticket.Priority(res.Urgency)
	}
	if !ticket.ValidPriority(req.Priority) {
		req.Priority = ticket.PriorityMedium
	}
	if skills, ok := res.Parameters["skills"].([]entity.SkillRef); ok {
		for _, sk := range skills {
			req.Skills = append(req.Skills, ticket.SkillRequirement{
				SkillName:           sk.Name,
				RequiredProficiency: sk.Proficiency,
			})
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &plan.Plan{
		Action: plan.ActionInsert,
		Table:  "tickets",
		Data: map[string]any{
			"title":       req.Title,
			"description": req.Description,
			"status":      string(ticket.StatusOpen),
			"priority":    string(req.Priority),
		},
	}
	for _, sk := range req.Skills {
		prof := sk.RequiredProficiency
		if prof == 0 {
			prof = team.DefaultProficiency
		}
		p.Batch = append(p.Batch, plan.Plan{
			Action: plan.ActionInsert,
			Table:  "ticket_skills",
			Data: map[string]any{
				"ticket_id":            plan.ParentIDPlaceholder,
				"skill_name":           sk.SkillName,
				"required_proficiency": prof,
			},
		})
	}
	return p, nil
}

// buildStatusUpdate resolves the ticket, checks the transition graph and
// emits the status update. A same-status update passes through untouched so
// the engine can report it as an idempotent no-op.
func (e *TicketExecutor) buildStatusUpdate(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	next := ticket.Status(paramString(res.Parameters, "status"))
	if !ticket.ValidStatus(next) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, next)
	}
	id, err := e.resolveTicketID(ctx, res.Parameters)
	if err != nil {
		return nil, err
	}
	current, err := e.store.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ticket %s: %w", id, err)
	}
	if current.Status != next {
		if err := ticket.CheckTransition(current.Status, next); err != nil {
			return nil, err
		}
	}
	return &plan.Plan{
		Action:     plan.ActionUpdate,
		Table:      "tickets",
		Data:       map[string]any{"status": string(next)},
		Conditions: []plan.Condition{{Field: "id", Value: id, Kind: entity.FormatUUID}},
	}, nil
}

// buildReassign resolves the ticket and the assignee in parallel. Both are
// required, so either resolution failure fails the build.
func (e *TicketExecutor) buildReassign(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	var (
		ticketID string
		member   *team.Member
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := e.resolveTicketID(gctx, res.Parameters)
		if err != nil {
			return err
		}
		ticketID = id
		return nil
	})
	g.Go(func() error {
		name := paramString(res.Parameters, "assignee")
		if entity.IsUUID(name) {
			member = &team.Member{ID: name}
			return nil
		}
		m, err := e.store.GetMemberByName(gctx, name)
		if err != nil {
			return fmt.Errorf("resolve assignee %q: %w", name, err)
		}
		member = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &plan.Plan{
		Action:     plan.ActionUpdate,
		Table:      "tickets",
		Data:       map[string]any{"assignee_id": member.ID},
		Conditions: []plan.Condition{{Field: "id", Value: ticketID, Kind: entity.FormatUUID}},
	}, nil
}

func (e *TicketExecutor) buildFind(res *RoutingResult) *plan.Plan {
	p := &plan.Plan{Action: plan.ActionSelect, Table: "tickets"}
	if v := paramString(res.Parameters, "status"); v != "" {
		p.Conditions = append(p.Conditions, plan.Condition{Field: "status", Value: v})
	}
	if v := paramString(res.Parameters, "priority"); v != "" {
		p.Conditions = append(p.Conditions, plan.Condition{Field: "priority", Value: v})
	}
	if v := paramString(res.Parameters, "assignee"); v != "" && entity.IsUUID(v) {
		p.Conditions = append(p.Conditions, plan.Condition{Field: "assignee_id", Value: v})
	}
	return p
}

func (e *TicketExecutor) buildDelete(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	id, err := e.resolveTicketID(ctx, res.Parameters)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Action:     plan.ActionDelete,
		Table:      "tickets",
		Conditions: []plan.Condition{{Field: "id", Value: id, Kind: entity.FormatUUID}},
	}, nil
}

// resolveTicketID turns whatever identifier routing bound into a concrete
// ticket ID, hitting the store for reference and title lookups.
func (e *TicketExecutor) resolveTicketID(ctx context.Context, params map[string]any) (string, error) {
	raw := paramString(params, "ticket_id")
	if raw == "" {
		return "", fmt.Errorf("%w: ticket_id", domain.ErrMissingParameters)
	}
	n := entity.Normalize(raw, entity.KindTicket)
	switch n.Format {
	case entity.FormatUUID:
		return n.Value, nil
	case entity.FormatReference:
		id, err := e.store.LookupIDByReference(ctx, "tickets", n.Value)
		if err != nil {
			return "", fmt.Errorf("resolve ticket reference %q: %w", n.Value, err)
		}
		return id, nil
	default:
		id, err := e.store.LookupIDByTitle(ctx, "tickets", n.Value)
		if err != nil {
			return "", fmt.Errorf("resolve ticket title %q: %w", n.Value, err)
		}
		return id, nil
	}
}
