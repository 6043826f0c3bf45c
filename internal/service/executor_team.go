package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// TeamExecutor builds operation plans for the team domain.
type TeamExecutor struct {
	store database.Store
}

func NewTeamExecutor(store database.Store) *TeamExecutor {
	return &TeamExecutor{store: store}
}

func (e *TeamExecutor) Domain() string { return DomainTeam }

func (e *TeamExecutor) Build(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	switch res.Operation {
	case "create":
		return e.buildCreate(res)
	case "assign_member":
		return e.buildAssign(ctx, res)
	case "remove_member":
		return e.buildRemove(ctx, res)
	case "find":
		return e.buildFind(res), nil
	default:
		return nil, fmt.Errorf("%w: unknown team operation %q", domain.ErrValidation, res.Operation)
	}
}

func (e *TeamExecutor) buildCreate(res *RoutingResult) (*plan.Plan, error) {
	name := paramString(res.Parameters, "team_name")
	if name == "" {
		return nil, fmt.Errorf("%w: team_name", domain.ErrMissingParameters)
	}
	return &plan.Plan{
		Action: plan.ActionInsert,
		Table:  "teams",
		Data:   map[string]any{"name": name},
	}, nil
}

// buildAssign resolves the team and the member in parallel. Membership
// assignment is a plain team_id update; the server-side procedure is
// reserved for rollback reverts, which must also clear derived state.
func (e *TeamExecutor) buildAssign(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	tm, member, err := e.resolvePair(ctx, res)
	if err != nil {
		return nil, err
	}
	req := team.AssignRequest{TeamID: tm.ID, MemberID: member.ID}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &plan.Plan{
		Action:     plan.ActionUpdate,
		Table:      "members",
		Data:       map[string]any{"team_id": tm.ID},
		Conditions: []plan.Condition{{Field: "id", Value: member.ID, Kind: entity.FormatUUID}},
	}, nil
}

func (e *TeamExecutor) buildRemove(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	member, err := e.resolveMember(ctx, paramString(res.Parameters, "member"))
	if err != nil {
		return nil, err
	}
	return &plan.Plan{
		Action:     plan.ActionUpdate,
		Table:      "members",
		Data:       map[string]any{"team_id": nil},
		Conditions: []plan.Condition{{Field: "id", Value: member.ID, Kind: entity.FormatUUID}},
	}, nil
}

func (e *TeamExecutor) buildFind(res *RoutingResult) *plan.Plan {
	p := &plan.Plan{Action: plan.ActionSelect, Table: "teams"}
	if v := paramString(res.Parameters, "team_name"); v != "" {
		p.Conditions = append(p.Conditions, plan.Condition{Field: "id", Value: v, Kind: entity.FormatName})
	}
	return p
}

func (e *TeamExecutor) resolvePair(ctx context.Context, res *RoutingResult) (*team.Team, *team.Member, error) {
	var (
		tm     *team.Team
		member *team.Member
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name := paramString(res.Parameters, "team_name")
		t, err := e.store.GetTeamByName(gctx, name)
		if err != nil {
			return fmt.Errorf("resolve team %q: %w", name, err)
		}
		tm = t
		return nil
	})
	g.Go(func() error {
		m, err := e.resolveMember(gctx, paramString(res.Parameters, "member"))
		if err != nil {
			return err
		}
		member = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tm, member, nil
}

func (e *TeamExecutor) resolveMember(ctx context.Context, name string) (*team.Member, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: member", domain.ErrMissingParameters)
	}
	if entity.IsUUID(name) {
		return &team.Member{ID: name}, nil
	}
	m, err := e.store.GetMemberByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve member %q: %w", name, err)
	}
	return m, nil
}
