package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// Change records one field modified by an execution.
type Change struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// ExecutionResult is the outcome of interpreting one operation plan.
type ExecutionResult struct {
	Data    database.Row   `json:"data,omitempty"`
	Rows    []database.Row `json:"rows,omitempty"`
	Changes []Change       `json:"changes,omitempty"`
	Message string         `json:"message,omitempty"`
	Deleted int64          `json:"deleted,omitempty"`
}

// Engine interprets operation plans against the store. It is the single
// mutation path for all domains.
type Engine struct {
	store  database.Store
	logger *slog.Logger
}

func NewEngine(store database.Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Execute validates and interprets a plan. Batch sub-operations run after the
// primary insert; a sub-operation failure surfaces as ErrPartialFailure with
// the primary result intact.
func (e *Engine) Execute(ctx context.Context, p *plan.Plan) (*ExecutionResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	conds, err := e.resolveConditions(ctx, p.Table, p.Conditions)
	if err != nil {
		return nil, err
	}

	switch p.Action {
	case plan.ActionSelect:
		return e.execSelect(ctx, p, conds)
	case plan.ActionInsert:
		return e.execInsert(ctx, p)
	case plan.ActionUpdate:
		return e.execUpdate(ctx, p, conds)
	case plan.ActionDelete:
		return e.execDelete(ctx, p, conds)
	default:
		return nil, fmt.Errorf("%w: unknown plan action %q", domain.ErrValidation, p.Action)
	}
}

// Snapshot reads the rows a mutating plan is about to touch, for checkpoint
// capture. Returns the primary entity ID when a single row is addressed.
// Inserts have no prior state.
func (e *Engine) Snapshot(ctx context.Context, p *plan.Plan) (string, database.Row, error) {
	if p.Action != plan.ActionUpdate && p.Action != plan.ActionDelete {
		return "", nil, nil
	}
	conds, err := e.resolveConditions(ctx, p.Table, p.Conditions)
	if err != nil {
		return "", nil, err
	}
	rows, err := e.store.Select(ctx, p.Table, conds)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot %s: %w", p.Table, err)
	}
	if len(rows) != 1 {
		return "", nil, nil
	}
	id, _ := rows[0]["id"].(string)
	return id, rows[0], nil
}

// resolveConditions turns title, name and reference condition values into
// concrete keys via store lookups. UUID and plain-value conditions pass
// through untouched.
func (e *Engine) resolveConditions(ctx context.Context, table string, conds []plan.Condition) ([]plan.Condition, error) {
	out := make([]plan.Condition, len(conds))
	for i, c := range conds {
		switch c.Kind {
		case entity.FormatTitle, entity.FormatName:
			raw, _ := c.Value.(string)
			id, err := e.store.LookupIDByTitle(ctx, table, raw)
			if err != nil {
				return nil, fmt.Errorf("resolve %s %q on %s: %w", c.Kind, raw, table, err)
			}
			out[i] = plan.Condition{Field: c.Field, Value: id, Kind: entity.FormatUUID}
		case entity.FormatReference:
			raw, _ := c.Value.(string)
			id, err := e.store.LookupIDByReference(ctx, table, raw)
			if err != nil {
				return nil, fmt.Errorf("resolve reference %q on %s: %w", raw, table, err)
			}
			out[i] = plan.Condition{Field: c.Field, Value: id, Kind: entity.FormatUUID}
		default:
			out[i] = c
		}
	}
	return out, nil
}

func (e *Engine) execSelect(ctx context.Context, p *plan.Plan, conds []plan.Condition) (*ExecutionResult, error) {
	rows, err := e.store.Select(ctx, p.Table, conds)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", p.Table, err)
	}
	res := &ExecutionResult{Rows: rows}
	if len(rows) == 1 {
		res.Data = rows[0]
	}
	return res, nil
}

func (e *Engine) execInsert(ctx context.Context, p *plan.Plan) (*ExecutionResult, error) {
	inserted, err := e.store.Insert(ctx, p.Table, p.Data)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", p.Table, err)
	}
	res := &ExecutionResult{Data: inserted}

	if len(p.Batch) > 0 {
		id, _ := inserted["id"].(string)
		p.SubstituteParentID(id)
		for i := range p.Batch {
			sub := &p.Batch[i]
			if _, err := e.store.Insert(ctx, sub.Table, sub.Data); err != nil {
				e.logger.Warn("batch operation failed",
					"table", sub.Table,
					"parent", id,
					"completed", i,
					"total", len(p.Batch),
					"error", err,
				)
				return res, fmt.Errorf("%w: %s batch %d of %d: %v",
					domain.ErrPartialFailure, sub.Table, i+1, len(p.Batch), err)
			}
		}
	}
	return res, nil
}

// execUpdate diffs the stored row against the incoming data. An update that
// changes nothing is reported as an idempotent success and never hits the
// store.
func (e *Engine) execUpdate(ctx context.Context, p *plan.Plan, conds []plan.Condition) (*ExecutionResult, error) {
	before, err := e.store.Select(ctx, p.Table, conds)
	if err != nil {
		return nil, fmt.Errorf("read before update %s: %w", p.Table, err)
	}
	if len(before) == 0 {
		return nil, fmt.Errorf("%w: no %s row matches", domain.ErrNotFound, p.Table)
	}

	if len(before) == 1 && noopUpdate(before[0], p.Data) {
		return &ExecutionResult{
			Data:    before[0],
			Message: fmt.Sprintf("No change needed: %s already in requested state", singular(p.Table)),
		}, nil
	}

	rows, err := e.store.Update(ctx, p.Table, p.Data, conds)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", p.Table, err)
	}
	res := &ExecutionResult{Rows: rows}
	if len(rows) == 1 {
		res.Data = rows[0]
	}
	if len(before) == 1 {
		for field, next := range p.Data {
			prev := before[0][field]
			if !equalValue(prev, next) {
				res.Changes = append(res.Changes, Change{Field: field, Old: prev, New: next})
			}
		}
	}
	return res, nil
}

func (e *Engine) execDelete(ctx context.Context, p *plan.Plan, conds []plan.Condition) (*ExecutionResult, error) {
	n, err := e.store.Delete(ctx, p.Table, conds)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", p.Table, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no %s row matches", domain.ErrNotFound, p.Table)
	}
	return &ExecutionResult{Deleted: n}, nil
}

func noopUpdate(current database.Row, data map[string]any) bool {
	for field, next := range data {
		if !equalValue(current[field], next) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

var singulars = map[string]string{
	"tickets":  "ticket",
	"articles": "article",
	"teams":    "team",
	"members":  "member",
}

func singular(table string) string {
	if s, ok := singulars[table]; ok {
		return s
	}
	return table
}
