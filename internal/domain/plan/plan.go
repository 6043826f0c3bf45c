// Package plan provides the typed description of a store mutation produced
// by a domain executor and consumed exactly once by the execution engine.
package plan

import (
	"fmt"

	"github.com/Strob0t/DeskForge/internal/domain"
)

// Action is the store operation kind.
type Action string

const (
	ActionSelect Action = "SELECT"
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// ValidAction reports whether a is a known plan action.
func ValidAction(a Action) bool {
	switch a {
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParentIDPlaceholder marks a batch-operation field whose value is the
// not-yet-known generated ID of the primary insert. The execution engine
// substitutes the real ID after the parent row returns it.
const ParentIDPlaceholder = "$parent_id"

// Condition restricts which rows an operation matches. Kind records the
// identifier form of Value (uuid, reference, title, name) so the engine
// knows whether a lookup is required before the value can be used as a key.
type Condition struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Kind  string `json:"kind,omitempty"`
}

// Plan is a tree of at most two levels: a primary operation plus optional
// batched sub-operations. Sub-operations may not carry their own batch.
type Plan struct {
	Action     Action         `json:"action"`
	Table      string         `json:"table"`
	Data       map[string]any `json:"data,omitempty"`
	Conditions []Condition    `json:"conditions,omitempty"`
	Batch      []Plan         `json:"batch_operations,omitempty"`
}

// Validate checks structural invariants: known action, non-empty table,
// batch depth of at most one level below the primary.
func (p *Plan) Validate() error {
	if !ValidAction(p.Action) {
		return fmt.Errorf("%w: unknown plan action %q", domain.ErrValidation, p.Action)
	}
	if p.Table == "" {
		return fmt.Errorf("%w: plan table is required", domain.ErrValidation)
	}
	for i := range p.Batch {
		sub := &p.Batch[i]
		if !ValidAction(sub.Action) {
			return fmt.Errorf("%w: unknown batch action %q", domain.ErrValidation, sub.Action)
		}
		if sub.Table == "" {
			return fmt.Errorf("%w: batch table is required", domain.ErrValidation)
		}
		if len(sub.Batch) > 0 {
			return fmt.Errorf("%w: batch operations may not nest", domain.ErrValidation)
		}
	}
	return nil
}

// SubstituteParentID replaces every ParentIDPlaceholder value in the batch
// sub-operations with the generated primary-row ID.
func (p *Plan) SubstituteParentID(id string) {
	for i := range p.Batch {
		for field, value := range p.Batch[i].Data {
			if s, ok := value.(string); ok && s == ParentIDPlaceholder {
				p.Batch[i].Data[field] = id
			}
		}
	}
}
