// Package intent provides the typed representation of a normalized operator
// request: the action, the target record kind, and the extracted criteria.
// An Intent is produced once at the system boundary and is immutable downstream.
package intent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Strob0t/DeskForge/internal/domain"
)

// Action is the verb of a normalized request.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionFind     Action = "find"
	ActionReassign Action = "reassign"
	ActionAdd      Action = "add"
	ActionRemove   Action = "remove"
)

// ValidAction reports whether a is a known action.
func ValidAction(a Action) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionFind, ActionReassign, ActionAdd, ActionRemove:
		return true
	}
	return false
}

// Target is the record kind a request operates on.
type Target string

const (
	TargetTeam     Target = "team"
	TargetTicket   Target = "ticket"
	TargetArticle  Target = "article"
	TargetSkill    Target = "skill"
	TargetUser     Target = "user"
	TargetSchedule Target = "schedule"
)

// ValidTarget reports whether t is a known target.
func ValidTarget(t Target) bool {
	switch t {
	case TargetTeam, TargetTicket, TargetArticle, TargetSkill, TargetUser, TargetSchedule:
		return true
	}
	return false
}

// Intent is a normalized operator request. Produced by the boundary
// classification pass, validated once, then passed by value through the
// pipeline without re-parsing.
type Intent struct {
	Action         Action         `json:"action"`
	Target         Target         `json:"target"`
	Criteria       map[string]any `json:"criteria,omitempty"`
	Name           string         `json:"name,omitempty"`
	Description    string         `json:"description,omitempty"`
	Assignee       string         `json:"assignee,omitempty"`
	MemberCriteria string         `json:"member_criteria,omitempty"`
}

// Validate checks that the intent carries a known action and target.
func (in *Intent) Validate() error {
	if !ValidAction(in.Action) {
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, in.Action)
	}
	if !ValidTarget(in.Target) {
		return fmt.Errorf("%w: unknown target %q", domain.ErrValidation, in.Target)
	}
	return nil
}

// SearchText joins the intent's search-relevant fields into a query string.
// Returns an empty string when no field carries text; callers supply a
// target-specific default phrase in that case.
func (in *Intent) SearchText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{in.Name, in.Description, in.MemberCriteria, in.Category()} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Category returns the category criterion, if present.
func (in *Intent) Category() string {
	if in.Criteria == nil {
		return ""
	}
	c, _ := in.Criteria["category"].(string)
	return c
}

// Fingerprint returns a stable serialization of the intent's search-relevant
// fields, used as the retrieval cache key. Criteria keys are sorted so two
// equal intents always produce the same fingerprint.
func (in *Intent) Fingerprint() string {
	var b strings.Builder
	b.WriteString(string(in.Action))
	b.WriteByte('|')
	b.WriteString(string(in.Target))
	b.WriteByte('|')
	b.WriteString(in.Name)
	b.WriteByte('|')
	b.WriteString(in.Description)
	b.WriteByte('|')
	b.WriteString(in.MemberCriteria)

	if len(in.Criteria) > 0 {
		keys := make([]string, 0, len(in.Criteria))
		for k := range in.Criteria {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "|%s=%v", k, in.Criteria[k])
		}
	}
	return b.String()
}
