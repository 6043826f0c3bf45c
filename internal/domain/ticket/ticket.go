// Package ticket provides the domain model for support tickets, including
// the fixed status-transition graph enforced before any store write.
package ticket

import (
	"fmt"
	"time"

	"github.com/Strob0t/DeskForge/internal/domain"
)

// Status represents the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Priority represents ticket urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// transitions is the fixed status-transition graph. Edges not present here
// are rejected before the store is touched.
var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress},
	StatusInProgress: {StatusResolved, StatusOpen},
	StatusResolved:   {StatusClosed, StatusOpen},
}

// CanTransition reports whether the edge from → to exists in the graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when the edge from → to is
// absent from the graph.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return nil
}

// Ticket represents a support ticket.
type Ticket struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"` // short code, e.g. TK-123
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	TeamID      string    `json:"team_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SkillRequirement attaches a required skill to a ticket.
type SkillRequirement struct {
	TicketID            string `json:"ticket_id"`
	SkillName           string `json:"skill_name"`
	RequiredProficiency int    `json:"required_proficiency"`
}

// CreateRequest holds the input for creating a ticket.
type CreateRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    Priority           `json:"priority"`
	Skills      []SkillRequirement `json:"skills,omitempty"`
}

// Validate checks that a CreateRequest is well-formed.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Description == "" {
		return fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	if !ValidPriority(r.Priority) {
		return fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, r.Priority)
	}
	return nil
}
