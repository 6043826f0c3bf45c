// Package team provides the domain model for support teams and their members.
package team

import (
	"fmt"
	"time"

	"github.com/Strob0t/DeskForge/internal/domain"
)

// Team represents a support team.
type Team struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"` // short code, e.g. TM-7
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member represents an agent who can belong to a team and carry skills.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	TeamID    string    `json:"team_id,omitempty"` // empty = unassigned
	Skills    []Skill   `json:"skills,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultProficiency is assumed when a skill requirement does not state a
// proficiency level. Levels run 1 to 5.
const DefaultProficiency = 3

// Skill is a capability a member possesses, with a proficiency level.
type Skill struct {
	Name        string `json:"name"`
	Proficiency int    `json:"proficiency"`
}

// AssignRequest holds the input for assigning a member to a team.
// Both identifiers must already be resolved to concrete IDs.
type AssignRequest struct {
	TeamID   string `json:"team_id"`
	MemberID string `json:"member_id"`
}

// Validate checks that an AssignRequest is well-formed.
func (r *AssignRequest) Validate() error {
	if r.TeamID == "" {
		return fmt.Errorf("%w: team id is required", domain.ErrValidation)
	}
	if r.MemberID == "" {
		return fmt.Errorf("%w: member id is required", domain.ErrValidation)
	}
	return nil
}
