package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
)

// GetTicket retrieves a ticket by ID.
func (s *Store) GetTicket(ctx context.Context, id string) (*ticket.Ticket, error) {
	const q = `
		SELECT id, reference, title, description, status, priority, assignee_id, team_id, created_at, updated_at
		FROM tickets
		WHERE id = $1`

	var t ticket.Ticket
	var assignee, teamID *string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.Reference, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignee, &teamID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get ticket %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	if assignee != nil {
		t.AssigneeID = *assignee
	}
	if teamID != nil {
		t.TeamID = *teamID
	}
	return &t, nil
}

// ListTicketSkills returns the skill requirements attached to a ticket.
func (s *Store) ListTicketSkills(ctx context.Context, ticketID string) ([]ticket.SkillRequirement, error) {
	const q = `
		SELECT ticket_id, skill_name, required_proficiency
		FROM ticket_skills
		WHERE ticket_id = $1
		ORDER BY skill_name ASC`

	rows, err := s.pool.Query(ctx, q, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list ticket skills: %w", err)
	}
	defer rows.Close()

	var result []ticket.SkillRequirement
	for rows.Next() {
		var sr ticket.SkillRequirement
		if err := rows.Scan(&sr.TicketID, &sr.SkillName, &sr.RequiredProficiency); err != nil {
			return nil, fmt.Errorf("scan ticket skill: %w", err)
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}
