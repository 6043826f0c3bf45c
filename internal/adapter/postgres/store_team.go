package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/team"
)

// GetTeamByName resolves a team by name (case-insensitive).
func (s *Store) GetTeamByName(ctx context.Context, name string) (*team.Team, error) {
	const q = `
		SELECT id, reference, name, description, created_at, updated_at
		FROM teams
		WHERE LOWER(name) = LOWER($1)`

	var t team.Team
	var desc *string
	err := s.pool.QueryRow(ctx, q, name).Scan(
		&t.ID, &t.Reference, &t.Name, &desc, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("team %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get team %q: %w", name, err)
	}
	if desc != nil {
		t.Description = *desc
	}
	return &t, nil
}

// GetMemberByName resolves a member by name (case-insensitive), including
// their skills.
func (s *Store) GetMemberByName(ctx context.Context, name string) (*team.Member, error) {
	const q = `
		SELECT id, name, email, team_id, created_at
		FROM members
		WHERE LOWER(name) = LOWER($1)`

	var m team.Member
	var email, teamID *string
	err := s.pool.QueryRow(ctx, q, name).Scan(&m.ID, &m.Name, &email, &teamID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("member %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get member %q: %w", name, err)
	}
	if email != nil {
		m.Email = *email
	}
	if teamID != nil {
		m.TeamID = *teamID
	}

	skills, err := s.listMemberSkills(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.Skills = skills
	return &m, nil
}

func (s *Store) listMemberSkills(ctx context.Context, memberID string) ([]team.Skill, error) {
	const q = `
		SELECT skill_name, proficiency
		FROM member_skills
		WHERE member_id = $1
		ORDER BY skill_name ASC`

	rows, err := s.pool.Query(ctx, q, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member skills: %w", err)
	}
	defer rows.Close()

	var skills []team.Skill
	for rows.Next() {
		var sk team.Skill
		if err := rows.Scan(&sk.Name, &sk.Proficiency); err != nil {
			return nil, fmt.Errorf("scan member skill: %w", err)
		}
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// CountTeamMembers returns the number of members assigned to a team.
func (s *Store) CountTeamMembers(ctx context.Context, teamID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE team_id = $1`, teamID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count team members %s: %w", teamID, err)
	}
	return n, nil
}

// AssignMemberToTeam invokes the server-side assignment procedure, which
// moves the member and records the membership change in one transaction.
func (s *Store) AssignMemberToTeam(ctx context.Context, memberID, teamID string) error {
	if _, err := s.pool.Exec(ctx, `SELECT assign_member_to_team($1, $2)`, memberID, teamID); err != nil {
		return fmt.Errorf("assign member %s to team %s: %w: %w", memberID, teamID, domain.ErrStore, err)
	}
	return nil
}
