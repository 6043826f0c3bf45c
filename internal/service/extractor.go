package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
	"github.com/Strob0t/DeskForge/internal/port/completion"
)

// Entity types recognized by extraction.
const (
	EntityTicketID  = "ticket_id"
	EntityArticleID = "article_id"
	EntityUserName  = "user_name"
	EntityTeamName  = "team_name"
	EntitySkill     = "skill"
	EntityStatus    = "status"
	EntityPriority  = "priority"
	EntityTopic     = "topic"
)

// minConfidence is the floor below which an extracted entity is discarded.
const minConfidence = 0.7

// structuralConfidence is assigned to entities derived from retrieved records
// rather than model output. Records do not hallucinate.
const structuralConfidence = 0.95

const extractPrompt = `Extract typed entities from the operator request below.
Respond with ONLY a JSON array. Each element must be an object with keys
"type", "value" and "confidence" (0.0 to 1.0), plus an optional "metadata"
object whose values are strings. Recognized types: ticket_id, article_id,
user_name, team_name, skill, status, priority, topic. When the request states
a proficiency level for a skill, include it as metadata, for example
{"type": "skill", "value": "French", "confidence": 0.9, "metadata": {"proficiency": "3"}}.

Request: %s

Related records:
%s`

// ExtractorService pulls typed entities out of operator text using the
// completion oracle, then augments them with a structural pass over retrieved
// records and applies format-validation downgrades.
type ExtractorService struct {
	oracle completion.Oracle
	logger *slog.Logger
}

func NewExtractor(oracle completion.Oracle, logger *slog.Logger) *ExtractorService {
	return &ExtractorService{oracle: oracle, logger: logger}
}

// Extract returns the validated entity set for the request text. Entities
// whose value fails format validation for their type are kept with a reduced
// confidence; anything under the floor is dropped.
func (s *ExtractorService) Extract(ctx context.Context, text string, rc *RetrievedContext) ([]entity.Entity, error) {
	prompt := fmt.Sprintf(extractPrompt, text, contextSummary(rc))
	raw, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	var parsed []entity.Entity
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed entity payload: %v", domain.ErrValidation, err)
	}

	out := make([]entity.Entity, 0, len(parsed))
	for _, e := range parsed {
		e = s.validate(e)
		if e.Confidence < minConfidence {
			s.logger.Debug("entity dropped", "type", e.Type, "value", e.Value, "confidence", e.Confidence)
			continue
		}
		out = append(out, e)
	}
	out = append(out, s.structural(rc)...)
	return out, nil
}

// validate normalizes identifiers, checks values against their type's legal
// set and downgrades confidence on mismatch. Confidence only ever decreases.
func (s *ExtractorService) validate(e entity.Entity) entity.Entity {
	switch e.Type {
	case EntityTicketID:
		e = normalizeInto(e, entity.KindTicket)
		if !entity.IsIdentifier(e.Value, entity.KindTicket) {
			e.Confidence *= 0.5
		}
	case EntityArticleID:
		e = normalizeInto(e, entity.KindArticle)
		if !entity.IsIdentifier(e.Value, entity.KindArticle) {
			e.Confidence *= 0.5
		}
	case EntityStatus:
		if !ticket.ValidStatus(ticket.Status(e.Value)) {
			e.Confidence *= 0.7
		}
	case EntityPriority:
		if !ticket.ValidPriority(ticket.Priority(e.Value)) {
			e.Confidence *= 0.7
		}
	}
	if e.Confidence > 1 {
		e.Confidence = 1
	}
	return e
}

// structural derives skill entities from retrieved ticket skill records.
func (s *ExtractorService) structural(rc *RetrievedContext) []entity.Entity {
	if rc == nil {
		return nil
	}
	var out []entity.Entity
	for key, v := range rc.DomainContext {
		if !strings.HasPrefix(key, "skills:") {
			continue
		}
		for _, sk := range skillRequirements(v) {
			out = append(out, entity.Entity{
				Type:       EntitySkill,
				Value:      sk.SkillName,
				Confidence: structuralConfidence,
				Metadata:   map[string]string{"proficiency": fmt.Sprintf("%d", sk.RequiredProficiency)},
			})
		}
	}
	return out
}

// skillRequirements recovers typed skill records from a domain-context value.
// Contexts served from cache round-trip through JSON, so the value may be the
// generic decoded form rather than the typed slice retrieval stored.
func skillRequirements(v any) []ticket.SkillRequirement {
	if skills, ok := v.([]ticket.SkillRequirement); ok {
		return skills
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var skills []ticket.SkillRequirement
	if err := json.Unmarshal(raw, &skills); err != nil {
		return nil
	}
	return skills
}

// Group buckets an entity set by semantic role. A priority entity annotates
// every ticket reference in the same set.
func Group(entities []entity.Entity) entity.Groups {
	var g entity.Groups
	for _, e := range entities {
		switch e.Type {
		case EntityTicketID:
			g.Tickets = append(g.Tickets, entity.TicketRef{
				Value:           e.Value,
				NormalizedValue: e.NormalizedValue,
				Format:          e.Format(),
			})
		case EntityArticleID:
			g.Articles = append(g.Articles, e.Value)
		case EntityUserName:
			g.Users = append(g.Users, e.Value)
			g.TeamMembers = append(g.TeamMembers, e.Value)
		case EntityTeamName:
			g.Team = e.Value
		case EntitySkill:
			ref := entity.SkillRef{Name: e.Value, Proficiency: team.DefaultProficiency}
			if p := e.Metadata["proficiency"]; p != "" {
				fmt.Sscanf(p, "%d", &ref.Proficiency)
			}
			g.Skills = append(g.Skills, ref)
		case EntityPriority:
			g.Priority = e.Value
		case EntityStatus:
			g.Status = e.Value
		case EntityTopic:
			g.Topic = e.Value
		}
	}
	if g.Priority != "" {
		for i := range g.Tickets {
			g.Tickets[i].Priority = g.Priority
		}
	}
	return g
}

func normalizeInto(e entity.Entity, kind entity.Kind) entity.Entity {
	n := entity.Normalize(e.Value, kind)
	e.Value = n.Value
	e.NormalizedValue = n.NormalizedValue
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	e.Metadata["format"] = n.Format
	return e
}

// stripFences removes a surrounding markdown code fence from oracle output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// contextSummary renders retrieved documents for inclusion in a prompt.
func contextSummary(rc *RetrievedContext) string {
	if rc == nil || len(rc.RelatedDocuments) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, doc := range rc.RelatedDocuments {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", doc.Table, doc.Title, truncate(doc.Content, 200))
	}
	return b.String()
}

// truncate cuts s to at most n bytes, backing up to a rune boundary so a
// multi-byte character is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
