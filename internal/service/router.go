package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/port/completion"
)

// Task domains.
const (
	DomainTicket = "ticket"
	DomainKB     = "kb"
	DomainTeam   = "team"
)

// RoutingResult is a fully resolved task ready for an executor.
type RoutingResult struct {
	Domain     string
	Operation  string
	Urgency    string
	Confidence float64
	Parameters map[string]any
	Entities   []entity.Entity
	Context    *RetrievedContext
}

const classifyPrompt = `Classify the operator request below into a task.
Respond with ONLY a JSON object with keys "domain" (one of: ticket, kb, team),
"operation" and "confidence" (0.0 to 1.0).

Known operations per domain:
  ticket: create, update_status, reassign, find, delete
  kb: create, update, publish, archive, find
  team: create, assign_member, remove_member, find

Request: %s
Extracted entities: %s`

// operationAliases folds model-produced operation names onto the canonical
// set. Unlisted names pass through unchanged.
var operationAliases = map[string]string{
	"ticket_update": "update_status",
	"ticket_create": "create",
	"ticket_search": "find",
	"kb_create":     "create",
	"kb_publish":    "publish",
	"kb_search":     "find",
	"assign":        "assign_member",
	"add_member":    "assign_member",
	"search":        "find",
	"list":          "find",
}

// requiredParams lists the parameters an operation cannot run without.
var requiredParams = map[string][]string{
	"ticket.create":        {"title"},
	"ticket.update_status": {"ticket_id", "status"},
	"ticket.reassign":      {"ticket_id", "assignee"},
	"ticket.delete":        {"ticket_id"},
	"kb.create":            {"title"},
	"kb.update":            {"article_id"},
	"kb.publish":           {"article_id"},
	"kb.archive":           {"article_id"},
	"team.create":          {"team_name"},
	"team.assign_member":   {"team_name", "member"},
	"team.remove_member":   {"member"},
}

// RouterService classifies a request into a domain operation, maps grouped
// entities onto operation parameters and enforces the confidence gate.
type RouterService struct {
	oracle    completion.Oracle
	threshold float64
	logger    *slog.Logger
}

func NewRouter(oracle completion.Oracle, threshold float64, logger *slog.Logger) *RouterService {
	return &RouterService{oracle: oracle, threshold: threshold, logger: logger}
}

// Route classifies text into a task and binds parameters from the grouped
// entity set. Classifications under the confidence threshold are rejected with
// ErrLowConfidence and never reach an executor.
func (s *RouterService) Route(ctx context.Context, text string, groups entity.Groups, entities []entity.Entity, rc *RetrievedContext) (*RoutingResult, error) {
	entSummary, _ := json.Marshal(groups)
	raw, err := s.oracle.Complete(ctx, fmt.Sprintf(classifyPrompt, text, entSummary))
	if err != nil {
		return nil, fmt.Errorf("task classification: %w", err)
	}

	var cls struct {
		Domain     string  `json:"domain"`
		Operation  string  `json:"operation"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &cls); err != nil {
		return nil, fmt.Errorf("%w: malformed classification payload: %v", domain.ErrValidation, err)
	}
	if cls.Domain != DomainTicket && cls.Domain != DomainKB && cls.Domain != DomainTeam {
		return nil, fmt.Errorf("%w: unknown task domain %q", domain.ErrValidation, cls.Domain)
	}
	if alias, ok := operationAliases[cls.Operation]; ok {
		cls.Operation = alias
	}

	if cls.Confidence < s.threshold {
		s.logger.Info("classification below threshold",
			"domain", cls.Domain,
			"operation", cls.Operation,
			"confidence", cls.Confidence,
		)
		return nil, fmt.Errorf("%w: confidence %.2f below threshold %.2f",
			domain.ErrLowConfidence, cls.Confidence, s.threshold)
	}

	res := &RoutingResult{
		Domain:     cls.Domain,
		Operation:  cls.Operation,
		Urgency:    assessUrgency(text, cls.Operation),
		Confidence: cls.Confidence,
		Parameters: mapParameters(text, groups),
		Entities:   entities,
		Context:    rc,
	}

	if missing := missingParams(res); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s requires %s",
			domain.ErrMissingParameters, res.Domain+"."+res.Operation, strings.Join(missing, ", "))
	}
	return res, nil
}

// mapParameters binds grouped entities onto the generic parameter slots
// executors read from. For ticket and article references the best available
// identifier wins: UUID over short reference over title.
func mapParameters(text string, g entity.Groups) map[string]any {
	p := map[string]any{"query": text}
	if len(g.Tickets) > 0 {
		best := bestRef(g.Tickets)
		p["ticket_id"] = best.Value
		p["ticket_id_format"] = best.Format
		if best.NormalizedValue != "" {
			p["ticket_id_normalized"] = best.NormalizedValue
		}
	}
	if len(g.Articles) > 0 {
		p["article_id"] = g.Articles[0]
	}
	if len(g.Users) > 0 {
		p["assignee"] = g.Users[0]
		p["member"] = g.Users[0]
	}
	if g.Team != "" {
		p["team_name"] = g.Team
	}
	if g.Topic != "" {
		p["title"] = g.Topic
		p["topic"] = g.Topic
	}
	if g.Status != "" {
		p["status"] = g.Status
	}
	if g.Priority != "" {
		p["priority"] = g.Priority
	}
	if len(g.Skills) > 0 {
		p["skills"] = g.Skills
	}
	return p
}

// bestRef picks the ticket reference with the strongest identifier format.
func bestRef(refs []entity.TicketRef) entity.TicketRef {
	rank := map[string]int{
		entity.FormatUUID:      3,
		entity.FormatReference: 2,
		entity.FormatTitle:     1,
	}
	best := refs[0]
	for _, r := range refs[1:] {
		if rank[r.Format] > rank[best.Format] {
			best = r
		}
	}
	return best
}

var urgencyWords = []string{"urgent", "asap", "immediately", "critical", "outage", "down"}

// assessUrgency derives a coarse urgency from request wording and the kind of
// operation being performed.
func assessUrgency(text, operation string) string {
	lower := strings.ToLower(text)
	for _, w := range urgencyWords {
		if strings.Contains(lower, w) {
			return "high"
		}
	}
	switch operation {
	case "create", "update_status", "reassign", "assign_member":
		return "medium"
	default:
		return "low"
	}
}

func missingParams(res *RoutingResult) []string {
	var missing []string
	for _, name := range requiredParams[res.Domain+"."+res.Operation] {
		if v, ok := res.Parameters[name]; !ok || v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
