package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Strob0t/DeskForge/internal/domain/audit"
)

// ResponseTemplate renders one domain operation's outcome. Placeholders use
// dotted paths against the render scope: {data.title}, {context.category_name},
// {audit.id}. Unresolvable placeholders render as empty strings.
type ResponseTemplate struct {
	Success    string
	Suggestion string
}

// Formatter turns execution results into operator-facing text.
type Formatter struct {
	templates map[string]ResponseTemplate
}

func NewFormatter() *Formatter {
	return &Formatter{templates: map[string]ResponseTemplate{
		"ticket.create": {
			Success:    "Created ticket {data.reference}: {data.title} (priority {data.priority})",
			Suggestion: "Related records were found; review them before triage.",
		},
		"ticket.update_status": {
			Success: "Ticket {data.reference} is now {data.status}",
		},
		"ticket.reassign": {
			Success: "Ticket {data.reference} reassigned",
		},
		"kb.create": {
			Success: "Created draft article: {data.title}",
		},
		"kb.publish": {
			Success: "Published article: {data.title}",
		},
		"kb.archive": {
			Success: "Archived article: {data.title}",
		},
		"team.create": {
			Success: "Created team {data.name}",
		},
		"team.assign_member": {
			Success: "Member {data.name} assigned to team",
		},
		"team.remove_member": {
			Success: "Member {data.name} removed from their team",
		},
	}}
}

// Register adds or replaces the template for a domain operation.
func (f *Formatter) Register(domainName, operation string, t ResponseTemplate) {
	f.templates[domainName+"."+operation] = t
}

// Format renders the outcome of an executed operation. Idempotent no-op
// messages from the engine pass through untouched.
func (f *Formatter) Format(domainName, operation string, res *ExecutionResult, rc *RetrievedContext, rec *audit.Record) string {
	if res.Message != "" {
		return res.Message
	}

	scope := map[string]any{}
	if res.Data != nil {
		scope["data"] = res.Data
	}
	if rc != nil {
		scope["context"] = rc.DomainContext
	}
	if rec != nil {
		scope["audit"] = map[string]any{"id": rec.ID, "record_id": rec.RecordID}
	}

	var b strings.Builder
	tmpl, ok := f.templates[domainName+"."+operation]
	switch {
	case ok:
		b.WriteString(substitute(tmpl.Success, scope))
	case len(res.Rows) > 0:
		fmt.Fprintf(&b, "Found %d result(s):", len(res.Rows))
		for _, row := range res.Rows {
			b.WriteString("\n- " + rowLabel(row))
		}
	case res.Deleted > 0:
		fmt.Fprintf(&b, "Deleted %d record(s)", res.Deleted)
	default:
		fmt.Fprintf(&b, "Completed %s %s", domainName, operation)
	}

	if len(res.Changes) > 0 {
		b.WriteString("\nChanges:")
		for _, c := range res.Changes {
			fmt.Fprintf(&b, "\n- %s: %v -> %v", c.Field, c.Old, c.New)
		}
	}
	if ok && tmpl.Suggestion != "" && rc != nil && len(rc.RelatedDocuments) > 0 {
		b.WriteString("\n" + substitute(tmpl.Suggestion, scope))
	}
	return b.String()
}

// substitute replaces {a.b} placeholders with values looked up by dotted path.
func substitute(tmpl string, scope map[string]any) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(tmpl, '{')
		if start < 0 {
			b.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[start:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:start])
		path := tmpl[start+1 : start+end]
		if v, ok := lookupPath(scope, path); ok && v != nil {
			fmt.Fprintf(&b, "%v", v)
		}
		tmpl = tmpl[start+end+1:]
	}
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}

func lookupPath(scope map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = scope
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// rowLabel picks a human-readable label for a listed row.
func rowLabel(row map[string]any) string {
	for _, key := range []string{"title", "name", "reference"} {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return strings.Join(parts, " ")
}
