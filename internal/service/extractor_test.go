package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/intent"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

func TestExtractKeepsValidEntities(t *testing.T) {
	oracle := &mockOracle{fixed: `[
		{"type": "ticket_id", "value": "TK-1042", "confidence": 0.92},
		{"type": "status", "value": "resolved", "confidence": 0.88}
	]`}
	ex := NewExtractor(oracle, testLogger())

	ents, err := ex.Extract(context.Background(), "resolve TK-1042", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("entities = %d, want 2", len(ents))
	}
	if ents[0].Value != "TK-1042" || ents[0].Format() != entity.FormatReference {
		t.Errorf("ticket entity = %+v, want normalized reference", ents[0])
	}
}

func TestExtractDowngradesInvalidIdentifier(t *testing.T) {
	// "the printer one" is not a UUID or reference: 0.9 * 0.5 = 0.45, dropped.
	oracle := &mockOracle{fixed: `[{"type": "ticket_id", "value": "the printer one", "confidence": 0.9}]`}
	ex := NewExtractor(oracle, testLogger())

	ents, err := ex.Extract(context.Background(), "close the printer one", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ents) != 0 {
		t.Fatalf("entities = %v, want invalid identifier dropped", ents)
	}
}

func TestExtractDowngradesUnknownStatus(t *testing.T) {
	// Unknown status downgrades by 0.7: 1.0 * 0.7 = 0.7, kept at the floor.
	oracle := &mockOracle{fixed: `[{"type": "status", "value": "finished", "confidence": 1.0}]`}
	ex := NewExtractor(oracle, testLogger())

	ents, err := ex.Extract(context.Background(), "mark it finished", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("entities = %d, want 1", len(ents))
	}
	if ents[0].Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", ents[0].Confidence)
	}
}

func TestExtractMalformedPayloadIsValidationError(t *testing.T) {
	oracle := &mockOracle{fixed: `the tickets you want are TK-1 and TK-2`}
	ex := NewExtractor(oracle, testLogger())

	_, err := ex.Extract(context.Background(), "whatever", nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestExtractStripsMarkdownFence(t *testing.T) {
	oracle := &mockOracle{fixed: "```json\n[{\"type\": \"topic\", \"value\": \"vpn setup\", \"confidence\": 0.8}]\n```"}
	ex := NewExtractor(oracle, testLogger())

	ents, err := ex.Extract(context.Background(), "article about vpn setup", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ents) != 1 || ents[0].Value != "vpn setup" {
		t.Fatalf("entities = %v, want fenced payload parsed", ents)
	}
}

func TestExtractStructuralSkillsFromContext(t *testing.T) {
	oracle := &mockOracle{fixed: `[]`}
	ex := NewExtractor(oracle, testLogger())
	rc := &RetrievedContext{DomainContext: map[string]any{
		"skills:t-1": []ticket.SkillRequirement{{TicketID: "t-1", SkillName: "french", RequiredProficiency: 4}},
	}}

	ents, err := ex.Extract(context.Background(), "who can take this", rc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("entities = %d, want 1 structural skill", len(ents))
	}
	if ents[0].Type != EntitySkill || ents[0].Confidence != structuralConfidence {
		t.Errorf("skill entity = %+v, want confidence %v", ents[0], structuralConfidence)
	}
}

func TestExtractSkillProficiencyMetadata(t *testing.T) {
	oracle := &mockOracle{fixed: `[
		{"type": "skill", "value": "French", "confidence": 0.9, "metadata": {"proficiency": "2"}},
		{"type": "skill", "value": "German", "confidence": 0.85}
	]`}
	ex := NewExtractor(oracle, testLogger())

	ents, err := ex.Extract(context.Background(), "needs French level 2 and some German", nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	g := Group(ents)
	if len(g.Skills) != 2 {
		t.Fatalf("skills = %d, want 2", len(g.Skills))
	}
	if g.Skills[0].Proficiency != 2 {
		t.Errorf("stated proficiency = %d, want 2", g.Skills[0].Proficiency)
	}
	if g.Skills[1].Proficiency != team.DefaultProficiency {
		t.Errorf("default proficiency = %d, want %d", g.Skills[1].Proficiency, team.DefaultProficiency)
	}
}

func TestExtractStructuralSkillsFromCachedContext(t *testing.T) {
	store := newMockStore()
	store.keywordFn = func(table, query string, limit int) ([]database.SearchHit, error) {
		return []database.SearchHit{{ID: "t-1", Title: "Printer jam"}}, nil
	}
	store.skillsFn = func(ticketID string) ([]ticket.SkillRequirement, error) {
		return []ticket.SkillRequirement{{TicketID: ticketID, SkillName: "french", RequiredProficiency: 3}}, nil
	}
	r := NewRetriever(store, &mockSearcher{}, newMockCache(), retrieverCfg(), testLogger())
	ex := NewExtractor(&mockOracle{fixed: `[]`}, testLogger())

	in := intent.Intent{Action: intent.ActionFind, Target: intent.TargetTicket, Name: "printer"}
	fresh, err := r.Retrieve(context.Background(), in)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	cached, err := r.Retrieve(context.Background(), in)
	if err != nil {
		t.Fatalf("Retrieve (cached): %v", err)
	}
	if got := store.callCount("ListTicketSkills"); got != 1 {
		t.Fatalf("ListTicketSkills calls = %d, want second retrieval served from cache", got)
	}

	for name, rc := range map[string]*RetrievedContext{"fresh": fresh, "cached": cached} {
		ents, err := ex.Extract(context.Background(), "who can take this", rc)
		if err != nil {
			t.Fatalf("Extract (%s): %v", name, err)
		}
		if len(ents) != 1 || ents[0].Type != EntitySkill || ents[0].Value != "french" {
			t.Fatalf("%s context entities = %+v, want one structural skill", name, ents)
		}
		if ents[0].Metadata["proficiency"] != "3" {
			t.Errorf("%s proficiency = %q, want 3", name, ents[0].Metadata["proficiency"])
		}
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := "drucker kaputt: überall Papierstau ééé"
	for n := 1; n < len(s); n++ {
		got := truncate(s, n)
		cut := strings.TrimSuffix(got, "...")
		if !utf8.ValidString(cut) {
			t.Fatalf("truncate(%q, %d) = %q splits a rune", s, n, got)
		}
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate under limit = %q, want unchanged", got)
	}
}

func TestGroupAnnotatesTicketPriority(t *testing.T) {
	g := Group([]entity.Entity{
		{Type: EntityTicketID, Value: "TK-7", Confidence: 0.9, Metadata: map[string]string{"format": entity.FormatReference}},
		{Type: EntityTicketID, Value: "TK-8", Confidence: 0.9, Metadata: map[string]string{"format": entity.FormatReference}},
		{Type: EntityPriority, Value: "high", Confidence: 0.85},
	})
	if len(g.Tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(g.Tickets))
	}
	for _, ref := range g.Tickets {
		if ref.Priority != "high" {
			t.Errorf("ticket %s priority = %q, want high", ref.Value, ref.Priority)
		}
	}
}

func TestGroupSkillDefaultProficiency(t *testing.T) {
	g := Group([]entity.Entity{{Type: EntitySkill, Value: "networking", Confidence: 0.8}})
	if len(g.Skills) != 1 {
		t.Fatalf("skills = %d, want 1", len(g.Skills))
	}
	if g.Skills[0].Proficiency == 0 {
		t.Error("skill proficiency not defaulted")
	}
}
