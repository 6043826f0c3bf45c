// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/DeskForge/internal/domain/article"
	"github.com/Strob0t/DeskForge/internal/domain/audit"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/rollback"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
)

// Row is a generic record returned by table-oriented reads and writes.
type Row = map[string]any

// SearchHit is one keyword (full-text) search result.
type SearchHit struct {
	ID      string  `json:"id"`
	Table   string  `json:"table"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
	Fields  Row     `json:"fields,omitempty"`
}

// CategoryStats are aggregate figures for an article category. Computed by
// the store; failures to compute them are optional-enrichment failures.
type CategoryStats struct {
	CategoryID     string `json:"category_id"`
	ArticleCount   int    `json:"article_count"`
	PublishedCount int    `json:"published_count"`
	DraftCount     int    `json:"draft_count"`
}

// Store is the port interface for the relational store. Absence of an error
// implies success on every method.
type Store interface {
	// Table-oriented operations interpreted from operation plans.
	// Conditions carry equality predicates whose values are concrete keys;
	// title/name resolution happens before these are called.
	Select(ctx context.Context, table string, conds []plan.Condition) ([]Row, error)
	Insert(ctx context.Context, table string, data Row) (Row, error)
	Update(ctx context.Context, table string, data Row, conds []plan.Condition) ([]Row, error)
	Delete(ctx context.Context, table string, conds []plan.Condition) (int64, error)

	// Identifier resolution for non-key condition values.
	LookupIDByTitle(ctx context.Context, table, title string) (string, error)
	LookupIDByReference(ctx context.Context, table, reference string) (string, error)

	// Keyword full-text search, unioned with vector results by the retriever.
	KeywordSearch(ctx context.Context, table, query string, limit int) ([]SearchHit, error)

	// Typed reads used by executors, enrichment and rollback reverts.
	GetTicket(ctx context.Context, id string) (*ticket.Ticket, error)
	GetArticle(ctx context.Context, id string) (*article.Article, error)
	GetTeamByName(ctx context.Context, name string) (*team.Team, error)
	GetMemberByName(ctx context.Context, name string) (*team.Member, error)
	GetCategoryByName(ctx context.Context, name string) (*article.Category, error)
	GetCategoryStats(ctx context.Context, categoryID string) (*CategoryStats, error)
	ListTicketSkills(ctx context.Context, ticketID string) ([]ticket.SkillRequirement, error)
	CountTeamMembers(ctx context.Context, teamID string) (int, error)

	// Named server-side procedure for multi-step membership logic.
	AssignMemberToTeam(ctx context.Context, memberID, teamID string) error

	// Audit ledger (append-only).
	AppendAudit(ctx context.Context, rec *audit.Record) error
	ListAudit(ctx context.Context, f audit.Filter) ([]audit.Record, error)

	// Rollback checkpoint ledger.
	CreateCheckpoint(ctx context.Context, cp *rollback.Checkpoint) error
	GetCheckpoint(ctx context.Context, id string) (*rollback.Checkpoint, error)
	UpdateCheckpoint(ctx context.Context, cp *rollback.Checkpoint) error
}
