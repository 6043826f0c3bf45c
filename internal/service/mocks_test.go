package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/article"
	"github.com/Strob0t/DeskForge/internal/domain/audit"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/domain/rollback"
	"github.com/Strob0t/DeskForge/internal/domain/team"
	"github.com/Strob0t/DeskForge/internal/domain/ticket"
	"github.com/Strob0t/DeskForge/internal/port/database"
	"github.com/Strob0t/DeskForge/internal/port/vector"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore implements database.Store with overridable behavior per method.
// Unset methods return not-found or empty results. Call counts are tracked
// per method name.
type mockStore struct {
	mu    sync.Mutex
	calls map[string]int

	selectFn     func(table string, conds []plan.Condition) ([]database.Row, error)
	insertFn     func(table string, data database.Row) (database.Row, error)
	updateFn     func(table string, data database.Row, conds []plan.Condition) ([]database.Row, error)
	deleteFn     func(table string, conds []plan.Condition) (int64, error)
	titleFn      func(table, title string) (string, error)
	referenceFn  func(table, reference string) (string, error)
	keywordFn    func(table, query string, limit int) ([]database.SearchHit, error)
	ticketFn     func(id string) (*ticket.Ticket, error)
	articleFn    func(id string) (*article.Article, error)
	teamFn       func(name string) (*team.Team, error)
	memberFn     func(name string) (*team.Member, error)
	categoryFn   func(name string) (*article.Category, error)
	statsFn      func(categoryID string) (*database.CategoryStats, error)
	skillsFn     func(ticketID string) ([]ticket.SkillRequirement, error)
	countFn      func(teamID string) (int, error)
	assignFn     func(memberID, teamID string) error
	appendFn     func(rec *audit.Record) error
	listAuditFn  func(f audit.Filter) ([]audit.Record, error)
	createCpFn   func(cp *rollback.Checkpoint) error
	getCpFn      func(id string) (*rollback.Checkpoint, error)
	updateCpFn   func(cp *rollback.Checkpoint) error
}

func newMockStore() *mockStore {
	return &mockStore{calls: map[string]int{}}
}

func (m *mockStore) bump(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
}

func (m *mockStore) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockStore) Select(_ context.Context, table string, conds []plan.Condition) ([]database.Row, error) {
	m.bump("Select")
	if m.selectFn != nil {
		return m.selectFn(table, conds)
	}
	return nil, nil
}

func (m *mockStore) Insert(_ context.Context, table string, data database.Row) (database.Row, error) {
	m.bump("Insert")
	if m.insertFn != nil {
		return m.insertFn(table, data)
	}
	out := database.Row{"id": "generated-id"}
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) Update(_ context.Context, table string, data database.Row, conds []plan.Condition) ([]database.Row, error) {
	m.bump("Update")
	if m.updateFn != nil {
		return m.updateFn(table, data, conds)
	}
	return []database.Row{data}, nil
}

func (m *mockStore) Delete(_ context.Context, table string, conds []plan.Condition) (int64, error) {
	m.bump("Delete")
	if m.deleteFn != nil {
		return m.deleteFn(table, conds)
	}
	return 0, nil
}

func (m *mockStore) LookupIDByTitle(_ context.Context, table, title string) (string, error) {
	m.bump("LookupIDByTitle")
	if m.titleFn != nil {
		return m.titleFn(table, title)
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNotFound, title)
}

func (m *mockStore) LookupIDByReference(_ context.Context, table, reference string) (string, error) {
	m.bump("LookupIDByReference")
	if m.referenceFn != nil {
		return m.referenceFn(table, reference)
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNotFound, reference)
}

func (m *mockStore) KeywordSearch(_ context.Context, table, query string, limit int) ([]database.SearchHit, error) {
	m.bump("KeywordSearch")
	if m.keywordFn != nil {
		return m.keywordFn(table, query, limit)
	}
	return nil, nil
}

func (m *mockStore) GetTicket(_ context.Context, id string) (*ticket.Ticket, error) {
	m.bump("GetTicket")
	if m.ticketFn != nil {
		return m.ticketFn(id)
	}
	return nil, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, id)
}

func (m *mockStore) GetArticle(_ context.Context, id string) (*article.Article, error) {
	m.bump("GetArticle")
	if m.articleFn != nil {
		return m.articleFn(id)
	}
	return nil, fmt.Errorf("%w: article %s", domain.ErrNotFound, id)
}

func (m *mockStore) GetTeamByName(_ context.Context, name string) (*team.Team, error) {
	m.bump("GetTeamByName")
	if m.teamFn != nil {
		return m.teamFn(name)
	}
	return nil, fmt.Errorf("%w: team %s", domain.ErrNotFound, name)
}

func (m *mockStore) GetMemberByName(_ context.Context, name string) (*team.Member, error) {
	m.bump("GetMemberByName")
	if m.memberFn != nil {
		return m.memberFn(name)
	}
	return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, name)
}

func (m *mockStore) GetCategoryByName(_ context.Context, name string) (*article.Category, error) {
	m.bump("GetCategoryByName")
	if m.categoryFn != nil {
		return m.categoryFn(name)
	}
	return nil, fmt.Errorf("%w: category %s", domain.ErrNotFound, name)
}

func (m *mockStore) GetCategoryStats(_ context.Context, categoryID string) (*database.CategoryStats, error) {
	m.bump("GetCategoryStats")
	if m.statsFn != nil {
		return m.statsFn(categoryID)
	}
	return nil, fmt.Errorf("%w: stats %s", domain.ErrNotFound, categoryID)
}

func (m *mockStore) ListTicketSkills(_ context.Context, ticketID string) ([]ticket.SkillRequirement, error) {
	m.bump("ListTicketSkills")
	if m.skillsFn != nil {
		return m.skillsFn(ticketID)
	}
	return nil, nil
}

func (m *mockStore) CountTeamMembers(_ context.Context, teamID string) (int, error) {
	m.bump("CountTeamMembers")
	if m.countFn != nil {
		return m.countFn(teamID)
	}
	return 0, nil
}

func (m *mockStore) AssignMemberToTeam(_ context.Context, memberID, teamID string) error {
	m.bump("AssignMemberToTeam")
	if m.assignFn != nil {
		return m.assignFn(memberID, teamID)
	}
	return nil
}

func (m *mockStore) AppendAudit(_ context.Context, rec *audit.Record) error {
	m.bump("AppendAudit")
	if m.appendFn != nil {
		return m.appendFn(rec)
	}
	rec.ID = fmt.Sprintf("audit-%d", m.callCount("AppendAudit"))
	return nil
}

func (m *mockStore) ListAudit(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	m.bump("ListAudit")
	if m.listAuditFn != nil {
		return m.listAuditFn(f)
	}
	return nil, nil
}

func (m *mockStore) CreateCheckpoint(_ context.Context, cp *rollback.Checkpoint) error {
	m.bump("CreateCheckpoint")
	if m.createCpFn != nil {
		return m.createCpFn(cp)
	}
	cp.ID = fmt.Sprintf("cp-%d", m.callCount("CreateCheckpoint"))
	return nil
}

func (m *mockStore) GetCheckpoint(_ context.Context, id string) (*rollback.Checkpoint, error) {
	m.bump("GetCheckpoint")
	if m.getCpFn != nil {
		return m.getCpFn(id)
	}
	return nil, fmt.Errorf("%w: checkpoint %s", domain.ErrNotFound, id)
}

func (m *mockStore) UpdateCheckpoint(_ context.Context, cp *rollback.Checkpoint) error {
	m.bump("UpdateCheckpoint")
	if m.updateCpFn != nil {
		return m.updateCpFn(cp)
	}
	return nil
}

// mockOracle returns scripted responses in order, or a fixed response.
type mockOracle struct {
	mu        sync.Mutex
	responses []string
	fixed     string
	err       error
	prompts   []string
}

func (m *mockOracle) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) > 0 {
		r := m.responses[0]
		m.responses = m.responses[1:]
		return r, nil
	}
	return m.fixed, nil
}

// mockSearcher returns fixed vector results and counts calls.
type mockSearcher struct {
	mu      sync.Mutex
	results []vector.Result
	err     error
	calls   int
}

func (m *mockSearcher) Search(_ context.Context, query string, k int, filter map[string]string) ([]vector.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockCache is a plain map cache honoring TTL by entry expiry.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]cacheEntry{}, now: time.Now}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.now().After(e.expires) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry{value: value, expires: m.now().Add(ttl)}
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
