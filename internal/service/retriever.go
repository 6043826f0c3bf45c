package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/DeskForge/internal/config"
	"github.com/Strob0t/DeskForge/internal/domain/intent"
	"github.com/Strob0t/DeskForge/internal/port/cache"
	"github.com/Strob0t/DeskForge/internal/port/database"
	"github.com/Strob0t/DeskForge/internal/port/vector"
)

// ContextRecord is a single document surfaced by context retrieval.
type ContextRecord struct {
	ID      string         `json:"id"`
	Table   string         `json:"table"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Score   float64        `json:"score"`
	Source  string         `json:"source"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// RetrievedContext carries everything retrieval gathered for an intent.
type RetrievedContext struct {
	VectorResults    []ContextRecord `json:"vector_results"`
	RelatedDocuments []ContextRecord `json:"related_documents"`
	DomainContext    map[string]any  `json:"domain_context"`
}

const (
	sourceVector  = "vector"
	sourceKeyword = "keyword"
)

// defaultPhrases stand in for the search query when the intent carries no
// usable free text.
var defaultPhrases = map[intent.Target]string{
	intent.TargetTicket:  "support ticket issue",
	intent.TargetArticle: "knowledge base article",
	intent.TargetTeam:    "support team",
	intent.TargetUser:    "support team member",
}

// targetTables maps an intent target to the table searched for it.
var targetTables = map[intent.Target]string{
	intent.TargetTicket:  "tickets",
	intent.TargetArticle: "articles",
	intent.TargetTeam:    "teams",
	intent.TargetUser:    "members",
}

// RetrieverService gathers vector and keyword context for an intent and
// enriches it with domain lookups. Results are cached by intent fingerprint.
type RetrieverService struct {
	store  database.Store
	search vector.Searcher
	cache  cache.Cache
	cfg    config.Retriever
	logger *slog.Logger
}

func NewRetriever(store database.Store, search vector.Searcher, c cache.Cache, cfg config.Retriever, logger *slog.Logger) *RetrieverService {
	return &RetrieverService{
		store:  store,
		search: search,
		cache:  c,
		cfg:    cfg,
		logger: logger,
	}
}

// Retrieve returns context for the intent, serving repeated identical intents
// from cache until the entry expires.
func (s *RetrieverService) Retrieve(ctx context.Context, in intent.Intent) (*RetrievedContext, error) {
	key := "retrieval:" + in.Fingerprint()
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached RetrievedContext
		if err := json.Unmarshal(raw, &cached); err == nil {
			s.logger.Debug("retrieval cache hit", "fingerprint", in.Fingerprint())
			return &cached, nil
		}
		s.cache.Delete(ctx, key)
	}

	query := in.SearchText()
	if query == "" {
		query = defaultPhrases[in.Target]
	}
	table := targetTables[in.Target]
	if table == "" {
		table = "tickets"
	}

	searchCtx := ctx
	if s.cfg.SearchBudget > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.cfg.SearchBudget)
		defer cancel()
	}

	var (
		vecResults []vector.Result
		kwHits     []database.SearchHit
	)
	g, gctx := errgroup.WithContext(searchCtx)
	g.Go(func() error {
		results, err := s.search.Search(gctx, query, s.cfg.TopK, map[string]string{"table": table})
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vecResults = results
		return nil
	})
	g.Go(func() error {
		hits, err := s.store.KeywordSearch(gctx, table, query, s.cfg.TopK)
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		kwHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	rc := s.merge(vecResults, kwHits, table)
	s.enrich(ctx, in, rc)

	if raw, err := json.Marshal(rc); err == nil {
		s.cache.Set(ctx, key, raw, s.cfg.CacheTTL)
	}
	return rc, nil
}

// merge unions vector and keyword results by record ID. When both channels
// return the same record the vector result wins because it carries metadata.
func (s *RetrieverService) merge(vec []vector.Result, kw []database.SearchHit, table string) *RetrievedContext {
	rc := &RetrievedContext{DomainContext: map[string]any{}}
	seen := make(map[string]bool, len(vec)+len(kw))

	for _, r := range vec {
		rec := ContextRecord{
			ID:      r.Metadata.ID,
			Table:   r.Metadata.Table,
			Content: r.Content,
			Score:   r.Metadata.Score,
			Source:  sourceVector,
		}
		if rec.Table == "" {
			rec.Table = table
		}
		if len(r.Metadata.Extra) > 0 {
			rec.Fields = make(map[string]any, len(r.Metadata.Extra))
			for k, v := range r.Metadata.Extra {
				rec.Fields[k] = v
			}
			if t, ok := r.Metadata.Extra["title"].(string); ok {
				rec.Title = t
			}
		}
		rc.VectorResults = append(rc.VectorResults, rec)
		rc.RelatedDocuments = append(rc.RelatedDocuments, rec)
		if rec.ID != "" {
			seen[rec.ID] = true
		}
	}
	for _, h := range kw {
		if h.ID != "" && seen[h.ID] {
			continue
		}
		rc.RelatedDocuments = append(rc.RelatedDocuments, ContextRecord{
			ID:      h.ID,
			Table:   table,
			Title:   h.Title,
			Content: h.Snippet,
			Score:   h.Score,
			Source:  sourceKeyword,
			Fields:  h.Fields,
		})
	}
	return rc
}

// enrich adds domain lookups to the context. Enrichment is best effort and a
// failed lookup never fails retrieval.
func (s *RetrieverService) enrich(ctx context.Context, in intent.Intent, rc *RetrievedContext) {
	switch in.Target {
	case intent.TargetArticle:
		name, _ := in.Criteria["category"].(string)
		if name != "" {
			if cat, err := s.store.GetCategoryByName(ctx, name); err == nil {
				rc.DomainContext["category_id"] = cat.ID
				rc.DomainContext["category_name"] = cat.Name
				if stats, err := s.store.GetCategoryStats(ctx, cat.ID); err == nil {
					rc.DomainContext["category_stats"] = stats
				}
			} else {
				s.logger.Debug("category enrichment skipped", "category", name, "error", err)
			}
		}
	case intent.TargetTeam, intent.TargetUser:
		name := in.Name
		if name == "" {
			name, _ = in.Criteria["team"].(string)
		}
		if name != "" {
			if tm, err := s.store.GetTeamByName(ctx, name); err == nil {
				rc.DomainContext["team_id"] = tm.ID
				rc.DomainContext["team_name"] = tm.Name
				if n, err := s.store.CountTeamMembers(ctx, tm.ID); err == nil {
					rc.DomainContext["member_count"] = n
				}
			} else {
				s.logger.Debug("team enrichment skipped", "team", name, "error", err)
			}
		}
	case intent.TargetTicket:
		for _, doc := range rc.RelatedDocuments {
			if doc.Table != "tickets" || doc.ID == "" {
				continue
			}
			skills, err := s.store.ListTicketSkills(ctx, doc.ID)
			if err != nil || len(skills) == 0 {
				continue
			}
			rc.DomainContext["skills:"+doc.ID] = skills
		}
	}
}
