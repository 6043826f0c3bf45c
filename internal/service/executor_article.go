package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/article"
	"github.com/Strob0t/DeskForge/internal/domain/entity"
	"github.com/Strob0t/DeskForge/internal/domain/plan"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// ArticleExecutor builds operation plans for the knowledge base domain.
type ArticleExecutor struct {
	store database.Store
}

func NewArticleExecutor(store database.Store) *ArticleExecutor {
	return &ArticleExecutor{store: store}
}

func (e *ArticleExecutor) Domain() string { return DomainKB }

func (e *ArticleExecutor) Build(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	switch res.Operation {
	case "create":
		return e.buildCreate(res)
	case "update":
		return e.buildUpdate(ctx, res)
	case "publish":
		return e.buildStatusChange(ctx, res, article.StatusPublished)
	case "archive":
		return e.buildStatusChange(ctx, res, article.StatusArchived)
	case "find":
		return e.buildFind(res), nil
	default:
		return nil, fmt.Errorf("%w: unknown kb operation %q", domain.ErrValidation, res.Operation)
	}
}

// buildCreate requires the category already resolved to an ID by retrieval
// enrichment. A category name that never resolved is a validation failure,
// not a silent default.
func (e *ArticleExecutor) buildCreate(res *RoutingResult) (*plan.Plan, error) {
	req := article.CreateRequest{
		Title:   paramString(res.Parameters, "title"),
		Content: paramString(res.Parameters, "content"),
	}
	if req.Content == "" {
		req.Content = paramString(res.Parameters, "query")
	}
	if res.Context != nil {
		if id, ok := res.Context.DomainContext["category_id"].(string); ok {
			req.CategoryID = id
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &plan.Plan{
		Action: plan.ActionInsert,
		Table:  "articles",
		Data: map[string]any{
			"title":       req.Title,
			"content":     req.Content,
			"category_id": req.CategoryID,
			"status":      string(article.StatusDraft),
		},
	}, nil
}

func (e *ArticleExecutor) buildUpdate(ctx context.Context, res *RoutingResult) (*plan.Plan, error) {
	id, err := e.resolveArticleID(ctx, res.Parameters)
	if err != nil {
		return nil, err
	}
	data := map[string]any{}
	if v := paramString(res.Parameters, "title"); v != "" {
		data["title"] = v
	}
	if v := paramString(res.Parameters, "content"); v != "" {
		data["content"] = v
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	return &plan.Plan{
		Action:     plan.ActionUpdate,
		Table:      "articles",
		Data:       data,
		Conditions: []plan.Condition{{Field: "id", Value: id, Kind: entity.FormatUUID}},
	}, nil
}

// buildStatusChange loads the article before planning so a missing article
// fails here with not-found instead of surfacing as an empty update.
func (e *ArticleExecutor) buildStatusChange(ctx context.Context, res *RoutingResult, next article.Status) (*plan.Plan, error) {
	id, err := e.resolveArticleID(ctx, res.Parameters)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetArticle(ctx, id); err != nil {
		return nil, fmt.Errorf("load article %s: %w", id, err)
	}
	return &plan.Plan{
		Action:     plan.ActionUpdate,
		Table:      "articles",
		Data:       map[string]any{"status": string(next)},
		Conditions: []plan.Condition{{Field: "id", Value: id, Kind: entity.FormatUUID}},
	}, nil
}

func (e *ArticleExecutor) buildFind(res *RoutingResult) *plan.Plan {
	p := &plan.Plan{Action: plan.ActionSelect, Table: "articles"}
	if res.Context != nil {
		if id, ok := res.Context.DomainContext["category_id"].(string); ok {
			p.Conditions = append(p.Conditions, plan.Condition{Field: "category_id", Value: id})
		}
	}
	if v := paramString(res.Parameters, "status"); v != "" {
		p.Conditions = append(p.Conditions, plan.Condition{Field: "status", Value: v})
	}
	return p
}

func (e *ArticleExecutor) resolveArticleID(ctx context.Context, params map[string]any) (string, error) {
	raw := paramString(params, "article_id")
	if raw == "" {
		return "", fmt.Errorf("%w: article_id", domain.ErrMissingParameters)
	}
	n := entity.Normalize(raw, entity.KindArticle)
	switch n.Format {
	case entity.FormatUUID:
		return n.Value, nil
	case entity.FormatReference:
		id, err := e.store.LookupIDByReference(ctx, "articles", n.Value)
		if err != nil {
			return "", fmt.Errorf("resolve article reference %q: %w", n.Value, err)
		}
		return id, nil
	default:
		id, err := e.store.LookupIDByTitle(ctx, "articles", n.Value)
		if err != nil {
			return "", fmt.Errorf("resolve article title %q: %w", n.Value, err)
		}
		return id, nil
	}
}
