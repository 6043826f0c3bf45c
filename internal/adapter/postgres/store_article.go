package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/domain/article"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// GetArticle retrieves an article by ID.
func (s *Store) GetArticle(ctx context.Context, id string) (*article.Article, error) {
	const q = `
		SELECT id, reference, title, content, category_id, status, author_id, created_at, updated_at
		FROM articles
		WHERE id = $1`

	var a article.Article
	var author *string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.Reference, &a.Title, &a.Content, &a.CategoryID, &a.Status,
		&author, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get article %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	if author != nil {
		a.AuthorID = *author
	}
	return &a, nil
}

// GetCategoryByName resolves a category name to its record (case-insensitive).
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*article.Category, error) {
	const q = `
		SELECT id, name
		FROM categories
		WHERE LOWER(name) = LOWER($1)`

	var c article.Category
	err := s.pool.QueryRow(ctx, q, name).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	return &c, nil
}

// GetCategoryStats computes aggregate article counts for a category.
func (s *Store) GetCategoryStats(ctx context.Context, categoryID string) (*database.CategoryStats, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'published'),
		       COUNT(*) FILTER (WHERE status = 'draft')
		FROM articles
		WHERE category_id = $1`

	stats := database.CategoryStats{CategoryID: categoryID}
	err := s.pool.QueryRow(ctx, q, categoryID).Scan(
		&stats.ArticleCount, &stats.PublishedCount, &stats.DraftCount,
	)
	if err != nil {
		return nil, fmt.Errorf("category stats %s: %w", categoryID, err)
	}
	return &stats, nil
}
