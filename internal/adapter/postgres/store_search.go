package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/port/database"
)

// titleColumns maps searchable tables to their human-readable title column.
var titleColumns = map[string]string{
	"tickets":  "title",
	"articles": "title",
	"teams":    "name",
	"members":  "name",
}

// LookupIDByTitle resolves a human-readable title to a record ID.
// An ambiguous title resolves to the most recently created match.
func (s *Store) LookupIDByTitle(ctx context.Context, table, title string) (string, error) {
	col, ok := titleColumns[table]
	if !ok {
		return "", fmt.Errorf("%w: table %q has no title column", domain.ErrValidation, table)
	}

	q := fmt.Sprintf(
		"SELECT id FROM %s WHERE LOWER(%s) = LOWER($1) ORDER BY created_at DESC LIMIT 1", table, col)

	var id string
	if err := s.pool.QueryRow(ctx, q, title).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s titled %q: %w", table, title, domain.ErrNotFound)
		}
		return "", fmt.Errorf("lookup %s by title: %w", table, err)
	}
	return id, nil
}

// LookupIDByReference resolves a short reference code (e.g. TK-123) to a
// record ID.
func (s *Store) LookupIDByReference(ctx context.Context, table, reference string) (string, error) {
	if err := checkTable(table); err != nil {
		return "", err
	}

	q := fmt.Sprintf("SELECT id FROM %s WHERE reference = $1", table)

	var id string
	if err := s.pool.QueryRow(ctx, q, reference).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s reference %q: %w", table, reference, domain.ErrNotFound)
		}
		return "", fmt.Errorf("lookup %s by reference: %w", table, err)
	}
	return id, nil
}

// searchColumns maps searchable tables to the text columns indexed for
// full-text search.
var searchColumns = map[string][2]string{
	"tickets":  {"title", "description"},
	"articles": {"title", "content"},
	"teams":    {"name", "description"},
}

// KeywordSearch runs a ranked full-text query against a table. Results feed
// the retriever's keyword half of the hybrid search.
func (s *Store) KeywordSearch(ctx context.Context, table, query string, limit int) ([]database.SearchHit, error) {
	cols, ok := searchColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: table %q is not searchable", domain.ErrValidation, table)
	}

	q := fmt.Sprintf(`
		SELECT id, %s,
		       ts_rank(to_tsvector('english', %s || ' ' || COALESCE(%s, '')),
		               plainto_tsquery('english', $1)) AS rank
		FROM %s
		WHERE to_tsvector('english', %s || ' ' || COALESCE(%s, '')) @@ plainto_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $2`,
		cols[0], cols[0], cols[1], table, cols[0], cols[1])

	rows, err := s.pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search %s: %w", table, err)
	}
	defer rows.Close()

	var hits []database.SearchHit
	for rows.Next() {
		hit := database.SearchHit{Table: table}
		if err := rows.Scan(&hit.ID, &hit.Title, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
