// Package vector defines the vector similarity search port (interface).
// The embedding index itself lives in an external worker; this port only
// specifies the search contract the pipeline consumes.
package vector

import "context"

// Metadata carries the record identity and score of one search result.
type Metadata struct {
	ID    string         `json:"id"`
	Table string         `json:"table,omitempty"`
	Score float64        `json:"score"`
	Extra map[string]any `json:"extra,omitempty"`
}

// Result is one vector similarity hit, ranked descending by score.
type Result struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Searcher is the port interface for vector similarity search.
type Searcher interface {
	// Search returns the top k results for the query, optionally filtered
	// (e.g. by record type). Results are ordered by descending similarity.
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error)
}
