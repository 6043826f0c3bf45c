// Package article provides the domain model for knowledge-base articles.
package article

import (
	"fmt"
	"time"

	"github.com/Strob0t/DeskForge/internal/domain"
)

// Status represents the publication state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Article represents a knowledge-base article.
type Article struct {
	ID         string    `json:"id"`
	Reference  string    `json:"reference"` // short code, e.g. KB-42
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CategoryID string    `json:"category_id"`
	Status     Status    `json:"status"`
	AuthorID   string    `json:"author_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Category classifies articles. Category names are resolved to IDs by the
// context retriever; executors only accept resolved IDs.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ArticleCount int    `json:"article_count,omitempty"`
}

// CreateRequest holds the input for creating an article.
// CategoryID must already be resolved; a bare category name is rejected.
type CreateRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"category_id"`
	AuthorID   string `json:"author_id,omitempty"`
}

// Validate checks that a CreateRequest is well-formed.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if r.CategoryID == "" {
		return fmt.Errorf("%w: resolved category id is required", domain.ErrValidation)
	}
	return nil
}
