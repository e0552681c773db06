package repository

import (
	"context"

	"newsroom/internal/domain"
)

// ArticleRepository exposes persistence operations for Article aggregates.
type ArticleRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, article *domain.Article) error
	Update(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Article, error)
	// List returns all articles sorted by published date descending.
	List(ctx context.Context) ([]domain.Article, error)
	// Search returns articles whose title, content, category, or author
	// contains query case-insensitively, sorted by published date descending.
	Search(ctx context.Context, query string) ([]domain.Article, error)
}
