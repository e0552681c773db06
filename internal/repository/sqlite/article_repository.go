package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsroom/internal/domain"
	"newsroom/internal/repository"
)

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users(id),
	author TEXT NOT NULL,
	title TEXT NOT NULL,
	slug TEXT NOT NULL,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	published_date DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const articleColumns = `id, owner_id, author, title, slug, content, category, image_url, published_date, created_at, updated_at`

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createArticlesTable); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_published_date ON articles (published_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_slug ON articles (slug)`,
	}
	for _, stmt := range indexes {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create articles index: %w", err)
		}
	}
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO articles (`+articleColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID,
		article.OwnerID,
		article.Author,
		article.Title,
		article.Slug,
		article.Content,
		article.Category,
		article.ImageURL,
		article.PublishedDate,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Update(ctx context.Context, article *domain.Article) error {
	article.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET author = ?, title = ?, slug = ?, content = ?, category = ?, image_url = ?, published_date = ?, updated_at = ?
WHERE id = ?`,
		article.Author,
		article.Title,
		article.Slug,
		article.Content,
		article.Category,
		article.ImageURL,
		article.PublishedDate,
		article.UpdatedAt,
		article.ID,
	)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update article rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete article rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE id = ?`,
		id,
	)
	return scanArticle(row)
}

func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE slug = ?
ORDER BY published_date DESC
LIMIT 1`,
		slug,
	)
	return scanArticle(row)
}

func (r *ArticleRepository) List(ctx context.Context) ([]domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles
ORDER BY published_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

func (r *ArticleRepository) Search(ctx context.Context, query string) ([]domain.Article, error) {
	// Case-insensitive substring match across the searchable text fields.
	// LIKE special characters in the query are escaped so they match
	// literally.
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := r.db.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE lower(title) LIKE ? ESCAPE '\'
   OR lower(content) LIKE ? ESCAPE '\'
   OR lower(category) LIKE ? ESCAPE '\'
   OR lower(author) LIKE ? ESCAPE '\'
ORDER BY published_date DESC`,
		pattern, pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func collectArticles(rows *sql.Rows) ([]domain.Article, error) {
	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func scanArticle(row interface {
	Scan(dest ...any) error
}) (*domain.Article, error) {
	var article domain.Article
	if err := row.Scan(
		&article.ID,
		&article.OwnerID,
		&article.Author,
		&article.Title,
		&article.Slug,
		&article.Content,
		&article.Category,
		&article.ImageURL,
		&article.PublishedDate,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return &article, nil
}
