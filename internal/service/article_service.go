package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"newsroom/internal/domain"
	"newsroom/internal/repository"
)

// ArticleInput carries the client-supplied fields for article creation.
// Owner and author are always taken from the verified identity instead.
type ArticleInput struct {
	Title         string
	Content       string
	Category      string
	ImageURL      string
	PublishedDate *time.Time
}

// ArticleService describes article lifecycle operations. Mutations take
// the requester's identity and enforce the ownership rule: only the
// owning user or an admin may change or delete an article.
type ArticleService interface {
	List(ctx context.Context, query string) ([]domain.Article, error)
	Get(ctx context.Context, id string) (*domain.Article, error)
	GetBySlug(ctx context.Context, s string) (*domain.Article, error)
	Create(ctx context.Context, identity domain.Identity, input ArticleInput) (*domain.Article, error)
	Update(ctx context.Context, identity domain.Identity, id string, patch domain.ArticlePatch) (*domain.Article, error)
	Delete(ctx context.Context, identity domain.Identity, id string) error
}

type articleService struct {
	articles repository.ArticleRepository
}

func NewArticleService(articles repository.ArticleRepository) ArticleService {
	return &articleService{articles: articles}
}

func (s *articleService) List(ctx context.Context, query string) ([]domain.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.articles.List(ctx)
	}
	return s.articles.Search(ctx, query)
}

func (s *articleService) Get(ctx context.Context, id string) (*domain.Article, error) {
	if err := validateArticleID(id); err != nil {
		return nil, err
	}
	return s.articles.Get(ctx, id)
}

func (s *articleService) GetBySlug(ctx context.Context, articleSlug string) (*domain.Article, error) {
	if strings.TrimSpace(articleSlug) == "" {
		return nil, domain.Validationf("slug is required")
	}
	return s.articles.GetBySlug(ctx, articleSlug)
}

func (s *articleService) Create(ctx context.Context, identity domain.Identity, input ArticleInput) (*domain.Article, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	category := strings.TrimSpace(input.Category)

	if title == "" || content == "" || category == "" {
		return nil, domain.Validationf("title, content, and category are required")
	}

	imageURL := strings.TrimSpace(input.ImageURL)
	if imageURL == "" {
		imageURL = domain.DefaultImageURL
	}
	published := time.Now().UTC()
	if input.PublishedDate != nil {
		published = input.PublishedDate.UTC()
	}

	article := &domain.Article{
		ID:            uuid.NewString(),
		OwnerID:       identity.UserID,
		Author:        identity.Username,
		Title:         title,
		Slug:          slug.Make(title),
		Content:       content,
		Category:      category,
		ImageURL:      imageURL,
		PublishedDate: published,
	}

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

func (s *articleService) Update(ctx context.Context, identity domain.Identity, id string, patch domain.ArticlePatch) (*domain.Article, error) {
	if err := validateArticleID(id); err != nil {
		return nil, err
	}

	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutation(identity, article); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.Validationf("title cannot be empty")
		}
		article.Title = title
		article.Slug = slug.Make(title)
	}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, domain.Validationf("content cannot be empty")
		}
		article.Content = content
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return nil, domain.Validationf("category cannot be empty")
		}
		article.Category = category
	}
	if patch.ImageURL != nil {
		article.ImageURL = strings.TrimSpace(*patch.ImageURL)
		if article.ImageURL == "" {
			article.ImageURL = domain.DefaultImageURL
		}
	}
	if patch.PublishedDate != nil {
		article.PublishedDate = patch.PublishedDate.UTC()
	}

	if err := s.articles.Update(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

func (s *articleService) Delete(ctx context.Context, identity domain.Identity, id string) error {
	if err := validateArticleID(id); err != nil {
		return err
	}

	article, err := s.articles.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeMutation(identity, article); err != nil {
		return err
	}
	return s.articles.Delete(ctx, article.ID)
}

// authorizeMutation is the ownership gate: the requester must own the
// article or hold the admin role. The switch is exhaustive over
// domain.Role; unknown roles fail closed.
func authorizeMutation(identity domain.Identity, article *domain.Article) error {
	switch identity.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleUser:
		if identity.UserID != "" && identity.UserID == article.OwnerID {
			return nil
		}
		return domain.ErrForbidden
	default:
		return domain.ErrForbidden
	}
}

func validateArticleID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrMalformedID
	}
	return nil
}
