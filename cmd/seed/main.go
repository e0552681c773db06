// Command seed populates the database with a bootstrap admin account and
// a handful of sample articles for local development.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"newsroom/internal/config"
	"newsroom/internal/domain"
	"newsroom/internal/repository/sqlite"
)

const (
	adminUsername = "admin"
	adminEmail    = "admin@newsroom.local"
	adminPassword = "changeme-now"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	articleRepo := sqlite.NewArticleRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := articleRepo.Init(ctx); err != nil {
		logger.Fatalf("init article repository: %v", err)
	}

	admin, err := userRepo.GetByEmail(ctx, adminEmail)
	switch {
	case err == nil:
		logger.Infof("admin account already present (%s)", admin.Username)
	case errors.Is(err, domain.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), 10)
		if err != nil {
			logger.Fatalf("hash admin password: %v", err)
		}
		admin = &domain.User{
			ID:           uuid.NewString(),
			Username:     adminUsername,
			Email:        adminEmail,
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			logger.Fatalf("create admin account: %v", err)
		}
		logger.Infof("created admin account %s (change the password)", adminEmail)
	default:
		logger.Fatalf("look up admin account: %v", err)
	}

	existing, err := articleRepo.List(ctx)
	if err != nil {
		logger.Fatalf("list articles: %v", err)
	}
	if len(existing) > 0 {
		logger.Infof("articles already present (%d), skipping seed data", len(existing))
		return
	}

	for _, sample := range sampleArticles {
		article := sample
		article.ID = uuid.NewString()
		article.OwnerID = admin.ID
		article.Author = admin.Username
		article.Slug = slug.Make(article.Title)
		article.ImageURL = domain.DefaultImageURL
		if err := articleRepo.Create(ctx, &article); err != nil {
			logger.Fatalf("seed article %q: %v", article.Title, err)
		}
	}
	logger.Infof("seeded %d articles", len(sampleArticles))
}

var sampleArticles = []domain.Article{
	{
		Title:         "Global Markets See Unexpected Surge",
		Content:       "Analysts are scrambling to understand the sudden upward trend in global stock markets, attributing it to a combination of strong corporate earnings and decreasing inflation fears.",
		Category:      "Economy",
		PublishedDate: time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC),
	},
	{
		Title:         "New Study Reveals Benefits of Mindfulness in Workplace",
		Content:       "A groundbreaking research paper from leading universities suggests that daily mindfulness practices significantly improve employee productivity and reduce stress levels.",
		Category:      "Health",
		PublishedDate: time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC),
	},
	{
		Title:         "Arctic Ice Melt Accelerates, Posing Climate Challenges",
		Content:       "Satellite data indicates a concerning acceleration in Arctic sea ice melt, prompting urgent calls from environmental scientists for immediate climate action.",
		Category:      "Environment",
		PublishedDate: time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC),
	},
	{
		Title:         "Tech Giant Unveils Revolutionary AI Chip",
		Content:       "InnovateCorp announced today a breakthrough in artificial intelligence hardware, claiming their new chip will dramatically accelerate AI computations.",
		Category:      "Technology",
		PublishedDate: time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC),
	},
	{
		Title:         "City Marathon Breaks Participation Records",
		Content:       "Thousands of runners took to the streets for the annual city marathon, setting a new record for participants and raising millions for charity.",
		Category:      "Sports",
		PublishedDate: time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC),
	},
}
