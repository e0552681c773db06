package domain

import "time"

// DefaultImageURL is used when an article is created without an image.
const DefaultImageURL = "https://via.placeholder.com/150/CCCCCC/FFFFFF?text=No+Image"

// Article represents a published news article. Author and OwnerID are
// derived from the creator's verified identity, never from client input.
type Article struct {
	ID            string
	OwnerID       string
	Author        string
	Title         string
	Slug          string
	Content       string
	Category      string
	ImageURL      string
	PublishedDate time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ArticlePatch carries a partial article update. Nil fields are left
// untouched.
type ArticlePatch struct {
	Title         *string
	Content       *string
	Category      *string
	ImageURL      *string
	PublishedDate *time.Time
}
