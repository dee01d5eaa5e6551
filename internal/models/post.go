package models

import (
	"strings"
	"time"
)

// Post limits, in characters.
const (
	MaxTitleLength = 50
	MinBodyLength  = 500
)

// Category is the fixed set of topics a post can belong to.
type Category string

const (
	CategoryAI         Category = "AI"
	CategoryBusiness   Category = "Business"
	CategoryMoney      Category = "Money"
	CategoryTechnology Category = "Technology"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryAI, CategoryTechnology, CategoryBusiness, CategoryMoney}

// ParseCategory resolves s case-insensitively. "Artificial Intelligence" is accepted for AI.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "Artificial Intelligence") {
		return CategoryAI, true
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Post is a full blog post.
type Post struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Category     Category  `json:"category"`
	CommentCount int       `json:"comment_count"`
	AuthorName   string    `json:"author_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostSummary is the list view of a post, without its body.
type PostSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     Category  `json:"category"`
	AuthorName   string    `json:"author_name"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
