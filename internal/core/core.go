// Package core defines the shared domain types for the article history and
// duplicate-detection subsystem.
package core

import "time"

// Product references an affiliate product mentioned in an article. Persisted
// alongside the article record as opaque context for reporting.
type Product struct {
	Name        string   `json:"name"`
	Category    string   `json:"category,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	PriceRange  string   `json:"price_range,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// ArticleRecord is one published article as stored in the history. Records are
// write-once: once appended they are never mutated or deleted.
type ArticleRecord struct {
	ID            int       `json:"id"`             // Monotonically assigned, starting at 1
	Title         string    `json:"title"`          // Article title
	Content       string    `json:"content"`        // De-linked article body used for comparison
	ContentHash   string    `json:"content_hash"`   // Hex digest of the normalized content
	ContentLength int       `json:"content_length"` // Character (rune) count of Content
	Category      string    `json:"category"`       // Free-text classification tag
	ArticleType   string    `json:"article_type"`   // Free-text classification tag
	Tags          []string  `json:"tags"`           // Ordered tag list
	Products      []Product `json:"products"`       // Products featured in the article
	CreatedAt     time.Time `json:"created_at"`     // Set at insertion, never mutated
	NoteURL       string    `json:"note_url"`       // Publication URL, may be empty at insertion
	Keywords      []string  `json:"keywords"`       // Dictionary keywords found in Content
}

// ArticleInput carries the caller-supplied fields for a new history entry.
// Every field is optional; derived fields (hash, length, keywords, id,
// timestamp) are computed at insertion.
type ArticleInput struct {
	Title       string
	Content     string
	Category    string
	ArticleType string
	Tags        []string
	Products    []Product
	NoteURL     string
}

// SimilarityMatch is one historical article that scored at or above the
// requested threshold during a quick similarity scan.
type SimilarityMatch struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Similarity  float64   `json:"similarity"`
	CreatedAt   time.Time `json:"created_at"`
	Category    string    `json:"category"`
	ArticleType string    `json:"article_type"`
}

// Stats aggregates the history for reporting.
type Stats struct {
	TotalArticles        int            `json:"total_articles"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	TypeDistribution     map[string]int `json:"article_type_distribution"`
	LastUpdated          *time.Time     `json:"last_updated"`
	AverageContentLength float64        `json:"average_content_length"`
}
