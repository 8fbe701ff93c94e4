// Package history keeps the durable, append-only record of published articles
// and answers the question "have we written this before?". Records are
// write-once; the whole document is persisted synchronously after every
// append.
package history

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"notedup/internal/core"
	"notedup/internal/logger"
	"notedup/internal/similarity"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	spacePattern  = regexp.MustCompile(`\s+`)
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// affiliateDisclaimer matches the fixed disclaimer line stripped during
// normalization.
const affiliateDisclaimer = "※本記事にはアフィリエイトリンクを含みます"

// keywordVocabulary is the fixed dictionary tested by substring containment
// against raw article content. Deliberately not tokenization.
var keywordVocabulary = []string{
	"おすすめ", "効果", "メリット", "デメリット", "使い方", "方法",
	"商品", "レビュー", "評価", "価格", "機能", "特徴", "比較",
	"健康", "ダイエット", "フィットネス", "運動", "トレーニング",
	"占い", "タロット", "風水", "開運", "スピリチュアル",
	"書籍", "本", "読書", "学習", "勉強", "知識",
}

// Store is the article history. One generation pipeline instance owns a Store;
// appends must stay serialized per process because persistence rewrites the
// whole document with no lock protection.
type Store struct {
	persister Persister
	doc       Document
}

// NewStore opens the history persisted as a JSON document under dataDir. A
// missing or unreadable document yields an empty history with a logged
// warning, never an error: the subsystem is advisory.
func NewStore(dataDir string) *Store {
	return NewStoreWithPersister(NewJSONPersister(dataDir))
}

// NewStoreWithPersister opens the history backed by the given persister.
func NewStoreWithPersister(p Persister) *Store {
	doc, err := p.Load()
	if err != nil {
		logger.Get().Warn().Err(err).Msg("failed to load article history, starting empty")
		doc = Document{}
	}
	return &Store{persister: p, doc: doc}
}

// AddArticle appends a new record built from the input fields, persists the
// full document, and returns the assigned id. The id is always valid; a
// non-nil error means persistence failed and the record is held in memory
// only until the next successful save.
func (s *Store) AddArticle(in core.ArticleInput) (int, error) {
	now := time.Now()
	record := core.ArticleRecord{
		ID:            len(s.doc.Articles) + 1,
		Title:         in.Title,
		Content:       in.Content,
		ContentHash:   GenerateContentHash(in.Content),
		ContentLength: utf8.RuneCountInString(in.Content),
		Category:      in.Category,
		ArticleType:   in.ArticleType,
		Tags:          in.Tags,
		Products:      in.Products,
		CreatedAt:     now,
		NoteURL:       in.NoteURL,
		Keywords:      ExtractKeywords(in.Content),
	}

	s.doc.Articles = append(s.doc.Articles, record)
	s.doc.LastUpdated = &now
	s.doc.TotalArticles = len(s.doc.Articles)

	if err := s.persister.Save(s.doc); err != nil {
		logger.Get().Warn().Err(err).Int("article_id", record.ID).
			Msg("failed to persist article history, keeping in-memory state")
		return record.ID, fmt.Errorf("persist article history: %w", err)
	}

	logger.Get().Info().Int("article_id", record.ID).Str("title", record.Title).
		Msg("article added to history")
	return record.ID, nil
}

// CheckSimilarity scans the whole history with the quick single-metric check
// and returns the matches at or above the threshold, ranked best first.
func (s *Store) CheckSimilarity(content string, threshold float64) (bool, []core.SimilarityMatch) {
	var matches []core.SimilarityMatch
	for _, article := range s.doc.Articles {
		score := CalculateSimilarity(content, article.Content)
		if score >= threshold {
			matches = append(matches, core.SimilarityMatch{
				ID:          article.ID,
				Title:       article.Title,
				Similarity:  score,
				CreatedAt:   article.CreatedAt,
				Category:    article.Category,
				ArticleType: article.ArticleType,
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > 0 {
		log := logger.Get()
		log.Warn().Int("count", len(matches)).Msg("similar articles found in history")
		for i, m := range matches {
			if i >= 3 {
				break
			}
			log.Warn().Int("article_id", m.ID).Str("title", m.Title).
				Float64("similarity", m.Similarity).Msg("similar article")
		}
	}
	return len(matches) > 0, matches
}

// CalculateSimilarity is the quick pre-check used by CheckSimilarity: the
// character-subsequence ratio of the two normalized contents. Lighter than the
// five-metric composite, fooled by reordering; good enough as a first gate.
func CalculateSimilarity(content1, content2 string) float64 {
	return similarity.SequenceRatio(normalizeContent(content1), normalizeContent(content2))
}

// normalizeContent strips URLs, the affiliate disclaimer, and all symbols,
// collapses whitespace, and lowercases.
func normalizeContent(content string) string {
	content = urlPattern.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, affiliateDisclaimer, "")
	content = spacePattern.ReplaceAllString(content, " ")
	content = symbolPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(strings.ToLower(content))
}

// ExtractKeywords returns the fixed-vocabulary terms contained in the raw
// content. Exact substring membership, no stemming.
func ExtractKeywords(content string) []string {
	var keywords []string
	for _, word := range keywordVocabulary {
		if strings.Contains(content, word) {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// GenerateContentHash digests the normalized content into an opaque dedup key.
// MD5 is deliberate: the hash is a lookup key with no security property.
func GenerateContentHash(content string) string {
	normalized := spacePattern.ReplaceAllString(strings.ToLower(content), " ")
	normalized = symbolPattern.ReplaceAllString(normalized, "")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Article returns the record with the given id.
func (s *Store) Article(id int) (core.ArticleRecord, bool) {
	for _, article := range s.doc.Articles {
		if article.ID == id {
			return article, true
		}
	}
	return core.ArticleRecord{}, false
}

// Articles returns the full history in insertion order.
func (s *Store) Articles() []core.ArticleRecord {
	out := make([]core.ArticleRecord, len(s.doc.Articles))
	copy(out, s.doc.Articles)
	return out
}

// RecentArticles returns up to limit records, newest first.
func (s *Store) RecentArticles(limit int) []core.ArticleRecord {
	articles := s.Articles()
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].ID > articles[j].ID
		}
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})
	if limit >= 0 && limit < len(articles) {
		articles = articles[:limit]
	}
	return articles
}

// ArticlesByCategory returns the records whose category matches
// case-insensitively.
func (s *Store) ArticlesByCategory(category string) []core.ArticleRecord {
	var out []core.ArticleRecord
	for _, article := range s.doc.Articles {
		if strings.EqualFold(article.Category, category) {
			out = append(out, article)
		}
	}
	return out
}

// Statistics aggregates the history: counts per category and article type,
// the average content length, and the last update time.
func (s *Store) Statistics() core.Stats {
	stats := core.Stats{
		TotalArticles:        len(s.doc.Articles),
		CategoryDistribution: make(map[string]int),
		TypeDistribution:     make(map[string]int),
		LastUpdated:          s.doc.LastUpdated,
	}

	totalLength := 0
	for _, article := range s.doc.Articles {
		category := article.Category
		if category == "" {
			category = "unknown"
		}
		articleType := article.ArticleType
		if articleType == "" {
			articleType = "unknown"
		}
		stats.CategoryDistribution[category]++
		stats.TypeDistribution[articleType]++
		totalLength += article.ContentLength
	}
	if len(s.doc.Articles) > 0 {
		stats.AverageContentLength = float64(totalLength) / float64(len(s.doc.Articles))
	}
	return stats
}
