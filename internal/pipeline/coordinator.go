// Package pipeline coordinates candidate generation with the duplicate check:
// generate, check against history, regenerate on a match, and accept the last
// candidate once retries run out rather than blocking publication forever.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"notedup/internal/core"
	"notedup/internal/history"
	"notedup/internal/logger"
)

// Generator produces one candidate article. Out-of-scope collaborator: prompt
// construction, templates, and the language model live behind this interface.
type Generator interface {
	GenerateCandidate(ctx context.Context, products []core.Product, articleType string) (title, content string, err error)
}

// Request describes one article to produce.
type Request struct {
	Products    []core.Product
	ArticleType string
	Category    string
	Tags        []string
}

// Result reports the accepted article and how it got through the duplicate
// gate.
type Result struct {
	ArticleID int                    // Id assigned by the history store
	Title     string                 // Accepted candidate title
	Content   string                 // Accepted candidate content
	Attempts  int                    // Generation attempts consumed
	Flagged   bool                   // Accepted despite similarity matches (retries exhausted)
	Matches   []core.SimilarityMatch // Matches for the accepted candidate, if flagged
}

// Coordinator owns the bounded retry-then-accept policy around a Generator
// and the history store.
type Coordinator struct {
	generator  Generator
	store      *history.Store
	maxRetries int
	threshold  float64
}

// NewCoordinator wires a generator to the history store. maxRetries is the
// attempt ceiling; threshold is the quick-check duplicate threshold.
func NewCoordinator(generator Generator, store *history.Store, maxRetries int, threshold float64) *Coordinator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Coordinator{
		generator:  generator,
		store:      store,
		maxRetries: maxRetries,
		threshold:  threshold,
	}
}

// Produce generates a candidate, retries on duplicate matches up to the
// ceiling, and appends the accepted article to the history. When every
// attempt fails to generate, nothing is stored and the last error is
// returned. A history persistence failure does not fail the run; the record
// is kept in memory and the failure is logged.
func (c *Coordinator) Produce(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	log := logger.Get().With().Str("run_id", runID).Str("article_type", req.ArticleType).Logger()

	var (
		title, content string
		generated      bool
		lastErr        error
		flagged        bool
		matches        []core.SimilarityMatch
		attempts       int
	)

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts = attempt

		candidateTitle, candidateContent, err := c.generator.GenerateCandidate(ctx, req.Products, req.ArticleType)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("candidate generation failed")
			continue
		}
		title, content, generated = candidateTitle, candidateContent, true

		similar, found := c.store.CheckSimilarity(candidateContent, c.threshold)
		if !similar {
			flagged = false
			matches = nil
			break
		}

		flagged = true
		matches = found
		log.Warn().Int("attempt", attempt).Int("matches", len(found)).
			Float64("best_similarity", found[0].Similarity).
			Msg("candidate too similar to history, regenerating")
	}

	if !generated {
		return nil, fmt.Errorf("all %d generation attempts failed: %w", c.maxRetries, lastErr)
	}
	if flagged {
		log.Warn().Int("attempts", attempts).
			Msg("retries exhausted, accepting candidate despite similarity matches")
	}

	id, err := c.store.AddArticle(core.ArticleInput{
		Title:       title,
		Content:     content,
		Category:    req.Category,
		ArticleType: req.ArticleType,
		Tags:        req.Tags,
		Products:    req.Products,
	})
	if err != nil {
		log.Warn().Err(err).Int("article_id", id).Msg("accepted article not durably persisted")
	}

	log.Info().Int("article_id", id).Int("attempts", attempts).Bool("flagged", flagged).
		Msg("article accepted")

	return &Result{
		ArticleID: id,
		Title:     title,
		Content:   content,
		Attempts:  attempts,
		Flagged:   flagged,
		Matches:   matches,
	}, nil
}
