package pipeline

import (
	"context"
	"errors"
	"testing"

	"notedup/internal/core"
	"notedup/internal/history"
)

const publishedArticle = `フィットネスバイクは自宅で手軽にできる有酸素運動です。
静音設計なので早朝や深夜でも周囲を気にせず運動できます。
継続することで健康的にダイエットができます。`

const freshArticle = `タロットカードは78枚で構成される占いの道具です。
初心者はまず大アルカナから意味を覚えると理解が進みます。
毎朝一枚引きで練習するのが上達の近道です。`

type candidate struct {
	title   string
	content string
	err     error
}

type stubGenerator struct {
	candidates []candidate
	calls      int
}

func (g *stubGenerator) GenerateCandidate(_ context.Context, _ []core.Product, _ string) (string, string, error) {
	i := g.calls
	if i >= len(g.candidates) {
		i = len(g.candidates) - 1
	}
	g.calls++
	c := g.candidates[i]
	return c.title, c.content, c.err
}

func seededStore(t *testing.T) *history.Store {
	t.Helper()
	store := history.NewStore(t.TempDir())
	if _, err := store.AddArticle(core.ArticleInput{Title: "既存記事", Content: publishedArticle}); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestProduce_AcceptsUniqueCandidateFirstTry(t *testing.T) {
	store := seededStore(t)
	gen := &stubGenerator{candidates: []candidate{{title: "新作", content: freshArticle}}}
	coordinator := NewCoordinator(gen, store, 3, 0.6)

	result, err := coordinator.Produce(context.Background(), Request{ArticleType: "レビュー", Category: "占い"})
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}
	if result.Flagged {
		t.Error("unique candidate should not be flagged")
	}
	if result.ArticleID != 2 {
		t.Errorf("stored id = %d, want 2", result.ArticleID)
	}
	if _, ok := store.Article(result.ArticleID); !ok {
		t.Error("accepted article should be in the history")
	}
}

func TestProduce_RegeneratesOnDuplicate(t *testing.T) {
	store := seededStore(t)
	gen := &stubGenerator{candidates: []candidate{
		{title: "焼き直し", content: publishedArticle},
		{title: "新作", content: freshArticle},
	}}
	coordinator := NewCoordinator(gen, store, 3, 0.6)

	result, err := coordinator.Produce(context.Background(), Request{ArticleType: "レビュー"})
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", result.Attempts)
	}
	if result.Flagged {
		t.Error("second candidate was unique, should not be flagged")
	}
	if result.Title != "新作" {
		t.Errorf("accepted title = %q, want 新作", result.Title)
	}
}

func TestProduce_AcceptsLastCandidateAfterRetriesExhausted(t *testing.T) {
	store := seededStore(t)
	gen := &stubGenerator{candidates: []candidate{{title: "焼き直し", content: publishedArticle}}}
	coordinator := NewCoordinator(gen, store, 3, 0.6)

	result, err := coordinator.Produce(context.Background(), Request{ArticleType: "レビュー"})
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
	if !result.Flagged {
		t.Error("exhausted retries should flag the accepted candidate")
	}
	if len(result.Matches) == 0 {
		t.Error("flagged result should carry the similarity evidence")
	}
	if result.ArticleID == 0 {
		t.Error("flagged candidate must still be published and recorded")
	}
}

func TestProduce_AllGenerationAttemptsFail(t *testing.T) {
	store := seededStore(t)
	genErr := errors.New("model unavailable")
	gen := &stubGenerator{candidates: []candidate{{err: genErr}}}
	coordinator := NewCoordinator(gen, store, 2, 0.6)

	result, err := coordinator.Produce(context.Background(), Request{ArticleType: "レビュー"})
	if err == nil {
		t.Fatal("expected error when every attempt fails")
	}
	if !errors.Is(err, genErr) {
		t.Errorf("error should wrap the generator error, got %v", err)
	}
	if result != nil {
		t.Errorf("result should be nil on total failure, got %+v", result)
	}
	if store.Statistics().TotalArticles != 1 {
		t.Error("nothing should be appended to the history on total failure")
	}
}

func TestProduce_GeneratorErrorThenSuccess(t *testing.T) {
	store := seededStore(t)
	gen := &stubGenerator{candidates: []candidate{
		{err: errors.New("timeout")},
		{title: "新作", content: freshArticle},
	}}
	coordinator := NewCoordinator(gen, store, 3, 0.6)

	result, err := coordinator.Produce(context.Background(), Request{ArticleType: "レビュー"})
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", result.Attempts)
	}
	if result.Title != "新作" {
		t.Errorf("accepted title = %q", result.Title)
	}
}

func TestProduce_ContextCancelled(t *testing.T) {
	store := seededStore(t)
	gen := &stubGenerator{candidates: []candidate{{title: "新作", content: freshArticle}}}
	coordinator := NewCoordinator(gen, store, 3, 0.6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := coordinator.Produce(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
