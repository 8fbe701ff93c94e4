package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"notedup/internal/core"
)

const testArticle = `フィットネスバイクは自宅で手軽にできる有酸素運動です。
継続することで健康的にダイエットができます。`

func TestAddArticle_AssignsSequentialIDs(t *testing.T) {
	store := NewStore(t.TempDir())

	contents := []string{
		"フィットネスバイクのおすすめレビューです。",
		"タロットカードの基本的な使い方を解説します。",
		"風水で開運するためのインテリア選びを紹介します。",
	}
	for i, content := range contents {
		id, err := store.AddArticle(core.ArticleInput{Title: "t", Content: content})
		if err != nil {
			t.Fatalf("AddArticle %d failed: %v", i, err)
		}
		if id != i+1 {
			t.Errorf("AddArticle %d assigned id %d, want %d", i, id, i+1)
		}
	}

	if got := store.Statistics().TotalArticles; got != len(contents) {
		t.Errorf("TotalArticles = %d, want %d", got, len(contents))
	}
}

func TestNewStore_EmptyHistory(t *testing.T) {
	store := NewStore(t.TempDir())

	hasSimilar, matches := store.CheckSimilarity("任意の内容", 0.1)
	if hasSimilar {
		t.Error("empty history should never report similar articles")
	}
	if len(matches) != 0 {
		t.Errorf("empty history returned %d matches, want 0", len(matches))
	}
	if got := store.Statistics().TotalArticles; got != 0 {
		t.Errorf("TotalArticles = %d, want 0", got)
	}
}

func TestNewStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, historyFileName)
	if err := os.WriteFile(path, []byte("not json{"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(dir)
	if got := store.Statistics().TotalArticles; got != 0 {
		t.Errorf("corrupt history should load as empty, got %d articles", got)
	}
}

func TestAddArticle_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()

	store := NewStore(dir)
	id, err := store.AddArticle(core.ArticleInput{
		Title:       "フィットネスバイクで健康的なダイエット",
		Content:     testArticle,
		Category:    "フィットネス",
		ArticleType: "レビュー",
		Tags:        []string{"健康", "ダイエット"},
		Products:    []core.Product{{Name: "STEADY フィットネスバイク", Category: "フィットネス機器"}},
		NoteURL:     "https://note.example/n/abc123",
	})
	if err != nil {
		t.Fatalf("AddArticle failed: %v", err)
	}

	reloaded := NewStore(dir)
	record, ok := reloaded.Article(id)
	if !ok {
		t.Fatalf("article %d not found after reload", id)
	}
	if record.Title != "フィットネスバイクで健康的なダイエット" {
		t.Errorf("title = %q", record.Title)
	}
	if record.Content != testArticle {
		t.Error("content not preserved across reload")
	}
	if record.ContentHash != GenerateContentHash(testArticle) {
		t.Error("content hash not preserved across reload")
	}
	if record.ContentLength == 0 {
		t.Error("content length should be computed")
	}
	if len(record.Keywords) == 0 {
		t.Error("keywords should be extracted from content")
	}
	if record.NoteURL != "https://note.example/n/abc123" {
		t.Errorf("note url = %q", record.NoteURL)
	}
	if record.CreatedAt.IsZero() {
		t.Error("created_at should be set at insertion")
	}

	stats := reloaded.Statistics()
	if stats.LastUpdated == nil {
		t.Error("last_updated should be set after an append")
	}
}

type failingPersister struct{}

func (failingPersister) Load() (Document, error) { return Document{}, nil }
func (failingPersister) Save(Document) error     { return errors.New("disk full") }

func TestAddArticle_SaveFailureKeepsInMemoryState(t *testing.T) {
	store := NewStoreWithPersister(failingPersister{})

	id, err := store.AddArticle(core.ArticleInput{Title: "t", Content: testArticle})
	if err == nil {
		t.Error("expected persistence error to be surfaced")
	}
	if id != 1 {
		t.Errorf("id = %d, want 1 despite save failure", id)
	}
	if _, ok := store.Article(1); !ok {
		t.Error("record should survive in memory after save failure")
	}

	// The next append is an independent attempt and keeps counting up.
	id2, _ := store.AddArticle(core.ArticleInput{Title: "t2", Content: "別の内容です。"})
	if id2 != 2 {
		t.Errorf("second id = %d, want 2", id2)
	}
}

func TestCheckSimilarity_FindsAndRanksMatches(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, err := store.AddArticle(core.ArticleInput{Title: "オリジナル", Content: testArticle, Category: "フィットネス"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddArticle(core.ArticleInput{
		Title:   "無関係",
		Content: "タロットカードの歴史と占いの楽しみ方について語ります。初心者向けの入門情報です。",
	}); err != nil {
		t.Fatal(err)
	}

	hasSimilar, matches := store.CheckSimilarity(testArticle, 0.8)
	if !hasSimilar {
		t.Fatal("identical content should match")
	}
	if matches[0].Title != "オリジナル" {
		t.Errorf("best match = %q, want オリジナル", matches[0].Title)
	}
	if matches[0].Similarity != 1.0 {
		t.Errorf("identical content similarity = %.3f, want 1.0", matches[0].Similarity)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Error("matches should be sorted by similarity descending")
		}
	}
}

func TestCalculateSimilarity_Properties(t *testing.T) {
	if got := CalculateSimilarity(testArticle, testArticle); got != 1.0 {
		t.Errorf("self-similarity = %.3f, want 1.0", got)
	}

	other := "タロット占いの基本を紹介します。"
	if CalculateSimilarity(testArticle, other) != CalculateSimilarity(other, testArticle) {
		t.Error("similarity should be symmetric")
	}

	// URLs and the disclaimer are comparison noise.
	withNoise := "※本記事にはアフィリエイトリンクを含みます\n" + testArticle + "\nhttps://example.com/item"
	if got := CalculateSimilarity(testArticle, withNoise); got != 1.0 {
		t.Errorf("similarity ignoring urls and disclaimer = %.3f, want 1.0", got)
	}
}

func TestGenerateContentHash(t *testing.T) {
	h1 := GenerateContentHash(testArticle)
	h2 := GenerateContentHash(testArticle)
	if h1 != h2 {
		t.Error("hash should be deterministic")
	}
	if len(h1) != 32 {
		t.Errorf("hash length = %d, want 32 hex characters", len(h1))
	}

	if GenerateContentHash("全く別の内容") == h1 {
		t.Error("different content should hash differently")
	}

	// Case, whitespace runs, and punctuation are normalized away.
	if GenerateContentHash("Fitness  Bike!") != GenerateContentHash("fitness bike") {
		t.Error("normalization-equivalent content should hash identically")
	}
}

func TestExtractKeywords(t *testing.T) {
	keywords := ExtractKeywords("おすすめの方法を試してみてください")

	want := map[string]bool{"おすすめ": false, "方法": false}
	for _, kw := range keywords {
		if _, expected := want[kw]; !expected {
			t.Errorf("unexpected keyword %q", kw)
		}
		want[kw] = true
	}
	for kw, found := range want {
		if !found {
			t.Errorf("keyword %q not extracted", kw)
		}
	}

	if got := ExtractKeywords("何も該当しない文章"); len(got) != 0 {
		t.Errorf("expected no keywords, got %v", got)
	}
}

func TestRecentArticles(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, content := range []string{"一つ目の記事です。", "二つ目の記事です。", "三つ目の記事です。"} {
		if _, err := store.AddArticle(core.ArticleInput{Title: content, Content: content}); err != nil {
			t.Fatal(err)
		}
	}

	recent := store.RecentArticles(2)
	if len(recent) != 2 {
		t.Fatalf("RecentArticles(2) returned %d records", len(recent))
	}
	if recent[0].ID != 3 || recent[1].ID != 2 {
		t.Errorf("recent ids = [%d, %d], want [3, 2]", recent[0].ID, recent[1].ID)
	}

	if got := store.RecentArticles(10); len(got) != 3 {
		t.Errorf("limit beyond size should return all records, got %d", len(got))
	}
}

func TestArticlesByCategory(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.AddArticle(core.ArticleInput{Title: "a", Content: "内容", Category: "Fitness"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddArticle(core.ArticleInput{Title: "b", Content: "内容", Category: "書籍"}); err != nil {
		t.Fatal(err)
	}

	if got := store.ArticlesByCategory("fitness"); len(got) != 1 || got[0].Title != "a" {
		t.Errorf("case-insensitive category lookup failed: %v", got)
	}
	if got := store.ArticlesByCategory("占い"); len(got) != 0 {
		t.Errorf("unknown category should return nothing, got %v", got)
	}
}

func TestStatistics(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.AddArticle(core.ArticleInput{Content: "ああああ", Category: "フィットネス", ArticleType: "レビュー"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddArticle(core.ArticleInput{Content: "いいいいいいいい", Category: "フィットネス"}); err != nil {
		t.Fatal(err)
	}

	stats := store.Statistics()
	if stats.TotalArticles != 2 {
		t.Errorf("TotalArticles = %d, want 2", stats.TotalArticles)
	}
	if stats.CategoryDistribution["フィットネス"] != 2 {
		t.Errorf("category distribution = %v", stats.CategoryDistribution)
	}
	if stats.TypeDistribution["レビュー"] != 1 || stats.TypeDistribution["unknown"] != 1 {
		t.Errorf("type distribution = %v", stats.TypeDistribution)
	}
	if stats.AverageContentLength != 6 {
		t.Errorf("AverageContentLength = %.1f, want 6", stats.AverageContentLength)
	}
}
