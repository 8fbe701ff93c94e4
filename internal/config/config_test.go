package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.Similarity.Threshold != 0.6 {
		t.Errorf("default threshold = %f, want 0.6", cfg.Similarity.Threshold)
	}
	if cfg.Generation.MaxRetries != 3 {
		t.Errorf("default max_retries = %d, want 3", cfg.Generation.MaxRetries)
	}
	if cfg.History.Backend != "json" {
		t.Errorf("default backend = %q, want json", cfg.History.Backend)
	}
	if err := cfg.Similarity.Weights.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
}

func TestLoad_CustomFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "notedup.yaml")
	content := `app:
  data_dir: /tmp/notedup-test
history:
  backend: sqlite
similarity:
  threshold: 0.7
generation:
  max_retries: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.DataDir != "/tmp/notedup-test" {
		t.Errorf("data_dir = %q", cfg.App.DataDir)
	}
	if cfg.History.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.History.Backend)
	}
	if cfg.Similarity.Threshold != 0.7 {
		t.Errorf("threshold = %f, want 0.7", cfg.Similarity.Threshold)
	}
	if cfg.Generation.MaxRetries != 5 {
		t.Errorf("max_retries = %d, want 5", cfg.Generation.MaxRetries)
	}
}

func TestLoad_RejectsBadWeights(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "notedup.yaml")
	content := `similarity:
  weights:
    sequence_similarity: 0.5
    cosine_similarity: 0.5
    jaccard_similarity: 0.5
    keyword_similarity: 0.0
    structure_similarity: 0.0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("weights summing to 1.5 should fail to load")
	}
}

func TestLoad_RejectsBadBackend(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := filepath.Join(t.TempDir(), "notedup.yaml")
	if err := os.WriteFile(path, []byte("history:\n  backend: mongo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("unknown backend should fail to load")
	}
}
