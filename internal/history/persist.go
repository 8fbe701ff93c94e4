package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"notedup/internal/core"
)

// historyFileName is the JSON document the store persists under its data
// directory.
const historyFileName = "article_history.json"

// Document is the persisted shape of the history. LastUpdated and
// TotalArticles are derived on every append, never set independently.
type Document struct {
	Articles      []core.ArticleRecord `json:"articles"`
	LastUpdated   *time.Time           `json:"last_updated"`
	TotalArticles int                  `json:"total_articles"`
}

// Persister loads and saves the whole history document. Save replaces the
// previous state; there is no partial write.
type Persister interface {
	Load() (Document, error)
	Save(Document) error
}

// JSONPersister keeps the history as a single indented JSON document on disk.
type JSONPersister struct {
	path string
}

// NewJSONPersister persists the history document under dataDir.
func NewJSONPersister(dataDir string) *JSONPersister {
	return &JSONPersister{path: filepath.Join(dataDir, historyFileName)}
}

// Path returns the location of the persisted document.
func (p *JSONPersister) Path() string {
	return p.path
}

// Load reads the document. A missing file is an empty history, not an error.
func (p *JSONPersister) Load() (Document, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("read history file %s: %w", p.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse history file %s: %w", p.path, err)
	}
	return doc, nil
}

// Save writes the full document, creating the data directory if needed.
func (p *JSONPersister) Save(doc Document) error {
	if dir := filepath.Dir(p.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history document: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("write history file %s: %w", p.path, err)
	}
	return nil
}
