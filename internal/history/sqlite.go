package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"notedup/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// SQLitePersister keeps the history in a SQLite database instead of a flat
// JSON document. The document semantics are unchanged: Save upserts every
// record and the derived metadata in one transaction.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// NewSQLitePersister opens (or creates) the history database under dataDir.
func NewSQLitePersister(dataDir string) (*SQLitePersister, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "article_history.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	p := &SQLitePersister{db: db, path: dbPath}
	if err := p.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history database: %w", err)
	}
	return p, nil
}

func (p *SQLitePersister) initialize() error {
	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY,
		title TEXT,
		content TEXT,
		content_hash TEXT,
		content_length INTEGER,
		category TEXT,
		article_type TEXT,
		tags TEXT,
		products TEXT,
		created_at DATETIME,
		note_url TEXT,
		keywords TEXT
	);`

	metaTable := `
	CREATE TABLE IF NOT EXISTS history_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);`

	for _, stmt := range []string{articlesTable, metaTable} {
		if _, err := p.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

// Load reads every record in id order and rebuilds the history document.
func (p *SQLitePersister) Load() (Document, error) {
	rows, err := p.db.Query(`
		SELECT id, title, content, content_hash, content_length, category,
		       article_type, tags, products, created_at, note_url, keywords
		FROM articles ORDER BY id`)
	if err != nil {
		return Document{}, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var doc Document
	for rows.Next() {
		var record core.ArticleRecord
		var tagsJSON, productsJSON, keywordsJSON string
		if err := rows.Scan(&record.ID, &record.Title, &record.Content,
			&record.ContentHash, &record.ContentLength, &record.Category,
			&record.ArticleType, &tagsJSON, &productsJSON, &record.CreatedAt,
			&record.NoteURL, &keywordsJSON); err != nil {
			return Document{}, fmt.Errorf("scan article row: %w", err)
		}
		if err := decodeJSONColumn(tagsJSON, &record.Tags); err != nil {
			return Document{}, fmt.Errorf("decode tags for article %d: %w", record.ID, err)
		}
		if err := decodeJSONColumn(productsJSON, &record.Products); err != nil {
			return Document{}, fmt.Errorf("decode products for article %d: %w", record.ID, err)
		}
		if err := decodeJSONColumn(keywordsJSON, &record.Keywords); err != nil {
			return Document{}, fmt.Errorf("decode keywords for article %d: %w", record.ID, err)
		}
		doc.Articles = append(doc.Articles, record)
	}
	if err := rows.Err(); err != nil {
		return Document{}, fmt.Errorf("iterate article rows: %w", err)
	}
	doc.TotalArticles = len(doc.Articles)

	var lastUpdated string
	err = p.db.QueryRow(`SELECT value FROM history_meta WHERE key = 'last_updated'`).Scan(&lastUpdated)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return Document{}, fmt.Errorf("query history metadata: %w", err)
	default:
		if ts, parseErr := time.Parse(time.RFC3339Nano, lastUpdated); parseErr == nil {
			doc.LastUpdated = &ts
		}
	}
	return doc, nil
}

// Save upserts all records and the derived metadata transactionally.
func (p *SQLitePersister) Save(doc Document) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO articles
		(id, title, content, content_hash, content_length, category,
		 article_type, tags, products, created_at, note_url, keywords)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare article upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range doc.Articles {
		tagsJSON, err := json.Marshal(record.Tags)
		if err != nil {
			return fmt.Errorf("encode tags for article %d: %w", record.ID, err)
		}
		productsJSON, err := json.Marshal(record.Products)
		if err != nil {
			return fmt.Errorf("encode products for article %d: %w", record.ID, err)
		}
		keywordsJSON, err := json.Marshal(record.Keywords)
		if err != nil {
			return fmt.Errorf("encode keywords for article %d: %w", record.ID, err)
		}
		if _, err := stmt.Exec(record.ID, record.Title, record.Content,
			record.ContentHash, record.ContentLength, record.Category,
			record.ArticleType, string(tagsJSON), string(productsJSON),
			record.CreatedAt, record.NoteURL, string(keywordsJSON)); err != nil {
			return fmt.Errorf("upsert article %d: %w", record.ID, err)
		}
	}

	if doc.LastUpdated != nil {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO history_meta (key, value) VALUES ('last_updated', ?)`,
			doc.LastUpdated.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("upsert history metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

func decodeJSONColumn(raw string, target interface{}) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), target)
}
