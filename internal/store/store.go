// Package store persists engine state in SQLite. Each collection is a
// single JSON document under one key, read and replaced wholesale; there
// are no incremental writes.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starkad/ordna/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Storage keys.
const (
	keyItems    = "knowledge_items"
	keyPatterns = "user_patterns"
	keyProjects = "projects"
)

// DB wraps a sql.DB with state persistence operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

// get unmarshals the stored document into target. Missing keys leave target
// untouched and return false.
func (db *DB) get(key string, target any) (bool, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, fmt.Errorf("store: unmarshal %s: %w", key, err)
	}
	return true, nil
}

// LoadItems returns the persisted knowledge item collection.
func (db *DB) LoadItems() ([]models.KnowledgeItem, error) {
	var items []models.KnowledgeItem
	if _, err := db.get(keyItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveItems replaces the knowledge item collection.
func (db *DB) SaveItems(items []models.KnowledgeItem) error {
	return db.put(keyItems, items)
}

// LoadPatterns returns the persisted user patterns, or defaults when none
// have been saved yet.
func (db *DB) LoadPatterns() (models.UserPatterns, error) {
	p := models.NewUserPatterns()
	if _, err := db.get(keyPatterns, &p); err != nil {
		return p, err
	}
	if p.Weights == nil {
		p.Weights = make(map[models.SuggestionType]float64)
	}
	return p, nil
}

// SavePatterns replaces the user patterns.
func (db *DB) SavePatterns(p models.UserPatterns) error {
	return db.put(keyPatterns, p)
}

// LoadProjects returns the persisted project list.
func (db *DB) LoadProjects() ([]models.Project, error) {
	var projects []models.Project
	if _, err := db.get(keyProjects, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SaveProjects replaces the project list.
func (db *DB) SaveProjects(projects []models.Project) error {
	return db.put(keyProjects, projects)
}
