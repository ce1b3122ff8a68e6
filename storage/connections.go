// Package storage persists connection records in a local SQLite
// database. Credentials and OAuth tokens never enter this database;
// they live in the config package's stores, keyed by connection slug.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lynkd/connection"
)

// ConnectionStore owns the connections table.
//
// Invariants it enforces:
//   - slug is the immutable primary key; Save never changes it.
//   - while the table is non-empty, exactly one row has is_default set.
//     Every mutation that could break that runs inside one transaction.
type ConnectionStore struct {
	db *sql.DB
}

// NewConnectionStore opens (creating if needed) the connections database
// under dataDir.
func NewConnectionStore(dataDir string) (*ConnectionStore, error) {
	dbPath := filepath.Join(dataDir, "connections.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &ConnectionStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (cs *ConnectionStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS connections (
		slug TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		provider TEXT NOT NULL,
		auth TEXT NOT NULL,
		endpoint TEXT DEFAULT '',
		sub_provider TEXT DEFAULT '',
		models TEXT DEFAULT '[]',
		default_model TEXT DEFAULT '',
		is_default INTEGER NOT NULL DEFAULT 0,
		is_authenticated INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_connections_provider ON connections(provider);
	`

	_, err := cs.db.Exec(schema)
	return err
}

// Save inserts or updates a connection. A brand-new connection saved into
// an empty store becomes the default automatically. Timestamps are
// managed here: CreatedAt is set once, UpdatedAt on every save.
func (cs *ConnectionStore) Save(conn *connection.Connection) error {
	if conn.Slug == "" {
		return fmt.Errorf("connection slug is empty")
	}

	modelsJSON, err := json.Marshal(conn.Models)
	if err != nil {
		return fmt.Errorf("failed to marshal models: %w", err)
	}

	tx, err := cs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM connections`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count connections: %w", err)
	}

	var createdAt time.Time
	var wasDefault int
	err = tx.QueryRow(`SELECT created_at, is_default FROM connections WHERE slug = ?`, conn.Slug).Scan(&createdAt, &wasDefault)
	isNew := err == sql.ErrNoRows
	if err != nil && !isNew {
		return fmt.Errorf("failed to look up connection: %w", err)
	}

	now := time.Now().UTC()
	if isNew {
		createdAt = now
		if count == 0 {
			conn.IsDefault = true
		}
	} else if wasDefault == 1 {
		// Updating the default connection keeps it the default. The flag
		// only moves through SetDefault or Delete promotion.
		conn.IsDefault = true
	}
	conn.CreatedAt = createdAt
	conn.UpdatedAt = now

	if conn.IsDefault {
		if _, err := tx.Exec(`UPDATE connections SET is_default = 0 WHERE slug != ?`, conn.Slug); err != nil {
			return fmt.Errorf("failed to clear default flag: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO connections
			(slug, name, provider, auth, endpoint, sub_provider, models, default_model, is_default, is_authenticated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			auth = excluded.auth,
			endpoint = excluded.endpoint,
			sub_provider = excluded.sub_provider,
			models = excluded.models,
			default_model = excluded.default_model,
			is_default = excluded.is_default,
			is_authenticated = excluded.is_authenticated,
			updated_at = excluded.updated_at`,
		conn.Slug, conn.Name, string(conn.Provider), string(conn.Auth),
		conn.Endpoint, conn.SubProvider, string(modelsJSON), conn.DefaultModel,
		boolToInt(conn.IsDefault), boolToInt(conn.IsAuthenticated),
		conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)
	}
	return nil
}

// Delete removes a connection. Deleting the default promotes the oldest
// remaining connection so the single-default invariant survives.
func (cs *ConnectionStore) Delete(slug string) error {
	tx, err := cs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var wasDefault int
	err = tx.QueryRow(`SELECT is_default FROM connections WHERE slug = ?`, slug).Scan(&wasDefault)
	if err == sql.ErrNoRows {
		return fmt.Errorf("connection not found: %s", slug)
	}
	if err != nil {
		return fmt.Errorf("failed to look up connection: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM connections WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	if wasDefault == 1 {
		_, err := tx.Exec(`
			UPDATE connections SET is_default = 1
			WHERE slug = (SELECT slug FROM connections ORDER BY created_at ASC, slug ASC LIMIT 1)`)
		if err != nil {
			return fmt.Errorf("failed to promote new default: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)
	}
	return nil
}

// SetDefault marks one connection as the default and clears the flag
// everywhere else, atomically.
func (cs *ConnectionStore) SetDefault(slug string) error {
	tx, err := cs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE connections SET is_default = 1, updated_at = ? WHERE slug = ?`,
		time.Now().UTC(), slug)
	if err != nil {
		return fmt.Errorf("failed to set default: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("connection not found: %s", slug)
	}

	if _, err := tx.Exec(`UPDATE connections SET is_default = 0 WHERE slug != ?`, slug); err != nil {
		return fmt.Errorf("failed to clear default flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", connection.ErrPersistenceFailed, err)
	}
	return nil
}

// Get returns one connection by slug, or nil when absent.
func (cs *ConnectionStore) Get(slug string) (*connection.Connection, error) {
	row := cs.db.QueryRow(`
		SELECT slug, name, provider, auth, endpoint, sub_provider, models, default_model, is_default, is_authenticated, created_at, updated_at
		FROM connections WHERE slug = ?`, slug)

	conn, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

// GetDefault returns the default connection, or nil when the store is
// empty.
func (cs *ConnectionStore) GetDefault() (*connection.Connection, error) {
	row := cs.db.QueryRow(`
		SELECT slug, name, provider, auth, endpoint, sub_provider, models, default_model, is_default, is_authenticated, created_at, updated_at
		FROM connections WHERE is_default = 1 LIMIT 1`)

	conn, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default connection: %w", err)
	}
	return conn, nil
}

// List returns all connections, oldest first.
func (cs *ConnectionStore) List() ([]*connection.Connection, error) {
	rows, err := cs.db.Query(`
		SELECT slug, name, provider, auth, endpoint, sub_provider, models, default_model, is_default, is_authenticated, created_at, updated_at
		FROM connections ORDER BY created_at ASC, slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var conns []*connection.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// Slugs returns every stored slug; the wizard checks new names against
// this list.
func (cs *ConnectionStore) Slugs() ([]string, error) {
	rows, err := cs.db.Query(`SELECT slug FROM connections ORDER BY slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// Close closes the underlying database.
func (cs *ConnectionStore) Close() error {
	return cs.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*connection.Connection, error) {
	var conn connection.Connection
	var provider, auth, modelsJSON string
	var isDefault, isAuthenticated int

	err := row.Scan(&conn.Slug, &conn.Name, &provider, &auth,
		&conn.Endpoint, &conn.SubProvider, &modelsJSON, &conn.DefaultModel,
		&isDefault, &isAuthenticated, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return nil, err
	}

	conn.Provider = connection.ProviderType(provider)
	conn.Auth = connection.AuthType(auth)
	conn.IsDefault = isDefault == 1
	conn.IsAuthenticated = isAuthenticated == 1

	if modelsJSON != "" {
		if err := json.Unmarshal([]byte(modelsJSON), &conn.Models); err != nil {
			return nil, fmt.Errorf("failed to unmarshal models: %w", err)
		}
	}

	return &conn, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
