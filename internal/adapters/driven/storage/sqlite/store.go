package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/procaudit-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
)

// Store is the unified SQLite storage behind the cache, checkpoint,
// and run-history interfaces.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.procaudit/data/procaudit.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".procaudit", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "procaudit.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CallCache returns a CallCache interface backed by this store.
func (s *Store) CallCache() driven.CallCache {
	return &callCache{store: s}
}

// CheckpointStore returns a CheckpointStore interface backed by this store.
func (s *Store) CheckpointStore() driven.CheckpointStore {
	return &checkpointStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Call Cache ====================

// callCache implements driven.CallCache.
type callCache struct {
	store *Store
}

var _ driven.CallCache = (*callCache)(nil)

// Get returns the cached payload, or domain.ErrCacheMiss.
func (c *callCache) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := c.store.db.QueryRowContext(ctx,
		"SELECT payload FROM call_cache WHERE key = ?", key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	return payload, nil
}

// Put stores the payload under key, replacing any previous value. The
// upsert is a single statement, so a crash mid-write never leaves a
// torn entry.
func (c *callCache) Put(ctx context.Context, key string, payload []byte) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO call_cache (key, payload)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			created_at = CURRENT_TIMESTAMP
	`, key, payload)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// ==================== Checkpoint Store ====================

// checkpointStore implements driven.CheckpointStore.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Done reports whether the (key, stage) pair completed previously.
func (c *checkpointStore) Done(ctx context.Context, key, stage string) (bool, error) {
	var count int
	err := c.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checkpoints WHERE key = ? AND stage = ?", key, stage).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking checkpoint: %w", err)
	}
	return count > 0, nil
}

// Mark records completion of the (key, stage) pair.
func (c *checkpointStore) Mark(ctx context.Context, key, stage string) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, stage)
		VALUES (?, ?)
		ON CONFLICT(key, stage) DO UPDATE SET
			completed_at = CURRENT_TIMESTAMP
	`, key, stage)
	if err != nil {
		return fmt.Errorf("marking checkpoint: %w", err)
	}
	return nil
}

// ==================== Run History ====================

// SaveRun stores a finished audit run.
func (s *Store) SaveRun(ctx context.Context, result *domain.AuditResult) error {
	if result.RunID == "" {
		return domain.ErrInvalidInput
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, root, started_at, finished_at, result)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			root = excluded.root,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			result = excluded.result
	`, result.RunID, result.Root, result.StartedAt, result.FinishedAt, string(resultJSON))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.AuditResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT result FROM runs WHERE id = ?", id).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading run: %w", err)
	}

	var result domain.AuditResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("unmarshalling run: %w", err)
	}
	return &result, nil
}

// ListRuns returns all stored runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.AuditResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT result FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.AuditResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		var result domain.AuditResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("unmarshalling run: %w", err)
		}
		runs = append(runs, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ClearCache removes every cached call payload.
func (s *Store) ClearCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM call_cache")
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return n, nil
}

// CacheStats reports the entry count of the call cache.
func (s *Store) CacheStats(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM call_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return count, nil
}
