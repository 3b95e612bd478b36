package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/funkyHat/orchard/pkg/plan"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStorage persists each node instance as one row in a SQLite
// database. It observes the same contract as the memory and file backends:
// per-instance locks, version-checked property updates, always-accepted
// state transitions.
type SQLiteStorage struct {
	*index
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the deployment database, runs
// migrations and seeds the instance rows once. Existing rows from a prior
// run win over the plan snapshot unless cfg.Clear is set.
func NewSQLiteStorage(ctx context.Context, cfg Config, p *plan.Plan) (*SQLiteStorage, error) {
	path := cfg.Path
	if path == "" {
		baseDir := cfg.Dir
		if baseDir == "" {
			baseDir = filepath.Join(os.TempDir(), "orchard-deployments")
		}
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create deployment directory %s: %w", baseDir, err)
		}
		path = filepath.Join(baseDir, cfg.Name+".db")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Clear {
		if _, err := db.ExecContext(ctx, "DELETE FROM node_instances"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to clear node instances: %w", err)
		}
	}

	existing, err := listInstanceRows(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	instanceIDs := existing
	if len(existing) == 0 {
		// One-time seed from the plan snapshot. No locks needed: no
		// concurrent readers exist before construction returns.
		for _, instance := range initialInstances(p) {
			document, err := json.Marshal(instance)
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to encode node instance %s: %w", instance.ID, err)
			}
			if _, err := db.ExecContext(ctx,
				"INSERT INTO node_instances (id, document, version) VALUES (?, ?, ?)",
				instance.ID, string(document), instance.Version); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to seed node instance %s: %w", instance.ID, err)
			}
		}
		instanceIDs = planInstanceIDs(p)
	}

	return &SQLiteStorage{
		index: newIndex(cfg, p, instanceIDs),
		db:    db,
	}, nil
}

func migrateUp(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// GetNodeInstance reads one instance row under its lock.
func (s *SQLiteStorage) GetNodeInstance(id string) (*plan.NodeInstance, error) {
	mu, ok := s.lock(id)
	if !ok {
		return nil, notFoundf("node instance %s", id)
	}
	mu.Lock()
	defer mu.Unlock()
	return s.loadInstanceLocked(id)
}

// GetNodeInstances reads every instance row currently in the database.
func (s *SQLiteStorage) GetNodeInstances() ([]*plan.NodeInstance, error) {
	ids, err := listInstanceRows(context.Background(), s.db)
	if err != nil {
		return nil, err
	}
	instances := make([]*plan.NodeInstance, 0, len(ids))
	for _, id := range ids {
		instance, err := s.GetNodeInstance(id)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// UpdateNodeInstance applies a property update or state transition under the
// instance lock, rewriting the instance row on acceptance.
func (s *SQLiteStorage) UpdateNodeInstance(id string, version int64, runtimeProperties map[string]any, state *string) error {
	mu, ok := s.lock(id)
	if !ok {
		return notFoundf("node instance %s", id)
	}
	mu.Lock()
	defer mu.Unlock()

	instance, err := s.loadInstanceLocked(id)
	if err != nil {
		return err
	}
	if err := applyUpdate(instance, version, runtimeProperties, state); err != nil {
		return err
	}

	document, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to encode node instance %s: %w", id, err)
	}
	if _, err := s.db.Exec(
		"UPDATE node_instances SET document = ?, version = ? WHERE id = ?",
		string(document), instance.Version, id); err != nil {
		return fmt.Errorf("failed to write node instance %s: %w", id, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// loadInstanceLocked reads one instance row. The caller holds the
// instance's lock.
func (s *SQLiteStorage) loadInstanceLocked(id string) (*plan.NodeInstance, error) {
	var document string
	err := s.db.QueryRow("SELECT document FROM node_instances WHERE id = ?", id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundf("node instance %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read node instance %s: %w", id, err)
	}
	var instance plan.NodeInstance
	if err := json.Unmarshal([]byte(document), &instance); err != nil {
		return nil, fmt.Errorf("failed to decode node instance %s: %w", id, err)
	}
	return &instance, nil
}

func listInstanceRows(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT id FROM node_instances ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list node instances: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to list node instances: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list node instances: %w", err)
	}
	return ids, nil
}
