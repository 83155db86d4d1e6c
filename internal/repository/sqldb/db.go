// Package sqldb stores prediction history in SQLite or PostgreSQL.
package sqldb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps the database connection with thread-safe access.
type DB struct {
	conn   *sqlx.DB
	driver string
	mu     sync.RWMutex
}

// Open connects to the database and creates the tables if they don't exist.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}

	db := &DB{conn: conn, driver: driver}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := sqliteSchema
	if db.driver == DriverPostgres {
		schema = postgresSchema
	}
	_, err := db.conn.Exec(schema)
	return err
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		class_index INTEGER NOT NULL,
		disease_id INTEGER NOT NULL,
		disease_name TEXT NOT NULL,
		confidence REAL NOT NULL,
		confidence_label TEXT NOT NULL,
		image_width INTEGER DEFAULT 0,
		image_height INTEGER DEFAULT 0,
		detection_count INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prediction_id INTEGER NOT NULL,
		class_index INTEGER NOT NULL,
		confidence REAL DEFAULT 0,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		FOREIGN KEY (prediction_id) REFERENCES predictions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_disease_name ON predictions(disease_name);
	CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
	CREATE INDEX IF NOT EXISTS idx_detections_prediction_id ON detections(prediction_id);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id BIGSERIAL PRIMARY KEY,
		request_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		class_index INTEGER NOT NULL,
		disease_id INTEGER NOT NULL,
		disease_name TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		confidence_label TEXT NOT NULL,
		image_width INTEGER DEFAULT 0,
		image_height INTEGER DEFAULT 0,
		detection_count INTEGER DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS detections (
		id BIGSERIAL PRIMARY KEY,
		prediction_id BIGINT NOT NULL REFERENCES predictions(id) ON DELETE CASCADE,
		class_index INTEGER NOT NULL,
		confidence DOUBLE PRECISION DEFAULT 0,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_disease_name ON predictions(disease_name);
	CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
	CREATE INDEX IF NOT EXISTS idx_detections_prediction_id ON detections(prediction_id);
	`

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection for use by repositories.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
