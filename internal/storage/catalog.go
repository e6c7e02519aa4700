/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"

	"multicanvas/internal/domain"
	applog "multicanvas/internal/log"
	"multicanvas/internal/version"
)

const (
	CatalogFileName = "index.sqlite"

	// schemaVersion tracks the catalog schema. Bump it together with a new
	// migration step in runMigrations.
	schemaVersion = 2

	// DefaultMaxThumbnailBytes caps the thumbnails table.
	DefaultMaxThumbnailBytes int64 = 32 << 20
)

// Catalog is the scratch-side SQLite database of one registry session.
type Catalog struct {
	db       *sql.DB
	path     string
	maxBytes int64
}

// OpenCatalog creates or opens <dir>/index.sqlite, enables WAL and brings the
// schema up to date. maxThumbBytes <= 0 selects DefaultMaxThumbnailBytes.
func OpenCatalog(dir string, maxThumbBytes int64) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "catalog_open").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("catalog dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	path := filepath.Join(dir, CatalogFileName)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureCatalogSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("catalog schema setup failed", slog.Any("err", err))
			return nil, err
		}
	}
	if maxThumbBytes <= 0 {
		maxThumbBytes = DefaultMaxThumbnailBytes
	}
	l.Debug("catalog ready", slog.String("path", path))
	return &Catalog{db: db, path: path, maxBytes: maxThumbBytes}, nil
}

// Path of the database file.
func (c *Catalog) Path() string { return c.path }

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at 1 so every migration step runs once.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureCatalogSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			snapshot_id TEXT    PRIMARY KEY,
			layer_count INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS layers (
			snapshot_id TEXT    NOT NULL REFERENCES snapshots(snapshot_id) ON DELETE CASCADE,
			position    INTEGER NOT NULL,
			layer_id    TEXT    NOT NULL,
			name        TEXT    NOT NULL,
			source      TEXT,
			PRIMARY KEY(snapshot_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS thumbnails (
			snapshot_id TEXT    PRIMARY KEY,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			png         BLOB    NOT NULL,
			size        INTEGER NOT NULL,
			updated_at  TEXT    NOT NULL,
			last_access INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure catalog schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_layers_name ON layers(name COLLATE NOCASE);`,
				`CREATE INDEX IF NOT EXISTS idx_thumbnails_access ON thumbnails(last_access);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (c *Catalog) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// language=SQL
// dialect=SQLite
const upsertSnapshotSQL = `INSERT INTO snapshots(snapshot_id, layer_count, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(snapshot_id) DO UPDATE SET layer_count=excluded.layer_count, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const insertLayerSQL = `INSERT INTO layers(snapshot_id, position, layer_id, name, source) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLayersSQL = `SELECT layer_id, name, COALESCE(source, '') FROM layers WHERE snapshot_id = ? ORDER BY position`

// PutLayers replaces the catalogued layer list of a snapshot.
func (c *Catalog) PutLayers(ctx context.Context, snapshotID string, layers []domain.Layer) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put layers: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, upsertSnapshotSQL, snapshotID, len(layers), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE snapshot_id = ?`, snapshotID); err != nil {
		return fmt.Errorf("clear layers: %w", err)
	}
	for i, ly := range layers {
		if _, err := tx.ExecContext(ctx, insertLayerSQL, snapshotID, i, ly.ID, ly.Name, ly.Source); err != nil {
			return fmt.Errorf("insert layer: %w", err)
		}
	}
	return tx.Commit()
}

// Layers returns the catalogued layers of a snapshot. ok is false when the
// snapshot was never catalogued.
func (c *Catalog) Layers(ctx context.Context, snapshotID string) (layers []domain.Layer, ok bool, err error) {
	var n int
	err = c.db.QueryRowContext(ctx, `SELECT layer_count FROM snapshots WHERE snapshot_id = ?`, snapshotID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query snapshot: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, selectLayersSQL, snapshotID)
	if err != nil {
		return nil, false, fmt.Errorf("query layers: %w", err)
	}
	defer rows.Close()
	layers = make([]domain.Layer, 0, n)
	for rows.Next() {
		var ly domain.Layer
		if err := rows.Scan(&ly.ID, &ly.Name, &ly.Source); err != nil {
			return nil, false, err
		}
		layers = append(layers, ly)
	}
	return layers, true, rows.Err()
}

// CopySnapshot duplicates the catalog entries of src under dst.
func (c *Catalog) CopySnapshot(ctx context.Context, src, dst string) error {
	layers, ok, err := c.Layers(ctx, src)
	if err != nil {
		return err
	}
	if ok {
		if err := c.PutLayers(ctx, dst, layers); err != nil {
			return err
		}
	}
	_, err = c.db.ExecContext(ctx, `INSERT OR REPLACE INTO thumbnails(snapshot_id, w, h, png, size, updated_at, last_access)
		SELECT ?, w, h, png, size, updated_at, last_access FROM thumbnails WHERE snapshot_id = ?`, dst, src)
	if err != nil {
		return fmt.Errorf("copy thumbnail: %w", err)
	}
	return nil
}

// DropSnapshot forgets everything catalogued for a snapshot.
func (c *Catalog) DropSnapshot(ctx context.Context, snapshotID string) error {
	stmts := []string{
		`DELETE FROM layers WHERE snapshot_id = ?`,
		`DELETE FROM snapshots WHERE snapshot_id = ?`,
		`DELETE FROM thumbnails WHERE snapshot_id = ?`,
	}
	for _, q := range stmts {
		if _, err := c.db.ExecContext(ctx, q, snapshotID); err != nil {
			return fmt.Errorf("drop snapshot: %w", err)
		}
	}
	return nil
}
