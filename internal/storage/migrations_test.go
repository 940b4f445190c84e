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
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// TestMigrations_UpgradeV1ToV2 ensures that a schema-1 catalog gains the error_kind
// column and checked_at index without losing rows.
func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE scenes (path TEXT PRIMARY KEY, sha256 TEXT NOT NULL, has_camera INTEGER NOT NULL DEFAULT 0, width REAL NOT NULL DEFAULT 0, height REAL NOT NULL DEFAULT 0, spheres INTEGER NOT NULL DEFAULT 0, planes INTEGER NOT NULL DEFAULT 0, warnings INTEGER NOT NULL DEFAULT 0, checked_at TEXT NOT NULL);`,
		`INSERT INTO scenes(path, sha256, spheres, checked_at) VALUES('old.rt', 'h', 3, '2020-01-01T00:00:00Z');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	c, err := OpenCatalog(ctx, path)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	defer c.Close()
	var schema int
	if err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("expected schema %d after migration, got %d", schemaVersion, schema)
	}
	var cnt int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_scenes_checked_at'`).Scan(&cnt); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected checked_at index after migration, got %d", cnt)
	}
	e, err := c.Lookup(ctx, "old.rt")
	if err != nil {
		t.Fatalf("Lookup migrated row: %v", err)
	}
	if e.Spheres != 3 || !e.OK() {
		t.Fatalf("migrated row = %+v", e)
	}
}

func TestFreshCatalogAtCurrentSchema(t *testing.T) {
	c := openTestCatalog(t)
	var schema int
	if err := c.db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("fresh catalog at schema %d, want %d", schema, schemaVersion)
	}
}

func TestOpenCatalog_OnCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.sqlite")
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE, NOT EVEN CLOSE TO A DATABASE HEADER"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := OpenCatalog(ctx, path)
	if err != nil {
		t.Fatalf("OpenCatalog on corrupt file: %v", err)
	}
	defer c.Close()
	if err := c.Record(ctx, Entry{Path: "x.rt", SHA256: "x"}); err != nil {
		t.Fatalf("Record after rebuild: %v", err)
	}
	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err != nil || len(backups) == 0 {
		t.Fatalf("expected a backup of the damaged catalog: %v", err)
	}
}
