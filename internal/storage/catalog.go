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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	applog "raycast/internal/log"
	"raycast/internal/scene"
)

// ErrNotFound is returned by Lookup and Remove for paths the catalog does not hold.
var ErrNotFound = errors.New("scene not in catalog")

// Entry is one checked scene file.
type Entry struct {
	Path      string
	SHA256    string
	HasCamera bool
	Width     float64
	Height    float64
	Spheres   int
	Planes    int
	Warnings  int
	ErrorKind string // empty when the file parsed
	CheckedAt time.Time
}

// OK reports whether the file parsed without a fatal error.
func (e Entry) OK() bool { return e.ErrorKind == "" }

// NewEntry summarises a checked scene. sc may be nil when the parse failed, in which
// case errorKind should name the failure.
func NewEntry(path, sum string, sc *scene.Scene, warnings int, errorKind string) Entry {
	e := Entry{Path: path, SHA256: sum, Warnings: warnings, ErrorKind: errorKind, CheckedAt: time.Now().UTC()}
	if cam, ok := sc.Camera(); ok {
		e.HasCamera, e.Width, e.Height = true, cam.Width, cam.Height
	}
	e.Spheres, e.Planes = sc.Counts()
	return e
}

// Fingerprint returns the hex SHA-256 of r's content.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash scene: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Catalog is an open catalog database. It is safe for concurrent use.
type Catalog struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenCatalog opens or creates the catalog at path. A file that is not a usable
// SQLite database is backed up under <dir>/backups and replaced with an empty catalog.
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	l := applog.WithComponent("storage").With(slog.String("catalog", path))
	db, err := openDB(ctx, path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, err
		}
		bak, bErr := backupFile(path)
		if bErr != nil {
			return nil, fmt.Errorf("%w (backup failed: %v)", err, bErr)
		}
		l.Warn("catalog unreadable, recreating", slog.Any("err", err), slog.String("backup", bak))
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				return nil, fmt.Errorf("remove damaged catalog: %w", rmErr)
			}
		}
		if db, err = openDB(ctx, path); err != nil {
			return nil, fmt.Errorf("recreate catalog: %w", err)
		}
	}
	return &Catalog{db: db, path: path, log: l}, nil
}

// Path returns the database file the catalog was opened from.
func (c *Catalog) Path() string { return c.path }

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Record inserts or replaces the entry for e.Path.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	if e.Path == "" {
		return errors.New("entry path is required")
	}
	if e.CheckedAt.IsZero() {
		e.CheckedAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO scenes
		(path, sha256, has_camera, width, height, spheres, planes, warnings, error_kind, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			sha256=excluded.sha256, has_camera=excluded.has_camera,
			width=excluded.width, height=excluded.height,
			spheres=excluded.spheres, planes=excluded.planes,
			warnings=excluded.warnings, error_kind=excluded.error_kind,
			checked_at=excluded.checked_at`,
		e.Path, e.SHA256, boolInt(e.HasCamera), e.Width, e.Height,
		e.Spheres, e.Planes, e.Warnings, e.ErrorKind, e.CheckedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		c.log.Error("record scene failed", slog.String("path", e.Path), slog.Any("err", err))
		return fmt.Errorf("record %s: %w", e.Path, err)
	}
	c.log.Debug("scene recorded", slog.String("path", e.Path), slog.Bool("ok", e.OK()))
	return nil
}

const selectEntry = `SELECT path, sha256, has_camera, width, height, spheres, planes, warnings, error_kind, checked_at FROM scenes`

// Lookup returns the entry for path, or ErrNotFound.
func (c *Catalog) Lookup(ctx context.Context, path string) (Entry, error) {
	row := c.db.QueryRowContext(ctx, selectEntry+` WHERE path=?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup %s: %w", path, err)
	}
	return e, nil
}

// List returns every entry ordered by path.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, selectEntry+` ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list scenes: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return out, nil
}

// Remove deletes the entry for path, or returns ErrNotFound.
func (c *Catalog) Remove(ctx context.Context, path string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM scenes WHERE path=?`, path)
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e         Entry
		hasCamera int
		checked   string
	)
	if err := s.Scan(&e.Path, &e.SHA256, &hasCamera, &e.Width, &e.Height,
		&e.Spheres, &e.Planes, &e.Warnings, &e.ErrorKind, &checked); err != nil {
		return Entry{}, err
	}
	e.HasCamera = hasCamera != 0
	t, err := time.Parse(time.RFC3339Nano, checked)
	if err != nil {
		return Entry{}, fmt.Errorf("parse checked_at %q: %w", checked, err)
	}
	e.CheckedAt = t
	return e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
