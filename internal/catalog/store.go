// SPDX-License-Identifier: MPL-2.0

// Package catalog is the community mod catalog: a SQLite table of uploaded
// mods plus the upload directory holding their package files.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"barkmods-cli/internal/catalog/migrations"
)

var (
	// ErrNotFound is returned when no catalog entry has the requested id.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrBusy is returned when the database stayed locked past the busy timeout.
	ErrBusy = errors.New("catalog database busy")
)

type (
	// Mod is one catalog entry.
	Mod struct {
		ID           int64     `json:"id"`
		Name         string    `json:"mod_name"`
		Author       string    `json:"author"`
		Version      string    `json:"version"`
		Description  string    `json:"description"`
		Dependencies string    `json:"dependencies"`
		FileName     string    `json:"filename"`
		Screenshot   string    `json:"screenshot,omitempty"`
		Digest       string    `json:"digest,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Store persists catalog entries in SQLite.
	Store struct {
		sqlDB *sql.DB
	}
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// dsnPragmas are applied by modernc.org/sqlite to every new connection.
const dsnPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// Open opens the catalog database and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog database path is required")
	}
	dsn := filepath.Clean(path) + "?" + dsnPragmas
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts a catalog entry and returns it with its id and timestamp.
func (s *Store) Create(ctx context.Context, mod Mod) (Mod, error) {
	if err := ctx.Err(); err != nil {
		return Mod{}, err
	}
	if mod.CreatedAt.IsZero() {
		mod.CreatedAt = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO mods (
		   mod_name, author, version, description, dependencies,
		   filename, screenshot, digest, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mod.Name,
		mod.Author,
		mod.Version,
		mod.Description,
		mod.Dependencies,
		mod.FileName,
		nullString(mod.Screenshot),
		mod.Digest,
		toMillis(mod.CreatedAt),
	)
	if err != nil {
		return Mod{}, wrapDBError("create catalog entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Mod{}, fmt.Errorf("create catalog entry: %w", err)
	}
	mod.ID = id
	mod.CreatedAt = fromMillis(toMillis(mod.CreatedAt))
	return mod, nil
}

const selectColumns = `SELECT id, mod_name, author, version, description,
        dependencies, filename, screenshot, digest, created_at
   FROM mods`

// List returns every entry, newest first.
func (s *Store) List(ctx context.Context) ([]Mod, error) {
	rows, err := s.sqlDB.QueryContext(ctx, selectColumns+` ORDER BY id DESC`)
	if err != nil {
		return nil, wrapDBError("list catalog", err)
	}
	defer func() { _ = rows.Close() }()

	var mods []Mod
	for rows.Next() {
		mod, err := scanMod(rows)
		if err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		mods = append(mods, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("list catalog", err)
	}
	return mods, nil
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id int64) (Mod, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	mod, err := scanMod(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Mod{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
		}
		return Mod{}, wrapDBError("get catalog entry", err)
	}
	return mod, nil
}

// Delete removes one entry by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM mods WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete catalog entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	return nil
}

// References counts entries pointing at a stored file, by package filename
// or by screenshot filename.
func (s *Store) References(ctx context.Context, fileName, screenshot string) (files, screenshots int, err error) {
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM mods WHERE filename = ?),
		   (SELECT COUNT(*) FROM mods WHERE screenshot = ?)`,
		fileName, screenshot,
	).Scan(&files, &screenshots)
	if err != nil {
		return 0, 0, wrapDBError("count references", err)
	}
	return files, screenshots, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMod(row rowScanner) (Mod, error) {
	var (
		mod          Mod
		dependencies sql.NullString
		screenshot   sql.NullString
		createdAt    int64
	)
	err := row.Scan(
		&mod.ID,
		&mod.Name,
		&mod.Author,
		&mod.Version,
		&mod.Description,
		&dependencies,
		&mod.FileName,
		&screenshot,
		&mod.Digest,
		&createdAt,
	)
	if err != nil {
		return Mod{}, err
	}
	mod.Dependencies = dependencies.String
	mod.Screenshot = screenshot.String
	mod.CreatedAt = fromMillis(createdAt)
	return mod, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// wrapDBError maps a lock timeout to ErrBusy.
func wrapDBError(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrBusy, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
