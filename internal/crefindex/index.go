// Package crefindex persists the code references of a resolved scope in
// SQLite, so documentation tooling can join crefs to declarations without
// rebuilding the repository on every lookup.
package crefindex

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Index is the SQLite data access layer for the cref tables.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) an index database at path with WAL mode enabled.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (x *Index) DB() *sql.DB {
	return x.db
}

// Migrate creates the tables and indexes. Idempotent.
func (x *Index) Migrate() error {
	if _, err := x.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS assemblies (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  version         TEXT
);

CREATE TABLE IF NOT EXISTS entries (
  id              INTEGER PRIMARY KEY,
  assembly_id     INTEGER NOT NULL REFERENCES assemblies(id),
  cref            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  declaring       TEXT,
  signature       TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_assembly ON entries(assembly_id);
CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name);
CREATE INDEX IF NOT EXISTS idx_entries_declaring ON entries(declaring);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
`

// DeleteAssembly transactionally removes an assembly and all its entries,
// returning the number of entries dropped. Re-indexing an assembly starts
// with this.
func (x *Index) DeleteAssembly(name string) (int64, error) {
	tx, err := x.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var asmID int64
	err = tx.QueryRow("SELECT id FROM assemblies WHERE name = ?", name).Scan(&asmID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("assembly by name: %w", err)
	}

	res, err := tx.Exec("DELETE FROM entries WHERE assembly_id = ?", asmID)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	dropped, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM assemblies WHERE id = ?", asmID); err != nil {
		return 0, fmt.Errorf("delete assembly: %w", err)
	}
	return dropped, tx.Commit()
}
