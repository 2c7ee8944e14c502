package crefindex

import (
	"database/sql"
	"fmt"
)

// Assembly is one indexed program scope unit.
type Assembly struct {
	ID      int64
	Name    string
	Version string
}

// Entry is one indexed declaration: a type or member keyed by its code
// reference. Declaring is empty for type entries; Signature carries the
// canonical signature for type entries and is empty for members.
type Entry struct {
	ID        int64
	Assembly  string
	Cref      string
	Kind      string
	Name      string
	Declaring string
	Signature string
}

const entryCols = `e.id, a.name, e.cref, e.kind, e.name, e.declaring, e.signature`

// InsertAssembly records an assembly, returning its row id. Re-inserting an
// already indexed assembly fails; callers delete first.
func (x *Index) InsertAssembly(name, version string) (int64, error) {
	res, err := x.db.Exec("INSERT INTO assemblies (name, version) VALUES (?, ?)", name, version)
	if err != nil {
		return 0, fmt.Errorf("insert assembly: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// InsertEntry records one declaration under an assembly row id.
func (x *Index) InsertEntry(asmID int64, e *Entry) (int64, error) {
	res, err := x.db.Exec(
		"INSERT INTO entries (assembly_id, cref, kind, name, declaring, signature) VALUES (?, ?, ?, ?, ?, ?)",
		asmID, e.Cref, e.Kind, e.Name, e.Declaring, e.Signature,
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry %s: %w", e.Cref, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return id, nil
}

// InsertEntries records a batch of declarations inside one transaction with
// a prepared statement, which is what keeps whole-assembly indexing fast.
func (x *Index) InsertEntries(asmID int64, entries []*Entry) error {
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO entries (assembly_id, cref, kind, name, declaring, signature) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		res, err := stmt.Exec(asmID, e.Cref, e.Kind, e.Name, e.Declaring, e.Signature)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Cref, err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	}
	return tx.Commit()
}

func (x *Index) scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	e := &Entry{}
	var declaring, signature sql.NullString
	err := scanner.Scan(&e.ID, &e.Assembly, &e.Cref, &e.Kind, &e.Name, &declaring, &signature)
	if err != nil {
		return nil, err
	}
	e.Declaring = declaring.String
	e.Signature = signature.String
	return e, nil
}

func (x *Index) queryEntries(query string, args ...any) ([]*Entry, error) {
	rows, err := x.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*Entry
	for rows.Next() {
		e, err := x.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ByCref returns the entry with the exact code reference, nil when the
// reference is not indexed.
func (x *Index) ByCref(cref string) (*Entry, error) {
	e, err := x.scanEntry(x.db.QueryRow(
		"SELECT "+entryCols+" FROM entries e JOIN assemblies a ON a.id = e.assembly_id WHERE e.cref = ?", cref))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entry by cref: %w", err)
	}
	return e, nil
}

// ByPrefix returns up to limit entries whose code reference starts with the
// given prefix, ordered by reference. A limit of zero or less means no cap.
func (x *Index) ByPrefix(prefix string, limit int) ([]*Entry, error) {
	query := "SELECT " + entryCols + ` FROM entries e JOIN assemblies a ON a.id = e.assembly_id
		WHERE e.cref LIKE ? ESCAPE '\' ORDER BY e.cref`
	args := []any{likePrefix(prefix)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	entries, err := x.queryEntries(query, args...)
	if err != nil {
		return nil, fmt.Errorf("entries by prefix: %w", err)
	}
	return entries, nil
}

// ByName returns every entry with the given simple name.
func (x *Index) ByName(name string) ([]*Entry, error) {
	entries, err := x.queryEntries(
		"SELECT "+entryCols+" FROM entries e JOIN assemblies a ON a.id = e.assembly_id WHERE e.name = ? ORDER BY e.cref",
		name)
	if err != nil {
		return nil, fmt.Errorf("entries by name: %w", err)
	}
	return entries, nil
}

// ByDeclaring returns every member entry declared by the named type.
func (x *Index) ByDeclaring(declaring string) ([]*Entry, error) {
	entries, err := x.queryEntries(
		"SELECT "+entryCols+" FROM entries e JOIN assemblies a ON a.id = e.assembly_id WHERE e.declaring = ? ORDER BY e.cref",
		declaring)
	if err != nil {
		return nil, fmt.Errorf("entries by declaring: %w", err)
	}
	return entries, nil
}

// Count returns the total number of indexed entries.
func (x *Index) Count() (int64, error) {
	var n int64
	if err := x.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// likePrefix escapes LIKE metacharacters so a cref prefix matches literally.
func likePrefix(prefix string) string {
	out := make([]byte, 0, len(prefix)+2)
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, prefix[i])
	}
	return string(append(out, '%'))
}
