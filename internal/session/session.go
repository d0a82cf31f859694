// Package session persists a VM's global variables across process
// invocations. It is entirely optional (spec §11 item 1): a script run
// without -session behaves exactly as spec §5 describes, with globals
// scoped to the single VM instance for the lifetime of the process.
//
// Storage is a single SQLite database file, opened with
// modernc.org/sqlite's pure-Go driver through database/sql. Each stored
// global gets a stable, random id (google/uuid) so a future revision can
// add history/versioning without renaming the primary key.
package session

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"noxy-vm/internal/value"
)

const schema = `
CREATE TABLE IF NOT EXISTS globals (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	type  TEXT NOT NULL,
	value TEXT NOT NULL
);`

// Store wraps an open session database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the session database at path, applying the
// schema if this is a fresh file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Load reads every stored global back into a name->Value map suitable for
// seeding a fresh VM. Only the scalar kinds (Nil/Boolean/Number/String)
// are persisted — a function or native value is never written by Save,
// so Load never needs to reconstruct one.
func (s *Store) Load() (map[string]value.Value, error) {
	rows, err := s.db.Query(`SELECT name, type, value FROM globals`)
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	defer rows.Close()

	out := make(map[string]value.Value)
	for rows.Next() {
		var name, typ, raw string
		if err := rows.Scan(&name, &typ, &raw); err != nil {
			return nil, fmt.Errorf("session: scan row: %w", err)
		}
		v, err := decode(typ, raw)
		if err != nil {
			return nil, fmt.Errorf("session: decode %q: %w", name, err)
		}
		out[name] = v
	}
	return out, rows.Err()
}

// Save persists globals, replacing whatever was previously stored under
// each name. Function and native values are skipped: they have no
// serializable form (spec §9's closures-are-flat decision means a
// function value is closed over nothing but its own chunk index, which
// is meaningless across process invocations).
func (s *Store) Save(globals map[string]value.Value) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO globals (id, name, type, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET type = excluded.type, value = excluded.value`)
	if err != nil {
		return fmt.Errorf("session: prepare: %w", err)
	}
	defer stmt.Close()

	for name, v := range globals {
		typ, raw, ok := encode(v)
		if !ok {
			continue
		}
		if _, err := stmt.Exec(uuid.NewString(), name, typ, raw); err != nil {
			return fmt.Errorf("session: save %q: %w", name, err)
		}
	}
	return tx.Commit()
}

func encode(v value.Value) (typ, raw string, ok bool) {
	switch v.Type {
	case value.Nil:
		return "nil", "", true
	case value.Boolean:
		if v.Bool {
			return "bool", "true", true
		}
		return "bool", "false", true
	case value.Number:
		return "number", v.String(), true
	case value.String:
		return "string", v.Str, true
	default:
		return "", "", false
	}
}

func decode(typ, raw string) (value.Value, error) {
	switch typ {
	case "nil":
		return value.NilVal(), nil
	case "bool":
		return value.Bool(raw == "true"), nil
	case "number":
		var n float64
		if _, err := fmt.Sscanf(raw, "%g", &n); err != nil {
			return value.Value{}, err
		}
		return value.Num(n), nil
	case "string":
		return value.Str(raw), nil
	default:
		return value.Value{}, fmt.Errorf("unknown stored type %q", typ)
	}
}
