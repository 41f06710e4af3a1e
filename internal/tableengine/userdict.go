package tableengine

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	_ "github.com/mattn/go-sqlite3"

	"tabledict/internal/engine"
)

// userFormat is stored in PRAGMA user_version.
const userFormat = 1

const userSchema = `
CREATE TABLE phrases (
    code    TEXT NOT NULL,
    word    TEXT NOT NULL,
    idx     INTEGER NOT NULL,
    flag    INTEGER NOT NULL,
    PRIMARY KEY (code, word)
);

CREATE TABLE deletions (
    code    TEXT NOT NULL,
    word    TEXT NOT NULL,
    PRIMARY KEY (code, word)
);
`

// sqliteDSN returns a file: URI for path. SQLite decodes URI filenames, so
// '?', '#' and '%' in the path must be escaped.
func sqliteDSN(path, query string) string {
	u := &url.URL{Scheme: "file", OmitHost: true, Path: path, RawQuery: query}
	return u.String()
}

// loadUser replaces the overlay with the content of path. A missing file is
// an empty overlay.
func (t *table) loadUser(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		t.user = nil
		t.deleted = make(map[pair]struct{})
		t.nextUser = 0
		return nil
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path, "mode=ro"))
	if err != nil {
		return fmt.Errorf("open user dictionary: %w", err)
	}
	defer db.Close()

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user dictionary: %w", err)
	}
	if version != userFormat {
		return fmt.Errorf("%s: unsupported user dictionary format %d", path, version)
	}

	var user []entry
	var next uint32
	rows, err := db.Query("SELECT code, word, idx, flag FROM phrases")
	if err != nil {
		return fmt.Errorf("query phrases: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e entry
		var flag uint32
		if err := rows.Scan(&e.code, &e.word, &e.index, &flag); err != nil {
			return fmt.Errorf("scan phrase: %w", err)
		}
		e.flag = engine.PhraseFlag(flag).Normalize()
		user = append(user, e)
		next = max(next, e.index+1)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate phrases: %w", err)
	}

	deleted := make(map[pair]struct{})
	drows, err := db.Query("SELECT code, word FROM deletions")
	if err != nil {
		return fmt.Errorf("query deletions: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var p pair
		if err := drows.Scan(&p.code, &p.word); err != nil {
			return fmt.Errorf("scan deletion: %w", err)
		}
		deleted[p] = struct{}{}
	}
	if err := drows.Err(); err != nil {
		return fmt.Errorf("iterate deletions: %w", err)
	}

	slices.SortFunc(user, compareEntries)
	t.user = user
	t.deleted = deleted
	t.nextUser = next
	return nil
}

// saveUser writes the overlay to a fresh database next to path and renames
// it into place.
func (t *table) saveUser(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create user dictionary directory: %w", err)
	}

	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return fmt.Errorf("lock user dictionary: %w", err)
	}
	defer unlock()

	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}
	if err := t.writeUser(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace user dictionary: %w", err)
	}
	return nil
}

func (t *table) writeUser(path string) error {
	db, err := sql.Open("sqlite3", sqliteDSN(path, ""))
	if err != nil {
		return fmt.Errorf("create user dictionary: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(userSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", userFormat)); err != nil {
		return fmt.Errorf("set format: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO phrases (code, word, idx, flag) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()
	for _, e := range t.user {
		if _, err := stmt.Exec(e.code, e.word, e.index, uint32(e.flag)); err != nil {
			return fmt.Errorf("insert phrase: %w", err)
		}
	}

	for p := range t.deleted {
		if _, err := tx.Exec("INSERT OR REPLACE INTO deletions (code, word) VALUES (?, ?)", p.code, p.word); err != nil {
			return fmt.Errorf("insert deletion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
