package baseline

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bamsammich/linever/internal/fingerprint"
)

// SQLiteStore keeps the baseline in a SQLite database, one row per tracked
// path and one row per line hash.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore returns a store backed by the SQLite database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tracked (
		position INTEGER PRIMARY KEY,
		path     TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS files (
		path       TEXT PRIMARY KEY,
		file_hash  TEXT NOT NULL,
		line_count INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS lines (
		path   TEXT NOT NULL,
		lineno INTEGER NOT NULL,
		hash   TEXT NOT NULL,
		PRIMARY KEY (path, lineno)
	);
`

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(s.path))
	if err != nil {
		return nil, fmt.Errorf("open baseline db: %w", err)
	}
	return db, nil
}

// sqliteDSN builds a file: URI for path, escaping characters such as '?'
// and '#' that would otherwise start the query or fragment.
func sqliteDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		OmitHost: true,
		Path:     filepath.ToSlash(path),
		RawQuery: "_pragma=busy_timeout(5000)",
	}
	return u.String()
}

func (s *SQLiteStore) Load() (*Baseline, error) {
	// Opening a missing database would create it.
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil //nolint:nilnil // absent store is an empty baseline
		}
		return nil, fmt.Errorf("stat baseline %s: %w", s.path, err)
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	malformed := func(reason string, err error) error {
		return &MalformedError{Path: s.path, Reason: reason, Err: err}
	}

	meta := make(map[string]string)
	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, malformed("read meta", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, malformed("scan meta", err)
		}
		meta[k] = v
	}
	rows.Close()

	if meta["algorithm"] == "" {
		return nil, malformed("missing algorithm", nil)
	}
	b := New(meta["algorithm"])
	b.Version = meta["version"]

	rows, err = db.Query("SELECT path FROM tracked ORDER BY position")
	if err != nil {
		return nil, malformed("read tracked", err)
	}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, malformed("scan tracked", err)
		}
		b.Paths = append(b.Paths, path)
	}
	rows.Close()

	counts := make(map[string]int)
	rows, err = db.Query("SELECT path, file_hash, line_count FROM files")
	if err != nil {
		return nil, malformed("read files", err)
	}
	for rows.Next() {
		var (
			path, hash string
			count      int
		)
		if err := rows.Scan(&path, &hash, &count); err != nil {
			rows.Close()
			return nil, malformed("scan files", err)
		}
		counts[path] = count
		b.Entries[path] = &fingerprint.Fingerprint{
			Path:       path,
			Algorithm:  b.Algorithm,
			LineHashes: make([]string, 0, count),
			FileHash:   hash,
		}
	}
	rows.Close()

	rows, err = db.Query("SELECT path, lineno, hash FROM lines ORDER BY path, lineno")
	if err != nil {
		return nil, malformed("read lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			path, hash string
			lineno     int
		)
		if err := rows.Scan(&path, &lineno, &hash); err != nil {
			return nil, malformed("scan lines", err)
		}
		fp, ok := b.Entries[path]
		if !ok {
			return nil, malformed(fmt.Sprintf("line hashes for unrecorded file %s", path), nil)
		}
		if lineno != fp.LineCount()+1 {
			return nil, malformed(fmt.Sprintf("%s: line %d out of sequence", path, lineno), nil)
		}
		fp.LineHashes = append(fp.LineHashes, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, malformed("read lines", err)
	}

	for path, fp := range b.Entries {
		if fp.LineCount() != counts[path] {
			return nil, malformed(
				fmt.Sprintf("%s records %d lines but %d line hashes", path, counts[path], fp.LineCount()), nil)
		}
	}
	return b, nil
}

func (s *SQLiteStore) Save(b *Baseline) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := writeBaseline(tx, b); err != nil {
		tx.Rollback() //nolint:errcheck // original error is more useful
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeBaseline(tx *sql.Tx, b *Baseline) error {
	for _, table := range []string{"meta", "tracked", "files", "lines"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO meta (key, value) VALUES ('algorithm', ?), ('version', ?)",
		b.Algorithm, b.Version,
	); err != nil {
		return fmt.Errorf("store meta: %w", err)
	}

	for i, path := range b.Paths {
		if _, err := tx.Exec("INSERT INTO tracked (position, path) VALUES (?, ?)", i, path); err != nil {
			return fmt.Errorf("insert tracked %s: %w", path, err)
		}
	}

	fileStmt, err := tx.Prepare("INSERT INTO files (path, file_hash, line_count) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer fileStmt.Close()

	lineStmt, err := tx.Prepare("INSERT INTO lines (path, lineno, hash) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer lineStmt.Close()

	for path, fp := range b.Entries {
		if _, err := fileStmt.Exec(path, fp.FileHash, fp.LineCount()); err != nil {
			return fmt.Errorf("insert %s: %w", path, err)
		}
		for i, h := range fp.LineHashes {
			if _, err := lineStmt.Exec(path, i+1, h); err != nil {
				return fmt.Errorf("insert %s:%d: %w", path, i+1, err)
			}
		}
	}
	return nil
}
