// Package histostore is the on-disk histogram store: a SQLite-backed
// stand-in for spec.md §6's "directory-structured ROOT file mirroring
// folder paths", where folder paths come from the wire protocol's
// config message (histogram-name, folder-path) pairs.
//
// Schema migration is grounded on legacy/internal/db/migrate.go's
// golang-migrate/iofs pattern. Unlike that package, there is no
// pre-existing fleet of legacy databases to adopt here, so the
// baseline-detection/schema-diff machinery in legacy/internal/db/db.go
// is not carried over: Open always migrates a fresh or already-current
// database straight to the latest embedded migration.
package histostore

import (
	"bytes"
	"database/sql"
	"embed"
	"encoding/gob"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Kind tags which histogram type a row's data blob decodes as.
type Kind string

const (
	KindH1    Kind = "h1"
	KindH2    Kind = "h2"
	KindProf1 Kind = "prof1"
	KindProf2 Kind = "prof2"
)

// Entry is one row's identity, without decoding its data blob.
type Entry struct {
	FolderPath string
	Kind       Kind
	Name       string
}

// Store persists histogram snapshots keyed by folder path, kind and
// name, the same (folder-path, name) addressing spec.md's config
// message declares.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// migrates it to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: histostore: open %q: %v", recoerr.ErrArchiveIO, path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: histostore: journal_mode: %v", recoerr.ErrArchiveIO, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: histostore: busy_timeout: %v", recoerr.ErrArchiveIO, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: histostore: migration source: %v", recoerr.ErrArchiveIO, err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: histostore: migration driver: %v", recoerr.ErrArchiveIO, err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%w: histostore: migration instance: %v", recoerr.ErrArchiveIO, err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: histostore: migrate up: %v", recoerr.ErrArchiveIO, err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[histostore migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: histostore: encode: %v", recoerr.ErrArchiveIO, err)
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(v); err != nil {
		return fmt.Errorf("%w: histostore: decode: %v", recoerr.ErrArchiveIO, err)
	}
	return nil
}

// put inserts or overwrites a row. spec.md §6 "overwrite is explicit":
// REPLACE always succeeds rather than erroring on an existing key.
func (s *Store) put(folderPath string, kind Kind, name string, data []byte, updatedUnixNano int64) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO histogram_entries (folder_path, kind, name, data, updated_unix_nano) VALUES (?, ?, ?, ?, ?)`,
		folderPath, string(kind), name, data, updatedUnixNano,
	)
	if err != nil {
		return fmt.Errorf("%w: histostore: put %s/%s/%s: %v", recoerr.ErrArchiveIO, folderPath, kind, name, err)
	}
	return nil
}

func (s *Store) get(folderPath string, kind Kind, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM histogram_entries WHERE folder_path = ? AND kind = ? AND name = ?`,
		folderPath, string(kind), name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: histostore: %s/%s/%s not found", recoerr.ErrArchiveIO, folderPath, kind, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: histostore: get %s/%s/%s: %v", recoerr.ErrArchiveIO, folderPath, kind, name, err)
	}
	return data, nil
}

// PutH1/PutH2/PutProf1/PutProf2 store one histogram's current snapshot
// under folderPath, overwriting any prior entry of the same name/kind.
func (s *Store) PutH1(folderPath string, h *histo.H1D, updatedUnixNano int64) error {
	data, err := encodeGob(h.Snapshot())
	if err != nil {
		return err
	}
	return s.put(folderPath, KindH1, h.Name, data, updatedUnixNano)
}

func (s *Store) PutH2(folderPath string, h *histo.H2D, updatedUnixNano int64) error {
	data, err := encodeGob(h.Snapshot())
	if err != nil {
		return err
	}
	return s.put(folderPath, KindH2, h.Name, data, updatedUnixNano)
}

func (s *Store) PutProf1(folderPath string, p *histo.Prof1D, updatedUnixNano int64) error {
	data, err := encodeGob(p.Snapshot())
	if err != nil {
		return err
	}
	return s.put(folderPath, KindProf1, p.Name, data, updatedUnixNano)
}

func (s *Store) PutProf2(folderPath string, p *histo.Prof2D, updatedUnixNano int64) error {
	data, err := encodeGob(p.Snapshot())
	if err != nil {
		return err
	}
	return s.put(folderPath, KindProf2, p.Name, data, updatedUnixNano)
}

// PutContainer stores every histogram in c under folderPath in one call,
// the store-side counterpart of the wire protocol publishing a whole
// histo.Container per timeslice.
func (s *Store) PutContainer(folderPath string, c *histo.Container, updatedUnixNano int64) error {
	for _, h := range c.H1 {
		if err := s.PutH1(folderPath, h, updatedUnixNano); err != nil {
			return err
		}
	}
	for _, h := range c.H2 {
		if err := s.PutH2(folderPath, h, updatedUnixNano); err != nil {
			return err
		}
	}
	for _, p := range c.Prof1 {
		if err := s.PutProf1(folderPath, p, updatedUnixNano); err != nil {
			return err
		}
	}
	for _, p := range c.Prof2 {
		if err := s.PutProf2(folderPath, p, updatedUnixNano); err != nil {
			return err
		}
	}
	return nil
}

// GetH1/GetH2/GetProf1/GetProf2 retrieve and decode one stored
// histogram. They return a recoerr.ErrArchiveIO-wrapped error if no
// entry exists under folderPath/name.
func (s *Store) GetH1(folderPath, name string) (*histo.H1D, error) {
	data, err := s.get(folderPath, KindH1, name)
	if err != nil {
		return nil, err
	}
	var snap histo.H1DSnapshot
	if err := decodeGob(data, &snap); err != nil {
		return nil, err
	}
	return histo.H1DFromSnapshot(snap), nil
}

func (s *Store) GetH2(folderPath, name string) (*histo.H2D, error) {
	data, err := s.get(folderPath, KindH2, name)
	if err != nil {
		return nil, err
	}
	var snap histo.H2DSnapshot
	if err := decodeGob(data, &snap); err != nil {
		return nil, err
	}
	return histo.H2DFromSnapshot(snap), nil
}

func (s *Store) GetProf1(folderPath, name string) (*histo.Prof1D, error) {
	data, err := s.get(folderPath, KindProf1, name)
	if err != nil {
		return nil, err
	}
	var snap histo.Prof1DSnapshot
	if err := decodeGob(data, &snap); err != nil {
		return nil, err
	}
	return histo.Prof1DFromSnapshot(snap), nil
}

func (s *Store) GetProf2(folderPath, name string) (*histo.Prof2D, error) {
	data, err := s.get(folderPath, KindProf2, name)
	if err != nil {
		return nil, err
	}
	var snap histo.Prof2DSnapshot
	if err := decodeGob(data, &snap); err != nil {
		return nil, err
	}
	return histo.Prof2DFromSnapshot(snap), nil
}

// ListFolder returns every entry stored directly under folderPath,
// ordered by kind then name.
func (s *Store) ListFolder(folderPath string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT kind, name FROM histogram_entries WHERE folder_path = ? ORDER BY kind, name`,
		folderPath,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: histostore: list %q: %v", recoerr.ErrArchiveIO, folderPath, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return nil, fmt.Errorf("%w: histostore: list %q: %v", recoerr.ErrArchiveIO, folderPath, err)
		}
		entries = append(entries, Entry{FolderPath: folderPath, Kind: Kind(kind), Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: histostore: list %q: %v", recoerr.ErrArchiveIO, folderPath, err)
	}
	return entries, nil
}
