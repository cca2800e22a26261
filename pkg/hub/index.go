package hub

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/scottdavis/inferpipe/pkg/errors"
)

// Snapshot is one recorded hub download.
type Snapshot struct {
	Ref       string
	Revision  string
	Path      string
	CreatedAt time.Time
}

// Index records downloaded snapshots in a SQLite database so repeat
// resolutions of the same reference become local cache hits.
type Index struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// NewIndex opens (creating if needed) a snapshot index at path. If path
// is ":memory:", the index lives in-memory and is lost on Close.
func NewIndex(path string) (*Index, error) {
	connStr := path + "?cache=shared"
	if path == ":memory:" {
		connStr = path + "?cache=shared&mode=memory"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to open snapshot index"),
			errors.Fields{"path": path},
		)
	}

	idx := &Index{db: db, path: path}
	if err := idx.ensureInitialized(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) ensureInitialized() error {
	var initErr error
	i.initialized.Do(func() {
		// WAL mode keeps concurrent lookups cheap.
		if _, err := i.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS snapshots (
            ref TEXT PRIMARY KEY,
            revision TEXT NOT NULL,
            path TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );
        `
		if _, err := i.db.Exec(query); err != nil {
			initErr = errors.WithFields(
				errors.Wrap(err, errors.Unknown, "failed to initialize snapshot index"),
				errors.Fields{"query": query},
			)
			return
		}
	})
	return initErr
}

// Record stores or updates the local path for a downloaded reference.
func (i *Index) Record(ref, revision, path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	query := `
    INSERT INTO snapshots (ref, revision, path, updated_at)
    VALUES (?, ?, ?, CURRENT_TIMESTAMP)
    ON CONFLICT(ref) DO UPDATE SET
        revision = excluded.revision,
        path = excluded.path,
        updated_at = CURRENT_TIMESTAMP
    `
	if _, err := i.db.Exec(query, ref, revision, path); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to record snapshot"),
			errors.Fields{"ref": ref, "revision": revision},
		)
	}
	return nil
}

// Lookup returns the recorded local path for ref. The second return is
// false when the reference has never been downloaded.
func (i *Index) Lookup(ref string) (string, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var path string
	err := i.db.QueryRow("SELECT path FROM snapshots WHERE ref = ?", ref).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to look up snapshot"),
			errors.Fields{"ref": ref},
		)
	}
	return path, true, nil
}

// Remove drops the record for ref. Removing an absent reference is a
// no-op.
func (i *Index) Remove(ref string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.db.Exec("DELETE FROM snapshots WHERE ref = ?", ref); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to remove snapshot record"),
			errors.Fields{"ref": ref},
		)
	}
	return nil
}

// List returns all recorded snapshots ordered by reference.
func (i *Index) List() ([]Snapshot, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	rows, err := i.db.Query("SELECT ref, revision, path, created_at FROM snapshots ORDER BY ref")
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to list snapshots")
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Ref, &s.Revision, &s.Path, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan snapshot row")
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to iterate snapshot rows")
	}
	return snapshots, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}
