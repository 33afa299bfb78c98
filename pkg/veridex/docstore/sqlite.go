// Package docstore implements the embedded doc-offset index: a
// persistent doc_uid → byte-offset table backing the query engine's
// get_doc_meta lookup.
package docstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/veridex/veridex/pkg/veridex/verr"
)

// CommitBatch is the number of upserts committed per transaction while
// building the index, bounding memory during large finalizer runs.
const CommitBatch = 5000

// Store wraps the doc_index(doc_id, offset) table. The column is named
// doc_id for on-disk compatibility but stores doc_uid values.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the doc-offset store at path in WAL
// mode.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS doc_index (
	doc_id TEXT PRIMARY KEY,
	offset INTEGER NOT NULL
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Builder batches (doc_uid, offset) inserts into transactions of
// CommitBatch entries, committing whenever the batch fills and on
// Flush.
type Builder struct {
	store   *Store
	ctx     context.Context
	tx      *sql.Tx
	stmt    *sql.Stmt
	pending int
}

// NewBuilder starts a batched-insert session against store.
func (s *Store) NewBuilder(ctx context.Context) *Builder {
	return &Builder{store: s, ctx: ctx}
}

// Put upserts one (docUID, offset) pair, duplicates overwriting the
// prior offset, matching the "later one wins" doc_uid-collision rule.
func (b *Builder) Put(docUID string, offset int64) error {
	if b.tx == nil {
		tx, err := b.store.db.BeginTx(b.ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
		}
		stmt, err := tx.PrepareContext(b.ctx, `INSERT INTO doc_index(doc_id, offset) VALUES (?, ?)
			ON CONFLICT(doc_id) DO UPDATE SET offset=excluded.offset`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
		}
		b.tx = tx
		b.stmt = stmt
	}

	if _, err := b.stmt.ExecContext(b.ctx, docUID, offset); err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	b.pending++

	if b.pending >= CommitBatch {
		return b.commit()
	}
	return nil
}

func (b *Builder) commit() error {
	if b.tx == nil {
		return nil
	}
	b.stmt.Close()
	err := b.tx.Commit()
	b.tx = nil
	b.stmt = nil
	b.pending = 0
	if err != nil {
		return fmt.Errorf("%w: %v", verr.ErrInternalIO, err)
	}
	return nil
}

// Flush commits any partial pending transaction. Must be called after
// the last Put.
func (b *Builder) Flush() error {
	return b.commit()
}

// Lookup returns the stored byte offset for docUID, or ok=false if
// absent.
func (s *Store) Lookup(ctx context.Context, docUID string) (offset int64, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT offset FROM doc_index WHERE doc_id = ?`, docUID)
	if scanErr := row.Scan(&offset); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", verr.ErrInternalIO, scanErr)
	}
	return offset, true, nil
}
