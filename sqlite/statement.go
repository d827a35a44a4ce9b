package sqlite

import (
	"database/sql"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Status of a stepped Stmt. Values match the SQLite result codes.
type Status int

const (
	// StatusRow is returned when a step produced a row.
	StatusRow Status = 100
	// StatusDone is returned when a step ran to completion.
	StatusDone Status = 101
)

// ErrDisposed is returned by operations on a Stmt which was already disposed.
var ErrDisposed = errors.New("statement is disposed")

// Stmt is a prepared statement of a Database.
type Stmt struct {
	db      *Database
	query   string
	stmt    *sql.Stmt
	args    []interface{} // Positional bindings. Index zero is parameter one.
	handle  uint64        // Unique, non-zero handle of this Stmt.
	changes int64         // Rows affected by the last Step.
	cursor  *Cursor       // Cursor of the last Query, if not yet disposed.
	cached  bool          // Owned by Database.PrepareCached.

	disposed bool
}

var lastHandle uint64

func newStmt(db *Database, query string, stmt *sql.Stmt) *Stmt {
	return &Stmt{
		db:     db,
		query:  query,
		stmt:   stmt,
		handle: atomic.AddUint64(&lastHandle, 1),
	}
}

// SQL returns the text of the Stmt.
func (s *Stmt) SQL() string { return s.query }

// BindInt32 binds |value| to parameter |index| (1-based).
func (s *Stmt) BindInt32(index int, value int32) error { return s.bind(index, int64(value)) }

// BindInt64 binds |value| to parameter |index| (1-based).
func (s *Stmt) BindInt64(index int, value int64) error { return s.bind(index, value) }

// BindDouble binds |value| to parameter |index| (1-based).
func (s *Stmt) BindDouble(index int, value float64) error { return s.bind(index, value) }

// BindString binds |value| to parameter |index| (1-based).
func (s *Stmt) BindString(index int, value string) error { return s.bind(index, value) }

// BindBytes binds a copy of |value| to parameter |index| (1-based).
func (s *Stmt) BindBytes(index int, value []byte) error {
	return s.bind(index, append([]byte{}, value...))
}

// BindNull binds NULL to parameter |index| (1-based).
func (s *Stmt) BindNull(index int) error { return s.bind(index, nil) }

func (s *Stmt) bind(index int, value interface{}) error {
	if s.disposed {
		return ErrDisposed
	} else if index < 1 {
		return errors.Errorf("bind index %d out of range (%q)", index, s.query)
	}
	for len(s.args) < index {
		s.args = append(s.args, nil)
	}
	s.args[index-1] = value
	return nil
}

// Step executes the Stmt with its current bindings. Any rows produced by
// the Stmt are discarded: use Query to read rows.
func (s *Stmt) Step() (Status, error) {
	if s.disposed {
		return 0, ErrDisposed
	}
	var result, err = s.stmt.Exec(s.args...)
	if err != nil {
		return 0, errors.WithMessagef(err, "step %q", s.query)
	}
	if s.changes, err = result.RowsAffected(); err != nil {
		return 0, errors.WithMessagef(err, "step %q", s.query)
	}
	return StatusDone, nil
}

// Changes returns the number of rows modified by the last Step.
func (s *Stmt) Changes() int64 { return s.changes }

// Query binds |args| (if any) as parameters 1 through len(args), and runs
// the Stmt. The returned Cursor must be disposed before any other operation
// is issued against the Stmt's Database.
func (s *Stmt) Query(args ...interface{}) (*Cursor, error) {
	if s.disposed {
		return nil, ErrDisposed
	}
	for i, arg := range args {
		if err := s.bind(i+1, arg); err != nil {
			return nil, err
		}
	}
	if err := s.Finalize(); err != nil {
		return nil, err
	}

	var rows, err = s.stmt.Query(s.args...)
	if err != nil {
		return nil, errors.WithMessagef(err, "query %q", s.query)
	}
	var cursor *Cursor
	if cursor, err = newCursor(rows, s); err != nil {
		return nil, errors.WithMessagef(err, "query %q", s.query)
	}
	s.cursor = cursor
	return cursor, nil
}

// Requery finalizes any open Cursor of the Stmt and clears its bindings,
// readying it for re-use.
func (s *Stmt) Requery() error {
	if s.disposed {
		return ErrDisposed
	}
	s.args = s.args[:0]
	s.changes = 0
	return s.Finalize()
}

// Handle returns the unique handle of the Stmt.
func (s *Stmt) Handle() (uint64, error) {
	if s.disposed {
		return 0, ErrDisposed
	}
	return s.handle, nil
}

// Finalize ends the query in progress (if any) by disposing of its Cursor.
// The Stmt itself remains usable.
func (s *Stmt) Finalize() error {
	if s.cursor == nil {
		return nil
	}
	var cursor = s.cursor
	s.cursor = nil
	return cursor.Dispose()
}

// Dispose finalizes and closes the Stmt. Dispose of an already disposed
// Stmt is a no-op.
func (s *Stmt) Dispose() error {
	if s.disposed {
		return nil
	}
	var err = s.Finalize()
	s.disposed = true

	if closeErr := s.stmt.Close(); err == nil && closeErr != nil {
		err = errors.WithMessagef(closeErr, "closing %q", s.query)
	}
	return err
}
