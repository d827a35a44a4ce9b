package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	_ "github.com/mattn/go-sqlite3" // Registers the "sqlite3" driver.
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Database is a single SQLite store, either durable (file-backed) or
// transient (memory-only).
type Database struct {
	// URIValues of the filename URI used to open the database. They're
	// populated by OpenFile and OpenMemory. See also the set of URI
	// parameters supported by github.com/mattn/go-sqlite3.
	URIValues url.Values
	// DB is the opened database. Clients may issue ad-hoc queries through
	// DB, but should prefer Prepare for statements on the routed path.
	DB *sql.DB

	name   string     // File path, or memory database name.
	memory bool       // Whether this is a transient memory database.
	cached *lru.Cache // Cached *Stmt, keyed on SQL text.
}

// StatementCacheSize is the number of prepared statements retained by
// PrepareCached, per Database.
var StatementCacheSize = 64

// OpenFile opens (or creates) a durable Database at |path|. The provided
// bootstrapSQL is executed against the DB before it's returned (this is a
// good opportunity to set PRAGMAs and create tables & indexes if they don't
// exist).
func OpenFile(path, bootstrapSQL string) (*Database, error) {
	var d = &Database{
		URIValues: url.Values{
			"_synchronous":   {"FULL"},
			"_secure_delete": {"FAST"},
			"_busy_timeout":  {"5000"},
		},
		name: path,
	}
	// Set journal_mode depending on whether SQLite batch atomic writes are supported.
	if opt, err := CompiledOptions(); err != nil {
		return nil, errors.WithMessage(err, "querying SQLite compile options")
	} else if _, ok := opt["ENABLE_BATCH_ATOMIC_WRITE"]; ok {
		d.URIValues.Add("_journal_mode", "TRUNCATE")
	} else {
		d.URIValues.Add("_journal_mode", "WAL")
	}
	return d, d.open(bootstrapSQL)
}

// OpenMemory opens a new, empty transient Database. |name| identifies the
// database in logs and errors only: distinct OpenMemory calls never share
// content.
func OpenMemory(name, bootstrapSQL string) (*Database, error) {
	var d = &Database{
		URIValues: url.Values{
			"mode":  {"memory"},
			"cache": {"private"},
		},
		name:   name,
		memory: true,
	}
	return d, d.open(bootstrapSQL)
}

func (d *Database) open(bootstrapSQL string) error {
	var err error
	if d.cached, err = lru.NewWithEvict(StatementCacheSize, func(_, value interface{}) {
		if err := value.(*Stmt).Dispose(); err != nil {
			log.WithFields(log.Fields{"db": d.name, "err": err}).Warn("failed to dispose evicted statement")
		}
	}); err != nil {
		return err // Only errors on size <= 0.
	}

	if d.DB, err = sql.Open("sqlite3", d.URI()); err != nil {
		return errors.WithMessagef(err, "opening SQLite DB %q", d.name)
	}
	// One connection only: see package documentation. A memory database
	// lives exactly as long as its connection, which must never be recycled.
	d.DB.SetMaxOpenConns(1)
	d.DB.SetMaxIdleConns(1)
	d.DB.SetConnMaxLifetime(0)
	d.DB.SetConnMaxIdleTime(0)

	if bootstrapSQL != "" {
		if _, err = d.DB.Exec(bootstrapSQL); err != nil {
			_ = d.DB.Close()
			return errors.WithMessagef(err, "bootstrapping SQLite DB %q", d.name)
		}
	}
	return nil
}

// URI returns the SQLite filename URI of the Database given its current URIValues.
//
//	OpenFile("/data/cache4.db", ...).URI() =>
//	  "file:/data/cache4.db?_busy_timeout=5000&_journal_mode=WAL&..."
func (d *Database) URI() string {
	if d.memory {
		return "file:" + url.PathEscape(d.name) + "?" + d.URIValues.Encode()
	}
	return "file:" + d.name + "?" + d.URIValues.Encode()
}

// Name of the Database: its file path, or its memory name.
func (d *Database) Name() string { return d.name }

// IsMemory returns true if the Database is transient.
func (d *Database) IsMemory() bool { return d.memory }

// Prepare a Stmt for |query|. The caller owns the returned Stmt and must
// Dispose of it.
func (d *Database) Prepare(query string) (*Stmt, error) {
	var stmt, err = d.DB.Prepare(query)
	if err != nil {
		return nil, errors.WithMessagef(err, "preparing %q", query)
	}
	return newStmt(d, query, stmt), nil
}

// PrepareCached returns a prepared Stmt for |query|, re-using a previously
// prepared instance if one is cached. Bindings of a re-used Stmt are cleared.
// The Stmt remains owned by the Database.
func (d *Database) PrepareCached(query string) (*Stmt, error) {
	if v, ok := d.cached.Get(query); ok {
		var stmt = v.(*Stmt)
		return stmt, stmt.Requery()
	}
	var stmt, err = d.Prepare(query)
	if err != nil {
		return nil, err
	}
	stmt.cached = true
	d.cached.Add(query, stmt)
	return stmt, nil
}

// ExecuteImmediate prepares, steps, and disposes of |query|, which must not
// have parameters. It's intended for maintenance statements (PRAGMAs, VACUUM,
// ad-hoc DELETEs).
func (d *Database) ExecuteImmediate(query string) error {
	var stmt, err = d.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Step()

	if disposeErr := stmt.Dispose(); err == nil {
		err = disposeErr
	}
	return err
}

// QueryFinalized runs |query| with |args| and returns a Cursor over its rows.
// The caller must Dispose of the Cursor.
func (d *Database) QueryFinalized(query string, args ...interface{}) (*Cursor, error) {
	var rows, err = d.DB.Query(query, args...)
	if err != nil {
		return nil, errors.WithMessagef(err, "querying %q", query)
	}
	return newCursor(rows, nil)
}

// Changes returns the number of rows modified by the most recently
// completed INSERT, UPDATE, or DELETE.
func (d *Database) Changes() (n int64, err error) {
	if err = d.DB.QueryRow("SELECT changes()").Scan(&n); err != nil {
		err = errors.WithMessage(err, "SELECT changes()")
	}
	return
}

// SizeBytes returns the current size of the database, in bytes.
func (d *Database) SizeBytes() (int64, error) {
	var count, size int64
	if err := d.DB.QueryRow("PRAGMA page_count").Scan(&count); err != nil {
		return 0, errors.WithMessage(err, "PRAGMA page_count")
	} else if err = d.DB.QueryRow("PRAGMA page_size").Scan(&size); err != nil {
		return 0, errors.WithMessage(err, "PRAGMA page_size")
	}
	return count * size, nil
}

// CountRows returns the number of rows of |table|.
func (d *Database) CountRows(table string) (n int64, err error) {
	if err = d.DB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		err = errors.WithMessagef(err, "counting rows of %s", table)
	}
	return
}

// Close disposes of cached statements and closes the Database.
func (d *Database) Close() error {
	if d.cached != nil {
		d.cached.Purge()
	}
	if err := d.DB.Close(); err != nil {
		return errors.WithMessagef(err, "closing SQLite DB %q", d.name)
	}
	return nil
}

// Destroy closes the Database and, if it's durable, removes its file and
// any associated transaction logs. Errors are logged and the first is returned.
func (d *Database) Destroy() error {
	var first = d.Close()
	if first != nil {
		log.WithFields(log.Fields{
			"db":  d.name,
			"err": first,
		}).Error("failed to close SQLite DB")
	}
	if d.memory {
		return first
	}
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(d.name + suffix); err != nil && !os.IsNotExist(err) {
			log.WithFields(log.Fields{
				"path": d.name + suffix,
				"err":  err,
			}).Error("failed to remove database file")

			if first == nil {
				first = err
			}
		}
	}
	return first
}

// CompiledOptions returns the set of compile-time options that the linked
// SQLite library was built with. See https://www.sqlite.org/compile.html
// for a full listing. Note the "SQLITE_" prefix is dropped in the returned set:
//
//	map[string]struct{
//	    "COMPILER=gcc-8.3.0": {},
//	    "ENABLE_BATCH_ATOMIC_WRITE": {},
//	    "ENABLE_COLUMN_METADATA": {},
//	    ... etc ...
//	}
func CompiledOptions() (map[string]struct{}, error) {
	compiledOptions.once.Do(func() {
		compiledOptions.m, compiledOptions.err = queryCompiledOptions()
	})
	return compiledOptions.m, compiledOptions.err
}

var compiledOptions struct {
	once sync.Once
	m    map[string]struct{}
	err  error
}

func queryCompiledOptions() (map[string]struct{}, error) {
	var db, err = sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("PRAGMA compile_options;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var m = make(map[string]struct{})
	for rows.Next() {
		var opt string
		if err = rows.Scan(&opt); err != nil {
			return nil, err
		}
		m[opt] = struct{}{}
	}
	return m, rows.Err()
}
