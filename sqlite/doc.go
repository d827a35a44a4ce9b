// Package sqlite is the single-store SQL primitive: a thin layer over
// github.com/mattn/go-sqlite3 which presents the prepare / bind / step /
// query / dispose call surface consumed by the statement router.
//
// # Durable and Memory Databases
//
// A Database is either durable, backed by a file on disk (see OpenFile), or
// transient, existing only in memory and starting empty on every open (see
// OpenMemory). Both flavors are otherwise identical and are bootstrapped with
// the same schema by their caller.
//
// Every Database uses exactly one underlying connection. SQLite doesn't
// handle concurrency particularly well anyway, a private in-memory database
// is only visible to the connection which created it, and connection-scoped
// introspection such as "SELECT changes()" is only meaningful if the caller
// observes the same connection which ran the mutation.
//
// # Statements
//
// A Stmt is a prepared statement with positional (1-based) parameter
// bindings. Bindings are recorded by Bind* and applied by Step (for
// mutations) or Query (for reads, which returns a Cursor). Requery clears
// bindings so that the Stmt may be re-used. Every parameter must be bound
// before Step.
//
// Statements which are executed repeatedly by maintenance routines may be
// obtained through PrepareCached, which retains a bounded LRU of prepared
// statements per Database. Cached statements are owned by the Database and
// must not be disposed by callers.
package sqlite
