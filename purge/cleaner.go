// Package purge scrubs the durable store of an account of all content other
// than encrypted dialogs and the dialogs of exception caches.
package purge

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/dialog"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/notify"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

// CompactionThreshold is the number of deleted rows above which a run
// compacts the store.
const CompactionThreshold = 100

// Exceptions resolves the exception Cache of a Kind and account.
// *exception.Registry is-a Exceptions.
type Exceptions interface {
	Get(kind exception.Kind, account int) (*exception.Cache, error)
}

var _ Exceptions = (*exception.Registry)(nil)

// Cleaner purges the durable store of an account. A Cleaner requires
// exclusive use of DB for the duration of Clear.
type Cleaner struct {
	DB         *sqlite.Database
	Account    int
	Exceptions Exceptions
	Bus        *notify.Bus
	// Tables to purge. If empty, DefaultTables are purged.
	Tables []Table
}

// Result of a Clear.
type Result struct {
	RunID string
	// Deleted rows, by table.
	Deleted map[string]int64
	// Total rows deleted.
	Total int64
	// Compacted is true if the store was compacted.
	Compacted bool
	// Store size before and after compaction. Zero if not Compacted.
	SizeBefore, SizeAfter int64
}

// Clear the durable store of every row which isn't retained by its Table.
// Tables are purged one by one and a failure aborts the remainder of the
// run, leaving preceding tables purged: a Clear may simply be re-run, as a
// repeated Clear deletes nothing. Whatever the outcome,
// EventFileProtectedDBCleared is posted for the account exactly once,
// with the returned error as its argument.
//
// |ctx| is checked between tables only.
func (c *Cleaner) Clear(ctx context.Context) (res Result, err error) {
	res = Result{
		RunID:   uuid.New().String(),
		Deleted: make(map[string]int64),
	}
	var entry = log.WithFields(log.Fields{
		"account": c.Account,
		"run":     res.RunID,
		"db":      c.DB.Name(),
	})

	defer func() {
		if err != nil {
			metrics.PurgeRunsTotal.WithLabelValues(metrics.Fail).Inc()
			entry.WithField("err", err).Error("purge of durable store failed")
		} else {
			metrics.PurgeRunsTotal.WithLabelValues(metrics.Ok).Inc()
			entry.WithFields(log.Fields{
				"deleted":   res.Total,
				"compacted": res.Compacted,
			}).Info("purged durable store")
		}
		c.Bus.Post(c.Account, notify.EventFileProtectedDBCleared, err)
	}()

	var tables = c.Tables
	if len(tables) == 0 {
		tables = DefaultTables
	}
	for _, table := range tables {
		if err = ctx.Err(); err != nil {
			return
		}

		var n int64
		if len(table.Exceptions()) == 0 {
			n, err = c.clearAll(table)
		} else {
			n, err = c.clearExcepted(table)
		}
		if err != nil {
			err = errors.WithMessagef(err, "purging table %s", table.Name)
			return
		}

		res.Deleted[table.Name] = n
		res.Total += n
		metrics.PurgeDeletedRowsTotal.WithLabelValues(table.Name).Add(float64(n))

		entry.WithFields(log.Fields{"table": table.Name, "deleted": n}).Debug("purged table")
	}

	if res.Total > CompactionThreshold {
		if res.SizeBefore, res.SizeAfter, err = c.compact(); err != nil {
			err = errors.WithMessage(err, "compacting")
			return
		}
		res.Compacted = true

		entry.WithFields(log.Fields{
			"before": humanize.Bytes(uint64(res.SizeBefore)),
			"after":  humanize.Bytes(uint64(res.SizeAfter)),
		}).Info("compacted durable store")
	}
	return
}

// clearAll deletes every row of |table|, other than those of encrypted
// dialogs if the Table keeps them.
func (c *Cleaner) clearAll(table Table) (int64, error) {
	var query = fmt.Sprintf("DELETE FROM %s", table.Name)
	if table.KeepEncrypted {
		query += " WHERE " + dialog.DeletablePredicate(table.Column, table.Negated)
	}
	if err := c.DB.ExecuteImmediate(query); err != nil {
		return 0, err
	}
	return c.DB.Changes()
}

// clearExcepted deletes rows of |table| dialog by dialog, retaining
// dialogs of the Table's exception caches.
func (c *Cleaner) clearExcepted(table Table) (int64, error) {
	var caches []*exception.Cache
	for _, kind := range table.Exceptions() {
		var cache, err = c.Exceptions.Get(kind, c.Account)
		if err != nil {
			return 0, err
		}
		caches = append(caches, cache)
	}

	// Gather ids before deleting any: an open Cursor holds the
	// Database's only connection.
	var stored, err = c.distinctIDs(table)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, value := range stored {
		if c.retained(table, caches, table.DialogID(value)) {
			continue
		}
		var stmt *sqlite.Stmt
		if stmt, err = c.DB.PrepareCached(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table.Name, table.Column)); err != nil {
			return total, err
		} else if err = stmt.BindInt64(1, value); err != nil {
			return total, err
		} else if _, err = stmt.Step(); err != nil {
			return total, err
		}
		total += stmt.Changes()
	}
	return total, nil
}

func (c *Cleaner) retained(table Table, caches []*exception.Cache, dialogID int64) bool {
	if table.KeepEncrypted && dialog.IsEncrypted(dialogID) {
		return true
	}
	for _, cache := range caches {
		if cache.Contains(dialogID) {
			return true
		}
	}
	return false
}

func (c *Cleaner) distinctIDs(table Table) ([]int64, error) {
	var cursor, err = c.DB.QueryFinalized(fmt.Sprintf("SELECT DISTINCT %s FROM %s", table.Column, table.Name))
	if err != nil {
		return nil, err
	}
	defer cursor.Dispose()

	var out []int64
	for {
		if ok, err := cursor.Next(); err != nil {
			return nil, err
		} else if !ok {
			return out, nil
		}
		var id, err = cursor.LongValue(0)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
}

// compact reclaims the free pages of the store. The journal is truncated
// while the store is rebuilt, and its size limit then lifted.
func (c *Cleaner) compact() (before, after int64, err error) {
	if before, err = c.DB.SizeBytes(); err != nil {
		return
	}
	for _, query := range []string{
		"PRAGMA journal_size_limit = 0",
		"VACUUM",
		"PRAGMA journal_size_limit = -1",
	} {
		if err = c.DB.ExecuteImmediate(query); err != nil {
			return
		}
	}
	if after, err = c.DB.SizeBytes(); err != nil {
		return
	}
	metrics.PurgeCompactionsTotal.Inc()
	if before > after {
		metrics.PurgeReclaimedBytesTotal.Add(float64(before - after))
	}
	return
}
