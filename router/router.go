package router

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

// ErrStoreNotConfigured is returned when the selected store has no Statement.
var ErrStoreNotConfigured = errors.New("store is not configured")

// Router presents the call surface of a single prepared Statement, while
// routing each call to the Statement(s) of the currently selected store(s).
//
// A Router holds one Statement per configured store. Under a single-store
// Tag, calls are forwarded unchanged to that store's Statement. Under Both,
// calls are applied to every configured Statement in a fixed order (durable,
// then memory): mutations are thus never applied to only one store while
// reporting success. Where a call produces a result, the durable store's
// result is returned if it participated, and otherwise the memory store's.
//
// The first error encountered aborts the call, and no further stores are
// attempted. No compensation is made for stores which already applied it.
//
// Like the Statements it wraps, a Router is not safe for concurrent use.
type Router struct {
	stmts    map[Tag]Statement
	selected Tag
}

// New returns a Router over |stmts|, keyed on MemoryOnly or DurableOnly.
// The initial selection is Both. New panics if |stmts| is empty or has
// an invalid key, as either is a programming error.
func New(stmts map[Tag]Statement) *Router {
	if len(stmts) == 0 {
		panic("router requires at least one Statement")
	}
	var m = make(map[Tag]Statement, len(stmts))
	for tag, stmt := range stmts {
		if tag != MemoryOnly && tag != DurableOnly {
			panic(fmt.Sprintf("invalid Statement tag %s", tag))
		} else if stmt == nil {
			panic(fmt.Sprintf("nil Statement for tag %s", tag))
		}
		m[tag] = stmt
	}
	return &Router{stmts: m, selected: Both}
}

// Select the store(s) to which subsequent calls are routed.
func (r *Router) Select(tag Tag) { r.selected = tag }

// Selected returns the currently selected Tag.
func (r *Router) Selected() Tag { return r.selected }

// Configured returns whether the Router holds a Statement for |tag|.
func (r *Router) Configured(tag Tag) bool {
	var _, ok = r.stmts[tag]
	return ok
}

// SelectByDialog selects the Tag chosen by |selector| for the dialog, and returns it.
func (r *Router) SelectByDialog(selector *Selector, dialogID int64, account int, keepRecentSearch, keepSecretChatUsers bool) Tag {
	r.selected = selector.Select(dialogID, account, keepRecentSearch, keepSecretChatUsers)
	return r.selected
}

// BindInt32 binds |value| to parameter |index| of the selected Statement(s).
func (r *Router) BindInt32(index int, value int32) error {
	return r.apply(func(s Statement) error { return s.BindInt32(index, value) })
}

// BindInt64 binds |value| to parameter |index| of the selected Statement(s).
func (r *Router) BindInt64(index int, value int64) error {
	return r.apply(func(s Statement) error { return s.BindInt64(index, value) })
}

// BindDouble binds |value| to parameter |index| of the selected Statement(s).
func (r *Router) BindDouble(index int, value float64) error {
	return r.apply(func(s Statement) error { return s.BindDouble(index, value) })
}

// BindString binds |value| to parameter |index| of the selected Statement(s).
func (r *Router) BindString(index int, value string) error {
	return r.apply(func(s Statement) error { return s.BindString(index, value) })
}

// BindBytes binds |value| to parameter |index| of the selected Statement(s).
func (r *Router) BindBytes(index int, value []byte) error {
	return r.apply(func(s Statement) error { return s.BindBytes(index, value) })
}

// BindNull binds NULL to parameter |index| of the selected Statement(s).
func (r *Router) BindNull(index int) error {
	return r.apply(func(s Statement) error { return s.BindNull(index) })
}

// Requery readies the selected Statement(s) for re-use.
func (r *Router) Requery() error {
	return r.apply(func(s Statement) error { return s.Requery() })
}

// Step the selected Statement(s).
func (r *Router) Step() (sqlite.Status, error) {
	var results, err = fanOut(r, r.selected, func(s Statement) (sqlite.Status, error) { return s.Step() })
	if err != nil {
		return 0, err
	}
	var _, status = preferred(results)
	return status, nil
}

// Query the selected Statement(s). Under Both, Cursors of stores other
// than the preferred one are disposed of before Query returns.
func (r *Router) Query(args ...interface{}) (*sqlite.Cursor, error) {
	var results, err = fanOut(r, r.selected, func(s Statement) (*sqlite.Cursor, error) { return s.Query(args...) })
	var tag, cursor = preferred(results)

	for t, c := range results {
		if t == tag && err == nil {
			continue
		} else if disposeErr := c.Dispose(); disposeErr != nil {
			log.WithFields(log.Fields{"store": t, "err": disposeErr}).Debug("failed to dispose cursor")
		}
	}
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// Handle returns the handle of the Statement of the selected store (or,
// under Both, of the preferred store). Handles have no meaning across
// stores. Handle returns zero if the Statement's handle can't be obtained.
func (r *Router) Handle() uint64 {
	var tag = r.selected
	if tag == Both {
		tag = r.preferredTag()
	}
	var stmt, ok = r.stmts[tag]
	if !ok {
		return 0
	}
	var handle, err = stmt.Handle()
	if err != nil {
		return 0
	}
	return handle
}

// Dispose of every Statement of the Router, regardless of the current
// selection. Errors are logged and otherwise ignored, and don't prevent
// remaining Statements from being disposed.
func (r *Router) Dispose() {
	r.teardown("dispose", func(s Statement) error { return s.Dispose() })
}

// Finalize the query in progress of every Statement of the Router,
// regardless of the current selection. Errors are logged and otherwise ignored.
func (r *Router) Finalize() {
	r.teardown("finalize", func(s Statement) error { return s.Finalize() })
}

func (r *Router) teardown(op string, fn func(Statement) error) {
	for _, tag := range fanOutOrder {
		var stmt, ok = r.stmts[tag]
		if !ok {
			continue
		}
		if err := fn(stmt); err != nil {
			log.WithFields(log.Fields{
				"op":    op,
				"store": tag,
				"err":   err,
			}).Debug("ignoring statement teardown error")
		}
	}
}

func (r *Router) apply(fn func(Statement) error) error {
	var _, err = fanOut(r, r.selected, func(s Statement) (struct{}, error) { return struct{}{}, fn(s) })
	return err
}

func (r *Router) preferredTag() Tag {
	for _, tag := range fanOutOrder {
		if _, ok := r.stmts[tag]; ok {
			return tag
		}
	}
	panic("not reached") // New verified |stmts| is non-empty.
}

// fanOut applies |fn| to the Statement(s) selected by |tag|, returning the
// result of each. It stops at the first error, returning results of stores
// to which |fn| was applied successfully up to that point.
func fanOut[R any](r *Router, tag Tag, fn func(Statement) (R, error)) (map[Tag]R, error) {
	var out = make(map[Tag]R, len(r.stmts))
	var tags = fanOutOrder

	if tag != Both {
		if _, ok := r.stmts[tag]; !ok {
			return out, errors.WithMessage(ErrStoreNotConfigured, tag.String())
		}
		tags = []Tag{tag}
	}
	metrics.RoutedCallsTotal.WithLabelValues(tag.String()).Inc()

	for _, t := range tags {
		var stmt, ok = r.stmts[t]
		if !ok {
			continue
		}
		var result, err = fn(stmt)
		if err != nil {
			metrics.RoutedCallFailuresTotal.WithLabelValues(t.String()).Inc()
			return out, errors.WithMessage(err, t.String())
		}
		out[t] = result
	}
	return out, nil
}

// preferred returns the result of the durable store if present, and
// otherwise that of the memory store.
func preferred[R any](results map[Tag]R) (Tag, R) {
	for _, tag := range fanOutOrder {
		if result, ok := results[tag]; ok {
			return tag, result
		}
	}
	var zero R
	return Both, zero
}
