// Package storage composes the durable and memory store of an account, and
// routes the statements of each dialog to the stores chosen for it.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/notify"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/purge"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/router"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/settings"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

// Storage is the pair of stores of an account. With file protection
// enabled, ordinary dialogs are routed to the memory store only, while
// encrypted dialogs and kept exceptions are mirrored to both stores. With
// file protection disabled there is no memory store, and everything is
// written to the durable store.
//
// Like the Databases it wraps, a Storage is not safe for concurrent use.
type Storage struct {
	Account int

	path       string
	durable    *sqlite.Database
	memory     *sqlite.Database // nil if file protection is disabled.
	settings   settings.Account
	selector   *router.Selector
	exceptions *exception.Registry
	bus        *notify.Bus
}

// Open the Storage of |account| within directory |dir|.
func Open(dir string, account int, cfg settings.Account, exceptions *exception.Registry, bus *notify.Bus) (*Storage, error) {
	var s = &Storage{
		Account:    account,
		path:       filepath.Join(dir, fmt.Sprintf("account%d", account), "cache4.db"),
		settings:   cfg,
		selector:   router.NewSelector(exceptions),
		exceptions: exceptions,
		bus:        bus,
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return nil, errors.WithMessage(err, "creating account directory")
	} else if err = s.openStores(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"account":   account,
		"path":      s.path,
		"protected": s.Protected(),
	}).Info("opened account storage")

	return s, nil
}

func (s *Storage) openStores() error {
	var err error
	if s.durable, err = sqlite.OpenFile(s.path, Schema); err != nil {
		return errors.WithMessage(err, "opening durable store")
	}
	if s.settings.FileProtectionEnabled {
		if s.memory, err = sqlite.OpenMemory(fmt.Sprintf("account%d", s.Account), Schema); err != nil {
			_ = s.durable.Close()
			return errors.WithMessage(err, "opening memory store")
		}
	}
	return nil
}

// Protected returns whether file protection is enabled for the Storage.
func (s *Storage) Protected() bool { return s.memory != nil }

// Durable returns the durable store.
func (s *Storage) Durable() *sqlite.Database { return s.durable }

// Memory returns the memory store, or nil if the Storage isn't Protected.
func (s *Storage) Memory() *sqlite.Database { return s.memory }

// Prepare |query| against each store. The returned Router selects Both,
// which is the durable store alone if the Storage isn't Protected. Callers
// narrow the selection per dialog (see Select) and must Dispose of it.
func (s *Storage) Prepare(query string) (*router.Router, error) {
	var stmts = make(map[router.Tag]router.Statement, 2)

	var stmt, err = s.durable.Prepare(query)
	if err != nil {
		return nil, err
	}
	stmts[router.DurableOnly] = stmt

	if s.memory != nil {
		if stmt, err = s.memory.Prepare(query); err != nil {
			_ = stmts[router.DurableOnly].Dispose()
			return nil, err
		}
		stmts[router.MemoryOnly] = stmt
	}
	return router.New(stmts), nil
}

// Select the stores of Router |r| for statements of |dialogID|. Exceptions
// apply only as far as the account's settings keep them.
func (s *Storage) Select(r *router.Router, dialogID int64, keepRecentSearch, keepSecretChatUsers bool) router.Tag {
	if !s.Protected() {
		return r.Selected()
	}
	return r.SelectByDialog(s.selector, dialogID, s.Account,
		keepRecentSearch && s.settings.KeepRecentSearch,
		keepSecretChatUsers && s.settings.KeepSecretChatUsers)
}

// ClearLocalDatabase resets the Storage: the durable store is removed and
// re-created empty, as is the memory store, and exception caches of the
// account are dropped. notify.EventDatabaseReset is posted once reset.
func (s *Storage) ClearLocalDatabase() error {
	var err = s.reset()
	if err != nil {
		metrics.StoreResetsTotal.WithLabelValues(metrics.Fail).Inc()
		return errors.WithMessagef(err, "resetting storage of account %d", s.Account)
	}
	metrics.StoreResetsTotal.WithLabelValues(metrics.Ok).Inc()

	s.exceptions.Invalidate(s.Account)
	s.bus.Post(s.Account, notify.EventDatabaseReset)

	log.WithField("account", s.Account).Info("reset account storage")
	return nil
}

// reset re-opens the stores even if the durable store couldn't be removed,
// so that the Storage remains usable.
func (s *Storage) reset() error {
	var err = s.durable.Destroy()

	if s.memory != nil {
		if closeErr := s.memory.Close(); closeErr != nil {
			log.WithFields(log.Fields{"account": s.Account, "err": closeErr}).Warn("failed to close memory store")
		}
		s.memory = nil
	}
	if openErr := s.openStores(); err == nil {
		err = openErr
	}
	return err
}

// Purge the durable store of all but encrypted dialogs and kept exceptions.
func (s *Storage) Purge(ctx context.Context) (purge.Result, error) {
	var cleaner = &purge.Cleaner{
		DB:         s.durable,
		Account:    s.Account,
		Exceptions: s.exceptions,
		Bus:        s.bus,
	}
	return cleaner.Clear(ctx)
}

// Close the stores of the Storage.
func (s *Storage) Close() error {
	var err = s.durable.Close()
	if s.memory != nil {
		if memErr := s.memory.Close(); err == nil {
			err = memErr
		}
	}
	return err
}

// TableStats are the row counts of a table within each store.
type TableStats struct {
	Table         string
	DurableRows   int64
	MemoryRows    int64
	HasMemoryRows bool
}

// Stats returns TableStats of every table of the Schema which holds dialogs.
func (s *Storage) Stats() ([]TableStats, error) {
	var tables []string
	for _, t := range purge.DefaultTables {
		tables = append(tables, t.Name)
	}
	tables = append(tables, "search_recent", "enc_chats")

	var out []TableStats
	for _, table := range tables {
		var ts = TableStats{Table: table}
		var err error

		if ts.DurableRows, err = s.durable.CountRows(table); err != nil {
			return nil, err
		}
		if s.memory != nil {
			if ts.MemoryRows, err = s.memory.CountRows(table); err != nil {
				return nil, err
			}
			ts.HasMemoryRows = true
		}
		out = append(out, ts)
	}
	return out, nil
}

// SizeBytes returns the sizes of the durable and memory store.
func (s *Storage) SizeBytes() (durable, memory int64, err error) {
	if durable, err = s.durable.SizeBytes(); err != nil {
		return
	}
	if s.memory != nil {
		memory, err = s.memory.SizeBytes()
	}
	return
}
