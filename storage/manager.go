package storage

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/notify"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/restart"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/settings"
)

// Manager opens and retains the Storage of each account, and shares one
// exception.Registry across them.
type Manager struct {
	Dir        string
	Settings   *settings.Store
	Bus        *notify.Bus
	Exceptions *exception.Registry

	mu       sync.Mutex
	storages map[int]*Storage
}

var _ restart.Resetter = (*Manager)(nil)

// NewManager returns a Manager of Storages within |dir|.
func NewManager(dir string, s *settings.Store, bus *notify.Bus) *Manager {
	var m = &Manager{
		Dir:      dir,
		Settings: s,
		Bus:      bus,
		storages: make(map[int]*Storage),
	}
	m.Exceptions = exception.NewRegistry(m.querier)
	return m
}

// Storage returns the Storage of |account|, opening it if required.
func (m *Manager) Storage(account int) (*Storage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.storages[account]; ok {
		return s, nil
	}
	var cfg, err = m.Settings.LoadAccount(account)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading settings of account %d", account)
	}
	s, err := Open(m.Dir, account, cfg, m.Exceptions, m.Bus)
	if err != nil {
		return nil, errors.WithMessagef(err, "opening storage of account %d", account)
	}
	m.storages[account] = s
	return s, nil
}

// Accounts returns the accounts having an open Storage, in ascending order.
func (m *Manager) Accounts() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out = make([]int, 0, len(m.storages))
	for account := range m.storages {
		out = append(out, account)
	}
	sort.Ints(out)
	return out
}

// ResetDurable resets the Storage of |account|, which posts
// notify.EventDatabaseReset on success. A failure is logged, and the
// reset is attempted again on the next restart.
func (m *Manager) ResetDurable(account int) {
	var s, err = m.Storage(account)
	if err == nil {
		err = s.ClearLocalDatabase()
	}
	if err != nil {
		log.WithFields(log.Fields{"account": account, "err": err}).Error("failed to reset durable store")
	}
}

// Close every Storage of the Manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for account, s := range m.storages {
		if err := s.Close(); err != nil && first == nil {
			first = errors.WithMessagef(err, "closing storage of account %d", account)
		}
		delete(m.storages, account)
	}
	return first
}

// querier resolves the durable store from which exceptions of |account| load.
func (m *Manager) querier(account int) (exception.Querier, error) {
	var s, err = m.Storage(account)
	if err != nil {
		return nil, err
	}
	return s.Durable(), nil
}
