// Package settings persists the file protection settings of the shared
// configuration and of each account, as YAML files of a directory.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Account settings of file protection.
type Account struct {
	// FileProtectionEnabled routes ordinary dialogs of the account to its
	// memory store. When disabled, all statements use the durable store.
	FileProtectionEnabled bool `yaml:"fileProtectionEnabled"`
	// DisableFileProtectionAfterRestart requests that file protection be
	// disabled, and the durable store reset, on the next start.
	DisableFileProtectionAfterRestart bool `yaml:"disableFileProtectionAfterRestart"`
	// DisableFileProtectionAfterRestartByFakePasscode is the same request,
	// made by activation of a fake passcode.
	DisableFileProtectionAfterRestartByFakePasscode bool `yaml:"disableFileProtectionAfterRestartByFakePasscode"`
	// KeepRecentSearch retains recently searched dialogs in the durable store.
	KeepRecentSearch bool `yaml:"keepRecentSearch"`
	// KeepSecretChatUsers retains users having a secret chat in the durable store.
	KeepSecretChatUsers bool `yaml:"keepSecretChatUsers"`
}

// DefaultAccount returns the settings of an account which has none persisted.
func DefaultAccount() Account {
	return Account{
		FileProtectionEnabled: true,
		KeepRecentSearch:      true,
		KeepSecretChatUsers:   true,
	}
}

// DisableRequested returns whether either per-account disable flag is set.
func (a Account) DisableRequested() bool {
	return a.DisableFileProtectionAfterRestart || a.DisableFileProtectionAfterRestartByFakePasscode
}

// Shared settings, common to all accounts.
type Shared struct {
	// DisableFileProtectionAfterRestart requests that file protection of
	// every account be disabled on the next start.
	DisableFileProtectionAfterRestart bool `yaml:"disableFileProtectionAfterRestart"`
	// Accounts which are configured.
	Accounts []int `yaml:"accounts,flow"`
}

// Store of Shared and Account settings. Getters return copies: a
// modification is made with a setter, and is persisted by a Save.
type Store struct {
	dir string
	fs  afero.Fs

	mu       sync.Mutex
	shared   Shared
	accounts map[int]Account
}

// Open the Store of directory |dir| of |fs|, loading the Shared settings
// and those of each Shared account. Other accounts are loaded on first use.
// Files which don't exist yield defaults.
func Open(fs afero.Fs, dir string) (*Store, error) {
	var s = &Store{
		dir:      dir,
		fs:       fs,
		accounts: make(map[int]Account),
	}
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return nil, errors.WithMessagef(err, "creating settings directory %s", dir)
	} else if err = s.load(s.sharedPath(), &s.shared); err != nil {
		return nil, err
	}
	for _, account := range s.shared.Accounts {
		var a = DefaultAccount()
		if err := s.load(s.accountPath(account), &a); err != nil {
			return nil, err
		}
		s.accounts[account] = a
	}
	return s, nil
}

// Shared returns the Shared settings.
func (s *Store) Shared() Shared {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out = s.shared
	out.Accounts = append([]int(nil), s.shared.Accounts...)
	return out
}

// SetShared updates the Shared settings. Accounts are kept sorted and unique.
func (s *Store) SetShared(shared Shared) {
	var accounts = make(map[int]struct{}, len(shared.Accounts))
	for _, a := range shared.Accounts {
		accounts[a] = struct{}{}
	}
	shared.Accounts = shared.Accounts[:0:0]
	for a := range accounts {
		shared.Accounts = append(shared.Accounts, a)
	}
	sort.Ints(shared.Accounts)

	s.mu.Lock()
	s.shared = shared
	s.mu.Unlock()
}

// Account returns the settings of |account|. Settings which can't be loaded
// are logged, and yield defaults.
func (s *Store) Account(account int) Account {
	var a, err = s.LoadAccount(account)
	if err != nil {
		log.WithFields(log.Fields{"account": account, "err": err}).Warn("using default account settings")
		return DefaultAccount()
	}
	return a
}

// LoadAccount returns the settings of |account|, loading them from the
// account's file on first use if the account isn't a Shared account.
// A failed load isn't retained, and is attempted again on the next call.
func (s *Store) LoadAccount(account int) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[account]; ok {
		return a, nil
	}
	var a = DefaultAccount()
	if err := s.load(s.accountPath(account), &a); err != nil {
		return DefaultAccount(), err
	}
	s.accounts[account] = a
	return a, nil
}

// SetAccount updates the settings of |account|.
func (s *Store) SetAccount(account int, a Account) {
	s.mu.Lock()
	s.accounts[account] = a
	s.mu.Unlock()
}

// SaveShared persists the Shared settings.
func (s *Store) SaveShared() error {
	return s.save(s.sharedPath(), s.Shared())
}

// SaveAccount persists the settings of |account|.
func (s *Store) SaveAccount(account int) error {
	var a, err = s.LoadAccount(account)
	if err != nil {
		return err
	}
	return s.save(s.accountPath(account), a)
}

func (s *Store) load(path string, out interface{}) error {
	var b, err = afero.ReadFile(s.fs, path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.WithMessagef(err, "reading %s", path)
	} else if err = yaml.UnmarshalStrict(b, out); err != nil {
		return errors.WithMessagef(err, "decoding %s", path)
	}
	return nil
}

// save writes |v| to a temporary file, and then atomically moves it to
// |path|, so that a partially written file is never observed.
func (s *Store) save(path string, v interface{}) error {
	var b, err = yaml.Marshal(v)
	if err != nil {
		return errors.WithMessagef(err, "encoding %s", path)
	}
	var next = path + ".next"

	f, err := s.fs.OpenFile(next, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.WithMessagef(err, "creating %s", next)
	}
	if _, err = f.Write(b); err != nil {
		_ = f.Close()
		err = errors.WithMessagef(err, "writing %s", next)
	} else if err = f.Sync(); err != nil {
		_ = f.Close()
		err = errors.WithMessagef(err, "syncing %s", next)
	} else if err = f.Close(); err != nil {
		err = errors.WithMessagef(err, "closing %s", next)
	} else if err = s.fs.Rename(next, path); err != nil {
		err = errors.WithMessagef(err, "renaming %s => %s", next, path)
	}
	return err
}

func (s *Store) sharedPath() string { return filepath.Join(s.dir, "shared.yaml") }
func (s *Store) accountPath(account int) string {
	return filepath.Join(s.dir, fmt.Sprintf("account-%d.yaml", account))
}
