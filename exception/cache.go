// Package exception maintains per-account sets of dialogs which are exempted
// from the memory-only default of the store selector, and survive a purge of
// the durable store.
package exception

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

// Kind of an exception Cache. Each Kind has a single query which produces
// the dialog ids of the Cache, as its only column.
type Kind int

const (
	// RecentSearch holds dialogs which the user recently searched for.
	RecentSearch Kind = iota
	// SecretChatUsers holds users with whom the account has a secret chat.
	SecretChatUsers
)

// Kinds enumerates every Kind.
var Kinds = []Kind{RecentSearch, SecretChatUsers}

func (k Kind) String() string {
	switch k {
	case RecentSearch:
		return "recent_search"
	case SecretChatUsers:
		return "secret_chat_users"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Query returns the SQL which loads a Cache of this Kind.
func (k Kind) Query() string {
	switch k {
	case RecentSearch:
		return "SELECT did FROM search_recent"
	case SecretChatUsers:
		return "SELECT DISTINCT user FROM enc_chats"
	default:
		panic(fmt.Sprintf("unexpected Kind %d", int(k)))
	}
}

// Querier runs a query against a store. *sqlite.Database is-a Querier.
type Querier interface {
	QueryFinalized(query string, args ...interface{}) (*sqlite.Cursor, error)
}

var _ Querier = (*sqlite.Database)(nil)

// LoadError is returned when a Cache could not be loaded.
type LoadError struct {
	Kind    Kind
	Account int
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s exceptions of account %d: %s", e.Kind, e.Account, e.Err)
}

// Cause returns the underlying error, for errors.Cause.
func (e *LoadError) Cause() error { return e.Err }

// Unwrap returns the underlying error, for errors.Is and errors.As.
func (e *LoadError) Unwrap() error { return e.Err }

// Cache is a snapshot of the dialog ids of one Kind of one account.
// Contains, Add and Len may be called concurrently with each other and
// with Load, but concurrent Loads must be serialized by the caller.
type Cache struct {
	Kind Kind

	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewCache returns an empty Cache of the Kind.
func NewCache(kind Kind) *Cache {
	return &Cache{Kind: kind, ids: make(map[int64]struct{})}
}

// Load the Cache from |q|. The Cache's set is replaced only if the query
// completes successfully, and is otherwise left unchanged.
func (c *Cache) Load(q Querier) error {
	var cursor, err = q.QueryFinalized(c.Kind.Query())
	if err != nil {
		return err
	}
	defer cursor.Dispose()

	var ids = make(map[int64]struct{})
	for {
		if ok, err := cursor.Next(); err != nil {
			return errors.WithMessage(err, "reading exceptions")
		} else if !ok {
			break
		}
		var id, err = cursor.LongValue(0)
		if err != nil {
			return errors.WithMessage(err, "reading exceptions")
		}
		ids[id] = struct{}{}
	}

	c.mu.Lock()
	c.ids = ids
	c.mu.Unlock()
	return nil
}

// Contains returns whether |id| is in the Cache.
func (c *Cache) Contains(id int64) bool {
	c.mu.RLock()
	var _, ok = c.ids[id]
	c.mu.RUnlock()
	return ok
}

// Add |id| to the Cache.
func (c *Cache) Add(id int64) {
	c.mu.Lock()
	c.ids[id] = struct{}{}
	c.mu.Unlock()
}

// Len returns the number of ids in the Cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
