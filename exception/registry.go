package exception

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
)

// Registry memoizes one Cache per (Kind, account), loading each on first use
// from the account's store.
type Registry struct {
	// Stores resolves the store of an account from which Caches are loaded.
	Stores func(account int) (Querier, error)

	mu     sync.Mutex
	caches map[registryKey]*Cache
}

type registryKey struct {
	kind    Kind
	account int
}

// NewRegistry returns a Registry which loads Caches from |stores|.
func NewRegistry(stores func(account int) (Querier, error)) *Registry {
	return &Registry{
		Stores: stores,
		caches: make(map[registryKey]*Cache),
	}
}

// Get returns the Cache of |kind| for |account|, creating and loading it
// if it doesn't yet exist. Creation is serialized, so concurrent first
// callers observe the same instance. If the load fails, Get returns a new,
// empty Cache which is not memoized, along with a *LoadError: a future Get
// will attempt to load again.
func (r *Registry) Get(kind Kind, account int) (*Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var key = registryKey{kind: kind, account: account}
	if c, ok := r.caches[key]; ok {
		return c, nil
	}

	var c = NewCache(kind)
	var err error

	if q, storeErr := r.Stores(account); storeErr != nil {
		err = storeErr
	} else {
		err = c.Load(q)
	}
	if err != nil {
		metrics.ExceptionCacheLoadsTotal.WithLabelValues(kind.String(), metrics.Fail).Inc()
		return NewCache(kind), &LoadError{Kind: kind, Account: account, Err: err}
	}
	metrics.ExceptionCacheLoadsTotal.WithLabelValues(kind.String(), metrics.Ok).Inc()
	metrics.ExceptionCacheSize.WithLabelValues(kind.String()).Set(float64(c.Len()))

	r.caches[key] = c
	return c, nil
}

// Contains returns whether |dialogID| is in the |kind| Cache of |account|.
// A Cache which fails to load is logged, and contains nothing.
func (r *Registry) Contains(kind Kind, account int, dialogID int64) bool {
	var c, err = r.Get(kind, account)
	if err != nil {
		log.WithFields(log.Fields{
			"kind":    kind,
			"account": account,
			"err":     err,
		}).Warn("failed to load exception cache")
	}
	return c.Contains(dialogID)
}

// Add |dialogID| to the |kind| Cache of |account|, if it's been loaded.
// A Cache which hasn't been loaded will observe the dialog when it is.
func (r *Registry) Add(kind Kind, account int, dialogID int64) {
	r.mu.Lock()
	var c, ok = r.caches[registryKey{kind: kind, account: account}]
	r.mu.Unlock()

	if ok {
		c.Add(dialogID)
	}
}

// Invalidate drops every Cache of |account|, such as after its store is
// reset. Subsequent calls will load them anew.
func (r *Registry) Invalidate(account int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range Kinds {
		delete(r.caches, registryKey{kind: kind, account: account})
	}
}
