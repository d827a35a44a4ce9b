// Package notify is a publish / subscribe bus of small integer events,
// scoped to an account or global, which delivers every event on a single
// serialized loop.
package notify

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventID identifies a kind of event.
type EventID int

const (
	// EventFileProtectedDBCleared is posted for an account when a purge of
	// its durable store finishes, whether or not the purge succeeded. Its
	// argument is the purge error, or nil.
	EventFileProtectedDBCleared EventID = iota + 1
	// EventDatabaseReset is posted for an account when its durable store
	// has been reset.
	EventDatabaseReset
)

// GlobalAccount scopes observers and events which aren't of any one account.
const GlobalAccount = -1

func (id EventID) String() string {
	switch id {
	case EventFileProtectedDBCleared:
		return "fileProtectedDbCleared"
	case EventDatabaseReset:
		return "onDatabaseReset"
	default:
		return fmt.Sprintf("EventID(%d)", int(id))
	}
}

// Observer is notified of events it was added for.
type Observer interface {
	Notify(id EventID, account int, args ...interface{})
}

// ObserverFunc adapts a function to an Observer. ObserverFuncs can't be
// compared, and are removed through the function returned by AddObserver.
type ObserverFunc func(id EventID, account int, args ...interface{})

// Notify calls the function.
func (fn ObserverFunc) Notify(id EventID, account int, args ...interface{}) { fn(id, account, args...) }

type observerKey struct {
	account int
	id      EventID
}

type registration struct {
	obs Observer
}

// Bus delivers posted events to their observers. Events may be posted from
// any goroutine, but are delivered only by Serve (or Flush), one at a time
// and in posted order. Observers may add or remove observers, and post
// further events, from within Notify.
type Bus struct {
	mu        sync.Mutex
	observers map[observerKey][]*registration
	queue     []func()
	signalCh  chan struct{}
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{
		observers: make(map[observerKey][]*registration),
		signalCh:  make(chan struct{}, 1),
	}
}

// AddObserver adds |obs| for events |id| of |account|, and returns a
// function which removes it.
func (b *Bus) AddObserver(account int, id EventID, obs Observer) (remove func()) {
	var key = observerKey{account: account, id: id}
	var reg = &registration{obs: obs}

	b.mu.Lock()
	b.observers[key] = append(b.observers[key], reg)
	b.mu.Unlock()

	return func() { b.remove(key, func(r *registration) bool { return r == reg }) }
}

// RemoveObserver removes |obs| for events |id| of |account|. |obs| must be
// comparable, such as a pointer.
func (b *Bus) RemoveObserver(account int, id EventID, obs Observer) {
	b.remove(observerKey{account: account, id: id}, func(r *registration) bool { return r.obs == obs })
}

func (b *Bus) remove(key observerKey, match func(*registration) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var regs = b.observers[key]
	for i, r := range regs {
		if match(r) {
			// Copy, as Notify may be ranging over the prior slice.
			var next = append(append([]*registration(nil), regs[:i]...), regs[i+1:]...)
			if len(next) == 0 {
				delete(b.observers, key)
			} else {
				b.observers[key] = next
			}
			return
		}
	}
}

// Post event |id| for |account|, with |args|.
func (b *Bus) Post(account int, id EventID, args ...interface{}) {
	b.RunOnLoop(func() { b.deliver(account, id, args) })
}

// PostGlobal posts event |id| for the GlobalAccount.
func (b *Bus) PostGlobal(id EventID, args ...interface{}) {
	b.Post(GlobalAccount, id, args...)
}

// RunOnLoop queues |fn| to run on the delivery loop.
func (b *Bus) RunOnLoop(fn func()) {
	b.mu.Lock()
	b.queue = append(b.queue, fn)
	b.mu.Unlock()

	select {
	case b.signalCh <- struct{}{}:
	default: // Already signaled.
	}
}

// Serve runs the delivery loop until |ctx| is cancelled.
func (b *Bus) Serve(ctx context.Context) error {
	for {
		if b.Flush() != 0 && ctx.Err() == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-b.signalCh:
		}
	}
}

// Flush runs every queued function, including those queued while it runs,
// on the calling goroutine. It returns the number run. Flush must not be
// called concurrently with Serve.
func (b *Bus) Flush() (n int) {
	for {
		b.mu.Lock()
		var fns = b.queue
		b.queue = nil
		b.mu.Unlock()

		if len(fns) == 0 {
			return n
		}
		for _, fn := range fns {
			fn()
		}
		n += len(fns)
	}
}

func (b *Bus) deliver(account int, id EventID, args []interface{}) {
	b.mu.Lock()
	var regs = b.observers[observerKey{account: account, id: id}]
	b.mu.Unlock()

	if len(regs) == 0 {
		log.WithFields(log.Fields{"event": id, "account": account}).Debug("event has no observers")
	}
	for _, r := range regs {
		r.obs.Notify(id, account, args...)
	}
}
