// Package restart completes requests, made before a restart, to disable file
// protection and reset the durable store of accounts.
package restart

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/async"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/notify"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/settings"
)

// Resetter resets the durable store of an account. Completion is signaled
// by posting notify.EventDatabaseReset for the account.
type Resetter interface {
	ResetDurable(account int)
}

// State of an account within the Coordinator.
type State int

const (
	// Idle accounts have no pending reset.
	Idle State = iota
	// Pending accounts await the start of their reset.
	Pending
	// Clearing accounts await completion of their reset.
	Clearing
	// Cleared accounts completed their reset.
	Cleared
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Pending:
		return "PENDING"
	case Clearing:
		return "CLEARING"
	case Cleared:
		return "CLEARED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Coordinator drives requested resets to completion. The persisted disable
// flags of an account are cleared only once its reset completes, and the
// shared flag only once no account remains pending. A restart at any point
// thus leaves flags which a following CheckAndClean picks up again.
type Coordinator struct {
	settings *settings.Store
	bus      *notify.Bus
	resetter Resetter

	mu      sync.Mutex
	states  map[int]State
	pending map[int]struct{}
	done    async.Promise
}

// NewCoordinator returns a Coordinator.
func NewCoordinator(s *settings.Store, bus *notify.Bus, resetter Resetter) *Coordinator {
	return &Coordinator{
		settings: s,
		bus:      bus,
		resetter: resetter,
		states:   make(map[int]State),
		pending:  make(map[int]struct{}),
		done:     make(async.Promise),
	}
}

// CheckAndClean begins a reset of every account of |accounts| for which a
// disable was requested, either by the account or by the shared settings.
// Resets are started from the bus loop.
func (c *Coordinator) CheckAndClean(accounts []int) {
	var shared = c.settings.Shared()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, account := range accounts {
		var a, err = c.settings.LoadAccount(account)
		if err != nil {
			log.WithFields(log.Fields{"account": account, "err": err}).Error("failed to load account settings")
		}
		if !a.DisableRequested() && !shared.DisableFileProtectionAfterRestart {
			continue
		} else if _, ok := c.pending[account]; ok {
			continue // Already in progress.
		}
		log.WithField("account", account).Info("resetting durable store after disabling file protection")

		if c.done.Resolved() {
			c.done = make(async.Promise)
		}
		c.pending[account] = struct{}{}
		c.states[account] = Pending

		c.bus.RunOnLoop(func() {
			c.bus.AddObserver(account, notify.EventDatabaseReset, c)

			c.mu.Lock()
			c.states[account] = Clearing
			c.mu.Unlock()

			c.resetter.ResetDurable(account)
		})
	}
	metrics.RestartPendingAccounts.Set(float64(len(c.pending)))

	if len(c.pending) == 0 {
		if shared.DisableFileProtectionAfterRestart {
			c.clearSharedFlag()
		}
		c.resolveDone()
	}
}

// Notify implements notify.Observer, and completes the reset of |account|.
func (c *Coordinator) Notify(id notify.EventID, account int, _ ...interface{}) {
	if id != notify.EventDatabaseReset {
		return
	}
	c.bus.RemoveObserver(account, notify.EventDatabaseReset, c)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[account]; !ok {
		return
	}
	log.WithField("account", account).Info("reset of durable store after disabling file protection finished")

	// Settings which can't be loaded are left as persisted, and the
	// reset is requested again on the next start.
	if a, err := c.settings.LoadAccount(account); err != nil {
		log.WithFields(log.Fields{"account": account, "err": err}).Error("failed to load account settings")
	} else {
		a.DisableFileProtectionAfterRestart = false
		a.DisableFileProtectionAfterRestartByFakePasscode = false
		c.settings.SetAccount(account, a)

		if err = c.settings.SaveAccount(account); err != nil {
			log.WithFields(log.Fields{"account": account, "err": err}).Error("failed to save account settings")
		}
	}

	delete(c.pending, account)
	c.states[account] = Cleared
	metrics.RestartPendingAccounts.Set(float64(len(c.pending)))

	if len(c.pending) == 0 {
		c.clearSharedFlag()
		c.resolveDone()
	}
}

// Pending returns the accounts having a reset in progress, in ascending order.
func (c *Coordinator) Pending() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out = make([]int, 0, len(c.pending))
	for account := range c.pending {
		out = append(out, account)
	}
	sort.Ints(out)
	return out
}

// State returns the State of |account|.
func (c *Coordinator) State(account int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[account]
}

// Done returns a Promise which is resolved when no account has a pending
// reset. A CheckAndClean which begins resets after the Promise resolved
// replaces it with a new one.
func (c *Coordinator) Done() async.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Coordinator) clearSharedFlag() {
	var shared = c.settings.Shared()
	shared.DisableFileProtectionAfterRestart = false
	c.settings.SetShared(shared)

	if err := c.settings.SaveShared(); err != nil {
		log.WithField("err", err).Error("failed to save shared settings")
	}
}

// resolveDone resolves the current Promise, if it's not already. c.mu is held.
func (c *Coordinator) resolveDone() {
	if !c.done.Resolved() {
		c.done.Resolve()
	}
}
