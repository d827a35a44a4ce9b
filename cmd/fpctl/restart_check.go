package main

import (
	"context"
	"fmt"
	"time"

	mbp "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/mainboilerplate"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/restart"
)

type cmdRestartCheck struct {
	AccountsConfig
	Timeout time.Duration `long:"timeout" default:"1m" description:"Maximum duration to wait for durable store resets"`
}

func init() {
	commands.AddCommand("", "restart-check", "Complete pending durable store resets", `
Restart-check performs the checks of a process restart: the durable store of
each account which requested file protection be disabled after a restart is
reset, and its request is cleared. The shared request is cleared once no
account remains pending.

A failed reset leaves its account pending, to be retried on the next run.
`, &cmdRestartCheck{})
}

func (cmd *cmdRestartCheck) Execute([]string) error {
	var s, bus, manager = startup()
	defer manager.Close()

	var accounts = cmd.resolve(s)
	var coordinator = restart.NewCoordinator(s, bus, manager)
	coordinator.CheckAndClean(accounts)
	bus.Flush()

	var ctx, cancel = context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	mbp.Must(coordinator.Done().WaitWithContext(ctx), "durable store resets didn't complete",
		"pending", coordinator.Pending())

	for _, account := range accounts {
		fmt.Printf("account %d: %s\n", account, coordinator.State(account))
	}
	return nil
}
