package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	mbp "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/mainboilerplate"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/restart"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/task"
)

type cmdServe struct {
	AccountsConfig
}

func init() {
	commands.AddCommand("", "serve", "Serve the stores of accounts", `
Serve opens the stores of each account and runs the notification loop until
signaled to exit (via SIGTERM or SIGINT).

At startup, durable stores of accounts which requested file protection be
disabled after a restart are reset. Once every reset completes, the durable
store of each protected account is purged of all but its encrypted dialogs
and kept exceptions.
`, &cmdServe{})
}

func (cmd *cmdServe) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	var s, bus, manager = startup()
	defer manager.Close()

	log.WithField("config", Config).Info("starting file protection")
	prometheus.MustRegister(metrics.Collectors()...)

	var accounts = cmd.resolve(s)
	for _, account := range accounts {
		var _, err = manager.Storage(account)
		mbp.Must(err, "failed to open storage", "account", account)
	}
	var coordinator = restart.NewCoordinator(s, bus, manager)
	coordinator.CheckAndClean(accounts)

	var tasks = task.NewGroup(context.Background())

	tasks.Queue("bus.Serve", func() error { return bus.Serve(tasks.Context()) })
	tasks.Queue("diagnostics.Serve", func() error {
		return mbp.ServeDiagnostics(tasks.Context(), Config.Diagnostics)
	})
	tasks.Queue("purge", func() error {
		if err := coordinator.Done().WaitWithContext(tasks.Context()); err != nil {
			return nil // Cancelled.
		}
		for _, account := range accounts {
			bus.RunOnLoop(func() {
				var st, err = manager.Storage(account)
				if err == nil && st.Protected() {
					_, err = st.Purge(tasks.Context())
				}
				if err != nil {
					log.WithFields(log.Fields{"account": account, "err": err}).Error("failed to purge durable store")
				}
			})
		}
		return nil
	})

	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	tasks.Queue("watch signals", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Info("caught signal")
			tasks.Cancel()
		case <-tasks.Context().Done():
		}
		return nil
	})
	tasks.GoRun()

	mbp.Must(tasks.Wait(), "task failed")
	log.Info("goodbye")
	return nil
}
