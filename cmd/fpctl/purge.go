package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	mbp "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/mainboilerplate"
)

type cmdPurge struct {
	AccountsConfig
}

func init() {
	commands.AddCommand("", "purge", "Purge durable stores", `
Purge the durable store of each account of all but its encrypted dialogs and
kept exceptions (recent searches and users of secret chats, as the account's
settings allow). The durable store is compacted if many rows were deleted.

Purging applies regardless of whether file protection is enabled.
`, &cmdPurge{})
}

func (cmd *cmdPurge) Execute([]string) error {
	var s, bus, manager = startup()
	defer manager.Close()

	for _, account := range cmd.resolve(s) {
		var st, err = manager.Storage(account)
		mbp.Must(err, "failed to open storage", "account", account)

		res, err := st.Purge(context.Background())
		mbp.Must(err, "failed to purge", "account", account)

		var line = fmt.Sprintf("account %d: deleted %d rows", account, res.Total)
		if res.Compacted {
			line += fmt.Sprintf(", compacted %s => %s",
				humanize.Bytes(uint64(res.SizeBefore)), humanize.Bytes(uint64(res.SizeAfter)))
		}
		fmt.Println(line)
	}
	log.WithField("delivered", bus.Flush()).Debug("flushed notifications")
	return nil
}
