package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	mbp "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/mainboilerplate"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/storage"
)

type cmdStats struct {
	AccountsConfig
}

func init() {
	commands.AddCommand("", "stats", "Print row counts of account stores", `
Stats prints the number of rows of each dialog table within the durable and
memory store of each account, followed by the size of each store.
`, &cmdStats{})
}

func (cmd *cmdStats) Execute([]string) error {
	var s, _, manager = startup()
	defer manager.Close()

	for _, account := range cmd.resolve(s) {
		var st, err = manager.Storage(account)
		mbp.Must(err, "failed to open storage", "account", account)

		stats, err := st.Stats()
		mbp.Must(err, "failed to count rows", "account", account)
		durable, memory, err := st.SizeBytes()
		mbp.Must(err, "failed to size stores", "account", account)

		fmt.Printf("Account %d (protected: %t)\n", account, st.Protected())
		outputTable(stats, durable, memory)
	}
	return nil
}

func outputTable(stats []storage.TableStats, durable, memory int64) {
	var table = tablewriter.NewWriter(os.Stdout)
	table.Header("Table", "Durable", "Memory")

	var row = func(name, d, m string) {
		mbp.Must(table.Append([]string{name, d, m}), "failed to append row")
	}
	for _, ts := range stats {
		var mem = "-"
		if ts.HasMemoryRows {
			mem = strconv.FormatInt(ts.MemoryRows, 10)
		}
		row(ts.Table, strconv.FormatInt(ts.DurableRows, 10), mem)
	}
	row("(size)", humanize.Bytes(uint64(durable)), humanize.Bytes(uint64(memory)))

	mbp.Must(table.Render(), "failed to render table")
}
