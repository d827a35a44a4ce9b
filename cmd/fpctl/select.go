package main

import (
	"fmt"

	mbp "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/mainboilerplate"
)

type cmdSelect struct {
	Account             int   `long:"account" short:"a" default:"0" description:"Account of the dialog"`
	Dialog              int64 `long:"dialog" short:"d" required:"true" description:"Dialog id to select stores for"`
	KeepRecentSearch    bool  `long:"recent-search" description:"Apply the recent search exception"`
	KeepSecretChatUsers bool  `long:"secret-chat-users" description:"Apply the secret chat users exception"`
}

func init() {
	commands.AddCommand("", "select", "Print the stores selected for a dialog", `
Select prints the stores to which statements of a dialog are routed:
MEMORY_ONLY, DURABLE_ONLY, or BOTH.

Exceptions apply only where requested by flag, and where allowed by the
account's settings. An account without file protection routes every dialog
to its durable store alone, which is printed as BOTH.
`, &cmdSelect{})
}

func (cmd *cmdSelect) Execute([]string) error {
	var _, _, manager = startup()
	defer manager.Close()

	var st, err = manager.Storage(cmd.Account)
	mbp.Must(err, "failed to open storage", "account", cmd.Account)

	r, err := st.Prepare("SELECT 1")
	mbp.Must(err, "failed to prepare statement")
	defer r.Dispose()

	fmt.Println(st.Select(r, cmd.Dialog, cmd.KeepRecentSearch, cmd.KeepSecretChatUsers))
	return nil
}
