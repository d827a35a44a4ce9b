package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"
	mbp "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/mainboilerplate"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/notify"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/settings"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/storage"
)

const iniFilename = "fpctl.ini"

// Config is the top-level configuration object of fpctl.
var Config = new(struct {
	Settings struct {
		Dir string `long:"dir" env:"DIR" default:"settings" description:"Directory of persisted account settings"`
	} `group:"Settings" namespace:"settings" env-namespace:"SETTINGS"`

	Storage struct {
		Dir string `long:"dir" env:"DIR" default:"storage" description:"Directory of durable account stores"`
	} `group:"Storage" namespace:"storage" env-namespace:"STORAGE"`

	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

// AccountsConfig is common configuration of commands operating over accounts.
type AccountsConfig struct {
	Accounts []int `long:"account" short:"a" description:"Account to operate on. May be repeated. Defaults to the configured accounts of shared settings"`
}

// resolve returns the accounts of the AccountsConfig, or the accounts of |s|.
func (cfg AccountsConfig) resolve(s *settings.Store) []int {
	if len(cfg.Accounts) != 0 {
		return cfg.Accounts
	}
	return s.Shared().Accounts
}

var commands = mbp.NewCommandRegistry()

// startup initializes logging, and opens the settings and storage Manager
// of the configured directories.
func startup() (*settings.Store, *notify.Bus, *storage.Manager) {
	mbp.InitLog(Config.Log)

	var s, err = settings.Open(afero.NewOsFs(), Config.Settings.Dir)
	mbp.Must(err, "failed to open settings", "dir", Config.Settings.Dir)

	var bus = notify.NewBus()
	return s, bus, storage.NewManager(Config.Storage.Dir, s, bus)
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	mbp.Must(commands.AddCommands("", parser.Command, true), "failed to add commands")
	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}
