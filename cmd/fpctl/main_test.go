package main

import (
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/settings"
)

func TestAccountsDefaultToSharedSettings(t *testing.T) {
	var s, err = settings.Open(afero.NewMemMapFs(), "/settings")
	require.NoError(t, err)
	s.SetShared(settings.Shared{Accounts: []int{3, 1}})

	assert.Equal(t, []int{1, 3}, AccountsConfig{}.resolve(s))
	assert.Equal(t, []int{2}, AccountsConfig{Accounts: []int{2}}.resolve(s))
}

func TestCommandsAreRegistered(t *testing.T) {
	var parser = flags.NewParser(Config, flags.None)
	require.NoError(t, commands.AddCommands("", parser.Command, true))

	for _, name := range []string{"serve", "purge", "restart-check", "select", "stats"} {
		assert.NotNil(t, parser.Find(name), name)
	}
}
