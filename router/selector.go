package router

import (
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/dialog"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"
)

// Exceptions answers whether a dialog of an account is present in an
// exception cache of the given Kind. *exception.Registry is-a Exceptions.
type Exceptions interface {
	Contains(kind exception.Kind, account int, dialogID int64) bool
}

// Selector chooses the store(s) to which the statements of a dialog are routed.
type Selector struct {
	Exceptions Exceptions
}

// NewSelector returns a Selector which consults |exceptions|.
func NewSelector(exceptions Exceptions) *Selector {
	return &Selector{Exceptions: exceptions}
}

// Select returns the Tag for statements about |dialogID| of |account|.
// Dialogs are MemoryOnly unless they're encrypted, or are exceptions
// which the caller asked to keep, in which case they're mirrored to Both.
func (s *Selector) Select(dialogID int64, account int, keepRecentSearch, keepSecretChatUsers bool) Tag {
	switch {
	case dialog.IsEncrypted(dialogID):
		return Both
	case keepRecentSearch && s.Exceptions.Contains(exception.RecentSearch, account, dialogID):
		return Both
	case keepSecretChatUsers && s.Exceptions.Contains(exception.SecretChatUsers, account, dialogID):
		return Both
	default:
		return MemoryOnly
	}
}
