package purge

import "github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"

// Table describes how a table of the durable store is purged.
type Table struct {
	// Name of the table.
	Name string
	// Column holding the dialog id of each row.
	Column string
	// Negated is true if Column stores dialog ids negated.
	Negated bool
	// RecentSearch retains dialogs of the recent search exceptions.
	RecentSearch bool
	// SecretChatUsers retains users of the secret chat exceptions.
	SecretChatUsers bool
	// KeepEncrypted retains encrypted dialogs.
	KeepEncrypted bool
}

// DefaultTables are the tables of the durable store purged by a Cleaner.
var DefaultTables = []Table{
	{Name: "users", Column: "uid", RecentSearch: true, SecretChatUsers: true, KeepEncrypted: true},
	{Name: "chats", Column: "uid", Negated: true, RecentSearch: true, KeepEncrypted: true},
	{Name: "contacts", Column: "uid", KeepEncrypted: true},
	{Name: "messages_v2", Column: "uid", KeepEncrypted: true},
	{Name: "dialogs", Column: "did", KeepEncrypted: true},
	{Name: "messages_holes", Column: "uid", KeepEncrypted: true},
	{Name: "messages_topics", Column: "uid", KeepEncrypted: true},
	{Name: "messages_holes_topics", Column: "uid", KeepEncrypted: true},
	{Name: "media_v4", Column: "uid", KeepEncrypted: true},
	{Name: "media_holes_topics", Column: "uid", KeepEncrypted: true},
	{Name: "media_holes_v2", Column: "uid", KeepEncrypted: true},
}

// Exceptions returns the exception Kinds which apply to the Table.
func (t Table) Exceptions() []exception.Kind {
	var out []exception.Kind
	if t.RecentSearch {
		out = append(out, exception.RecentSearch)
	}
	if t.SecretChatUsers {
		out = append(out, exception.SecretChatUsers)
	}
	return out
}

// DialogID maps a value of Column to its dialog id.
func (t Table) DialogID(stored int64) int64 {
	if t.Negated {
		return -stored
	}
	return stored
}

// Stored maps a dialog id to its value of Column.
func (t Table) Stored(dialogID int64) int64 {
	if t.Negated {
		return -dialogID
	}
	return dialogID
}
