package storage

import (
	"github.com/pkg/errors"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/dialog"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/router"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

// User is a row of the users table.
type User struct {
	ID   int64
	Name string
	Data []byte
}

// Chat is a group or channel, as a row of the chats table.
type Chat struct {
	ID    int64 // Positive chat id. Its dialog id is dialog.FromChat(ID).
	Title string
}

// Dialog is a row of the dialogs table.
type Dialog struct {
	ID            int64
	Date          int32
	UnreadCount   int32
	LastMessageID int32
}

// Message is a row of the messages_v2 table.
type Message struct {
	DialogID int64
	ID       int32
	Date     int32
	Out      bool
	Data     []byte
}

// EncryptedChat is a row of the enc_chats table.
type EncryptedChat struct {
	ID     int32
	UserID int64
	Name   string
}

// PutUser stores |u|. Users are kept by both recent search and secret chat exceptions.
func (s *Storage) PutUser(u User) error {
	return s.exec(`INSERT OR REPLACE INTO users (uid, name, status, data) VALUES (?, ?, 0, ?)`,
		func(r *router.Router) { s.Select(r, u.ID, true, true) },
		func(r *router.Router) error {
			return firstErr(r.BindInt64(1, u.ID), r.BindString(2, u.Name), r.BindBytes(3, u.Data))
		})
}

// User returns the User |id|, or false if it's not stored.
func (s *Storage) User(id int64) (u User, ok bool, err error) {
	err = s.query(`SELECT uid, name, data FROM users WHERE uid = ?`,
		func(r *router.Router) { s.Select(r, id, true, true) },
		[]interface{}{id},
		func(c *sqlite.Cursor) (err error) {
			ok = true
			if u.ID, err = c.LongValue(0); err == nil {
				if u.Name, err = c.StringValue(1); err == nil {
					u.Data, err = c.BytesValue(2)
				}
			}
			return err
		})
	return
}

// PutChat stores |c|. Chats are kept by the recent search exception.
// The chats table holds positive chat ids, which are negated dialog ids.
func (s *Storage) PutChat(c Chat) error {
	return s.exec(`INSERT OR REPLACE INTO chats (uid, name) VALUES (?, ?)`,
		func(r *router.Router) { s.Select(r, dialog.FromChat(c.ID), true, false) },
		func(r *router.Router) error {
			return firstErr(r.BindInt64(1, c.ID), r.BindString(2, c.Title))
		})
}

// PutDialog stores |d|.
func (s *Storage) PutDialog(d Dialog) error {
	return s.exec(`INSERT OR REPLACE INTO dialogs (did, date, unread_count, last_mid) VALUES (?, ?, ?, ?)`,
		func(r *router.Router) { s.Select(r, d.ID, false, false) },
		func(r *router.Router) error {
			return firstErr(
				r.BindInt64(1, d.ID),
				r.BindInt32(2, d.Date),
				r.BindInt32(3, d.UnreadCount),
				r.BindInt32(4, d.LastMessageID))
		})
}

// Dialog returns the Dialog |id|, or false if it's not stored.
func (s *Storage) Dialog(id int64) (d Dialog, ok bool, err error) {
	err = s.query(`SELECT did, date, unread_count, last_mid FROM dialogs WHERE did = ?`,
		func(r *router.Router) { s.Select(r, id, false, false) },
		[]interface{}{id},
		func(c *sqlite.Cursor) (err error) {
			ok = true
			if d.ID, err = c.LongValue(0); err != nil {
				return
			} else if d.Date, err = c.IntValue(1); err != nil {
				return
			} else if d.UnreadCount, err = c.IntValue(2); err != nil {
				return
			}
			d.LastMessageID, err = c.IntValue(3)
			return
		})
	return
}

// PutMessage stores |m| within its dialog.
func (s *Storage) PutMessage(m Message) error {
	var out int32
	if m.Out {
		out = 1
	}
	return s.exec(`INSERT OR REPLACE INTO messages_v2 (mid, uid, read_state, send_state, date, data, out) VALUES (?, ?, 0, 0, ?, ?, ?)`,
		func(r *router.Router) { s.Select(r, m.DialogID, false, false) },
		func(r *router.Router) error {
			return firstErr(
				r.BindInt32(1, m.ID),
				r.BindInt64(2, m.DialogID),
				r.BindInt32(3, m.Date),
				r.BindBytes(4, m.Data),
				r.BindInt32(5, out))
		})
}

// Messages returns the Messages of dialog |dialogID|, ordered on id.
func (s *Storage) Messages(dialogID int64) ([]Message, error) {
	var out []Message
	var err = s.query(`SELECT mid, date, out, data FROM messages_v2 WHERE uid = ? ORDER BY mid`,
		func(r *router.Router) { s.Select(r, dialogID, false, false) },
		[]interface{}{dialogID},
		func(c *sqlite.Cursor) error {
			var m = Message{DialogID: dialogID}
			var isOut int32
			var err error

			if m.ID, err = c.IntValue(0); err != nil {
				return err
			} else if m.Date, err = c.IntValue(1); err != nil {
				return err
			} else if isOut, err = c.IntValue(2); err != nil {
				return err
			} else if m.Data, err = c.BytesValue(3); err != nil {
				return err
			}
			m.Out = isOut != 0
			out = append(out, m)
			return nil
		})
	return out, err
}

// AddRecentSearch records that dialog |dialogID| was searched for. If the
// account keeps recent searches, the record is mirrored to both stores and
// the dialog becomes an exception.
func (s *Storage) AddRecentSearch(dialogID int64, date int32) error {
	var err = s.exec(`INSERT OR REPLACE INTO search_recent (did, date) VALUES (?, ?)`,
		func(r *router.Router) {
			if s.Protected() && s.settings.KeepRecentSearch {
				r.Select(router.Both)
			} else {
				s.Select(r, dialogID, false, false)
			}
		},
		func(r *router.Router) error {
			return firstErr(r.BindInt64(1, dialogID), r.BindInt32(2, date))
		})
	if err == nil {
		s.exceptions.Add(exception.RecentSearch, s.Account, dialogID)
	}
	return err
}

// PutEncryptedChat stores |c|. Its user becomes a secret chat exception.
func (s *Storage) PutEncryptedChat(c EncryptedChat) error {
	var err = s.exec(`INSERT OR REPLACE INTO enc_chats (uid, user, name) VALUES (?, ?, ?)`,
		func(r *router.Router) { s.Select(r, dialog.FromEncryptedChat(c.ID), false, false) },
		func(r *router.Router) error {
			return firstErr(r.BindInt32(1, c.ID), r.BindInt64(2, c.UserID), r.BindString(3, c.Name))
		})
	if err == nil {
		s.exceptions.Add(exception.SecretChatUsers, s.Account, c.UserID)
	}
	return err
}

// exec prepares |query|, selects its stores, binds, and steps it.
func (s *Storage) exec(query string, selectFn func(*router.Router), bindFn func(*router.Router) error) error {
	var r, err = s.Prepare(query)
	if err != nil {
		return err
	}
	defer r.Dispose()

	selectFn(r)
	if err = bindFn(r); err != nil {
		return errors.WithMessagef(err, "binding %q", query)
	} else if _, err = r.Step(); err != nil {
		return err
	}
	return nil
}

// query prepares |query|, selects its stores, and calls |rowFn| with the
// Cursor positioned at each resulting row.
func (s *Storage) query(query string, selectFn func(*router.Router), args []interface{}, rowFn func(*sqlite.Cursor) error) error {
	var r, err = s.Prepare(query)
	if err != nil {
		return err
	}
	defer r.Dispose()

	selectFn(r)
	cursor, err := r.Query(args...)
	if err != nil {
		return err
	}
	defer cursor.Dispose()

	for {
		if ok, err := cursor.Next(); err != nil {
			return err
		} else if !ok {
			return nil
		} else if err = rowFn(cursor); err != nil {
			return errors.WithMessagef(err, "reading %q", query)
		}
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
