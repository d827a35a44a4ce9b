// Package dialog encodes the kind of a conversation within its 64-bit id.
//
// User dialogs have the (positive) id of the peer user. Group and channel
// dialogs have the negated id of the chat. Encrypted (secret) dialogs are
// tagged by the two high-order bits of the id: bit 62 is set and the sign
// bit is clear, with the encrypted chat id held in the low 32 bits.
package dialog

import "fmt"

const (
	encryptedBit = int64(1) << 62
	lowBits      = int64(0xffffffff)
)

// IsEncrypted returns whether |id| is the id of an encrypted dialog.
func IsEncrypted(id int64) bool {
	return id&encryptedBit != 0 && uint64(id)&(1<<63) == 0
}

// IsUser returns whether |id| is the id of a dialog with a user.
func IsUser(id int64) bool { return id > 0 && !IsEncrypted(id) }

// IsChat returns whether |id| is the id of a group or channel dialog.
func IsChat(id int64) bool { return id < 0 }

// FromEncryptedChat returns the dialog id of encrypted chat |chatID|.
func FromEncryptedChat(chatID int32) int64 {
	return encryptedBit | (int64(chatID) & lowBits)
}

// EncryptedChatID returns the encrypted chat id of encrypted dialog |id|.
func EncryptedChatID(id int64) int32 { return int32(id & lowBits) }

// FromChat returns the dialog id of group or channel |chatID|.
func FromChat(chatID int64) int64 { return -chatID }

// ChatID returns the group or channel id of chat dialog |id|.
func ChatID(id int64) int64 { return -id }

// DeletablePredicate returns a SQL boolean expression over |column| which
// holds exactly for rows whose dialog id is NOT an encrypted dialog. If
// |negated|, the column stores dialog ids negated and the expression is
// evaluated over the column's negation.
func DeletablePredicate(column string, negated bool) string {
	var expr = column
	if negated {
		expr = "(-" + column + ")"
	}
	return fmt.Sprintf("(%[1]s & 0x4000000000000000 = 0 OR %[1]s & 0x8000000000000000 <> 0)", expr)
}
