package router

import (
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

// Tag selects the backing store(s) to which routed operations apply.
type Tag int

const (
	// Both fans operations out to every configured store. Reads prefer
	// the result of the durable store.
	Both Tag = iota
	// MemoryOnly routes operations to the transient memory store.
	MemoryOnly
	// DurableOnly routes operations to the durable, file-backed store.
	DurableOnly
)

// order in which Both fans out across stores.
var fanOutOrder = []Tag{DurableOnly, MemoryOnly}

func (t Tag) String() string {
	switch t {
	case Both:
		return "BOTH"
	case MemoryOnly:
		return "MEMORY_ONLY"
	case DurableOnly:
		return "DURABLE_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Statement is the call surface of a single store's prepared statement.
// *sqlite.Stmt is-a Statement.
type Statement interface {
	BindInt32(index int, value int32) error
	BindInt64(index int, value int64) error
	BindDouble(index int, value float64) error
	BindString(index int, value string) error
	BindBytes(index int, value []byte) error
	BindNull(index int) error
	Step() (sqlite.Status, error)
	Query(args ...interface{}) (*sqlite.Cursor, error)
	Requery() error
	Handle() (uint64, error)
	Dispose() error
	Finalize() error
}

var _ Statement = (*sqlite.Stmt)(nil)
