package purge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/dialog"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/exception"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/metrics"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/notify"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

const account = 1

func TestExceptionsAndEncryptedDialogsArePreserved(t *testing.T) {
	var f = newFixture(t)
	var secret = dialog.FromEncryptedChat(2)

	f.insert(t, "users", 1, secret, 3)
	f.insert(t, "messages_v2", 1, 1, secret, 3)
	f.insert(t, "search_recent", 3)

	var res, err = f.cleaner.Clear(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{3, secret}, f.ids(t, "users"))
	assert.Equal(t, []int64{secret}, f.ids(t, "messages_v2"))
	assert.Equal(t, int64(1), res.Deleted["users"])
	assert.Equal(t, int64(3), res.Deleted["messages_v2"])
	assert.Equal(t, int64(4), res.Total)
	assert.False(t, res.Compacted)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, []interface{}{nil}, f.flushEvents(t))
}

func TestSecretChatUsersArePreserved(t *testing.T) {
	var f = newFixture(t)
	f.insert(t, "users", 10, 20, 30)
	require.NoError(t, f.db.ExecuteImmediate(`INSERT INTO enc_chats (uid, user) VALUES (1, 20)`))

	var _, err = f.cleaner.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, f.ids(t, "users"))
}

func TestNegatedColumnsMapToDialogIDs(t *testing.T) {
	var f = newFixture(t)

	// Stored -42 is dialog 42, which is a recent search and retained.
	// Stored -43 is dialog 43, which isn't.
	f.insert(t, "chats", -42, -43)
	f.insert(t, "search_recent", 42, -43)

	var _, err = f.cleaner.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{-42}, f.ids(t, "chats"))

	// Without exceptions, the structural predicate also negates the column.
	var secret = dialog.FromEncryptedChat(7)
	f.cleaner.Tables = []Table{{Name: "negated", Column: "uid", Negated: true, KeepEncrypted: true}}
	f.insert(t, "negated", -secret, secret, 5, -5)

	res, err := f.cleaner.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{-secret}, f.ids(t, "negated"))
	assert.Equal(t, int64(3), res.Total)
}

func TestUnconditionalDeleteWithoutEncryptedFilter(t *testing.T) {
	var f = newFixture(t)
	var secret = dialog.FromEncryptedChat(7)

	f.cleaner.Tables = []Table{{Name: "negated", Column: "uid"}}
	f.insert(t, "negated", secret, 5)

	var res, err = f.cleaner.Clear(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.ids(t, "negated"))
	assert.Equal(t, int64(2), res.Total)
}

func TestCompactionThreshold(t *testing.T) {
	for _, tc := range []struct {
		rows      int
		compacted bool
	}{
		{rows: 99, compacted: false},
		{rows: 100, compacted: false},
		{rows: 101, compacted: true},
	} {
		var f = newFixture(t)
		var ids []int64
		for i := 0; i != tc.rows; i++ {
			ids = append(ids, int64(1000+i))
		}
		f.insert(t, "messages_v2", ids...)

		var compactions = testutil.ToFloat64(metrics.PurgeCompactionsTotal)
		var deleted = testutil.ToFloat64(metrics.PurgeDeletedRowsTotal.WithLabelValues("messages_v2"))
		var runs = testutil.ToFloat64(metrics.PurgeRunsTotal.WithLabelValues(metrics.Ok))

		var res, err = f.cleaner.Clear(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(tc.rows), res.Total)
		assert.Equal(t, tc.compacted, res.Compacted, "rows %d", tc.rows)

		var expectCompactions = compactions
		if tc.compacted {
			expectCompactions++
		}
		assert.Equal(t, expectCompactions, testutil.ToFloat64(metrics.PurgeCompactionsTotal), "rows %d", tc.rows)
		assert.Equal(t, deleted+float64(tc.rows),
			testutil.ToFloat64(metrics.PurgeDeletedRowsTotal.WithLabelValues("messages_v2")))
		assert.Equal(t, runs+1, testutil.ToFloat64(metrics.PurgeRunsTotal.WithLabelValues(metrics.Ok)))

		if tc.compacted {
			assert.NotZero(t, res.SizeBefore)
			assert.NotZero(t, res.SizeAfter)
		}
	}
}

func TestClearIsIdempotent(t *testing.T) {
	var f = newFixture(t)
	var ids []int64
	for i := 0; i != 150; i++ {
		ids = append(ids, int64(i+1))
	}
	f.insert(t, "users", ids...)
	f.insert(t, "dialogs", ids...)
	f.insert(t, "search_recent", 1, 2)

	var res, err = f.cleaner.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(298), res.Total)
	assert.True(t, res.Compacted)

	res, err = f.cleaner.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
	assert.False(t, res.Compacted)
	for _, table := range DefaultTables {
		assert.Equal(t, int64(0), res.Deleted[table.Name], table.Name)
	}
	assert.Equal(t, []int64{1, 2}, f.ids(t, "users"))

	// Each run posted exactly one event.
	assert.Equal(t, []interface{}{nil, nil}, f.flushEvents(t))
}

func TestFailedExceptionLoadAbortsRun(t *testing.T) {
	var f = newFixture(t)
	f.insert(t, "users", 1)
	f.insert(t, "messages_v2", 1)

	f.cleaner.Exceptions = exception.NewRegistry(func(int) (exception.Querier, error) {
		return nil, errors.New("whoops")
	})
	// Purge messages_v2 first, then users.
	f.cleaner.Tables = []Table{DefaultTables[3], DefaultTables[0]}

	var _, err = f.cleaner.Clear(context.Background())
	assert.EqualError(t, err, "purging table users: loading recent_search exceptions of account 1: whoops")

	// The preceding table was purged, and the failing one was left as-is.
	assert.Empty(t, f.ids(t, "messages_v2"))
	assert.Equal(t, []int64{1}, f.ids(t, "users"))

	var events = f.flushEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, err, events[0])
}

func TestCancelledContextAbortsRun(t *testing.T) {
	var f = newFixture(t)
	f.insert(t, "users", 1)

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var _, err = f.cleaner.Clear(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, []int64{1}, f.ids(t, "users"))
	assert.Len(t, f.flushEvents(t), 1)
}

type fixture struct {
	db      *sqlite.Database
	bus     *notify.Bus
	events  []interface{}
	cleaner *Cleaner
}

func newFixture(t *testing.T) *fixture {
	var schema strings.Builder
	for _, table := range append(DefaultTables, Table{Name: "negated", Column: "uid"}) {
		fmt.Fprintf(&schema, "CREATE TABLE %s (%s INTEGER NOT NULL, data TEXT);\n", table.Name, table.Column)
	}
	schema.WriteString("CREATE TABLE search_recent (did INTEGER PRIMARY KEY, date INTEGER);\n")
	schema.WriteString("CREATE TABLE enc_chats (uid INTEGER PRIMARY KEY, user INTEGER);\n")

	var db, err = sqlite.OpenMemory(t.Name(), schema.String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var f = &fixture{db: db, bus: notify.NewBus()}
	f.bus.AddObserver(account, notify.EventFileProtectedDBCleared,
		notify.ObserverFunc(func(_ notify.EventID, _ int, args ...interface{}) {
			f.events = append(f.events, args[0])
		}))

	f.cleaner = &Cleaner{
		DB:         db,
		Account:    account,
		Exceptions: exception.NewRegistry(func(int) (exception.Querier, error) { return db, nil }),
		Bus:        f.bus,
	}
	return f
}

func (f *fixture) insert(t *testing.T, table string, ids ...int64) {
	var column = "uid"
	switch table {
	case "dialogs", "search_recent":
		column = "did"
	}
	var stmt, err = f.db.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", table, column))
	require.NoError(t, err)
	defer stmt.Dispose()

	for _, id := range ids {
		require.NoError(t, stmt.Requery())
		require.NoError(t, stmt.BindInt64(1, id))
		_, err = stmt.Step()
		require.NoError(t, err)
	}
}

func (f *fixture) ids(t *testing.T, table string) []int64 {
	var column = "uid"
	if table == "dialogs" {
		column = "did"
	}
	var cursor, err = f.db.QueryFinalized(fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s", column, table, column))
	require.NoError(t, err)
	defer cursor.Dispose()

	var out []int64
	for {
		ok, err := cursor.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		id, err := cursor.LongValue(0)
		require.NoError(t, err)
		out = append(out, id)
	}
}

func (f *fixture) flushEvents(t *testing.T) []interface{} {
	f.bus.Flush()
	var out = f.events
	f.events = nil
	return out
}
