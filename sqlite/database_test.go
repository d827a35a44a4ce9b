package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
	CREATE TABLE IF NOT EXISTS kv (
		k INTEGER PRIMARY KEY,
		v TEXT,
		d REAL,
		b BLOB
	);`

func TestDurableDatabaseSurvivesReopen(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "durable.db")

	var db, err = OpenFile(path, testSchema)
	require.NoError(t, err)
	assert.False(t, db.IsMemory())
	assert.Contains(t, db.URI(), "file:"+path+"?")
	assert.Contains(t, db.URI(), "_synchronous=FULL")

	require.NoError(t, db.ExecuteImmediate(`INSERT INTO kv (k, v) VALUES (1, 'one')`))
	require.NoError(t, db.Close())

	db, err = OpenFile(path, testSchema)
	require.NoError(t, err)
	n, err := db.CountRows("kv")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	size, err := db.SizeBytes()
	require.NoError(t, err)
	assert.True(t, size > 0)

	require.NoError(t, db.Destroy())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryDatabaseStartsEmpty(t *testing.T) {
	var db, err = OpenMemory("mem", testSchema)
	require.NoError(t, err)
	assert.True(t, db.IsMemory())

	require.NoError(t, db.ExecuteImmediate(`INSERT INTO kv (k, v) VALUES (1, 'one')`))
	require.NoError(t, db.Close())

	// A second open of the same name shares nothing with the first.
	db, err = OpenMemory("mem", testSchema)
	require.NoError(t, err)
	n, err := db.CountRows("kv")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	require.NoError(t, db.Destroy())
}

func TestChangesAfterExecuteImmediate(t *testing.T) {
	var db, err = OpenMemory("changes", testSchema)
	require.NoError(t, err)
	defer db.Close()

	for _, q := range []string{
		`INSERT INTO kv (k) VALUES (1)`,
		`INSERT INTO kv (k) VALUES (2)`,
		`INSERT INTO kv (k) VALUES (3)`,
	} {
		require.NoError(t, db.ExecuteImmediate(q))
	}
	require.NoError(t, db.ExecuteImmediate(`DELETE FROM kv WHERE k >= 2`))

	n, err := db.Changes()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestQueryFinalized(t *testing.T) {
	var db, err = OpenMemory("finalized", testSchema)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.ExecuteImmediate(`INSERT INTO kv (k, v) VALUES (1, 'a'), (2, 'b'), (3, 'c')`))

	cursor, err := db.QueryFinalized(`SELECT k, v FROM kv WHERE k > ? ORDER BY k`, 1)
	require.NoError(t, err)

	var keys []int64
	var values []string
	for {
		ok, err := cursor.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		k, err := cursor.LongValue(0)
		require.NoError(t, err)
		v, err := cursor.StringValue(1)
		require.NoError(t, err)

		keys, values = append(keys, k), append(values, v)
	}
	require.NoError(t, cursor.Dispose())

	assert.Equal(t, []int64{2, 3}, keys)
	assert.Equal(t, []string{"b", "c"}, values)
}

func TestPrepareCachedReusesStatements(t *testing.T) {
	var db, err = OpenMemory("cached", testSchema)
	require.NoError(t, err)
	defer db.Close()

	const q = `INSERT INTO kv (k, v) VALUES (?, ?)`

	one, err := db.PrepareCached(q)
	require.NoError(t, err)
	require.NoError(t, one.BindInt64(1, 1))
	require.NoError(t, one.BindString(2, "one"))
	_, err = one.Step()
	require.NoError(t, err)

	two, err := db.PrepareCached(q)
	require.NoError(t, err)
	assert.True(t, one == two)

	// Bindings were cleared on re-use.
	assert.Len(t, two.args, 0)
}

func TestCompiledOptions(t *testing.T) {
	var opts, err = CompiledOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}
