package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementBindStepAndQuery(t *testing.T) {
	var db, err = OpenMemory("stmt", testSchema)
	require.NoError(t, err)
	defer db.Close()

	insert, err := db.Prepare(`INSERT INTO kv (k, v, d, b) VALUES (?, ?, ?, ?)`)
	require.NoError(t, err)

	require.NoError(t, insert.BindInt32(1, 7))
	require.NoError(t, insert.BindString(2, "seven"))
	require.NoError(t, insert.BindDouble(3, 7.5))
	require.NoError(t, insert.BindBytes(4, []byte{0x07}))

	status, err := insert.Step()
	require.NoError(t, err)
	assert.Equal(t, StatusDone, status)
	assert.Equal(t, int64(1), insert.Changes())

	require.NoError(t, insert.Requery())
	require.NoError(t, insert.BindInt64(1, 8))
	require.NoError(t, insert.BindNull(2))
	require.NoError(t, insert.BindNull(3))
	require.NoError(t, insert.BindNull(4))
	_, err = insert.Step()
	require.NoError(t, err)
	require.NoError(t, insert.Dispose())

	sel, err := db.Prepare(`SELECT v, d, b FROM kv WHERE k = ?`)
	require.NoError(t, err)
	defer sel.Dispose()

	cursor, err := sel.Query(int64(7))
	require.NoError(t, err)
	ok, err := cursor.Next()
	require.NoError(t, err)
	require.True(t, ok)

	v, err := cursor.StringValue(0)
	require.NoError(t, err)
	d, err := cursor.DoubleValue(1)
	require.NoError(t, err)
	b, err := cursor.BytesValue(2)
	require.NoError(t, err)

	assert.Equal(t, "seven", v)
	assert.Equal(t, 7.5, d)
	assert.Equal(t, []byte{0x07}, b)
	require.NoError(t, cursor.Dispose())

	cursor, err = sel.Query(int64(8))
	require.NoError(t, err)
	ok, err = cursor.Next()
	require.NoError(t, err)
	require.True(t, ok)

	isNull, err := cursor.IsNull(0)
	require.NoError(t, err)
	assert.True(t, isNull)
	n, err := cursor.LongValue(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Finalize ends the query and disposes of its Cursor.
	require.NoError(t, sel.Finalize())
	ok, err = cursor.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatementErrors(t *testing.T) {
	var db, err = OpenMemory("errors", testSchema)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Prepare(`SELECT * FROM missing_table`)
	assert.Error(t, err)

	stmt, err := db.Prepare(`INSERT INTO kv (k) VALUES (?)`)
	require.NoError(t, err)
	assert.Error(t, stmt.BindInt64(0, 1))

	// Primary key conflicts surface as step errors.
	require.NoError(t, stmt.BindInt64(1, 1))
	_, err = stmt.Step()
	require.NoError(t, err)
	_, err = stmt.Step()
	assert.Error(t, err)

	handle, err := stmt.Handle()
	require.NoError(t, err)
	assert.NotZero(t, handle)

	require.NoError(t, stmt.Dispose())
	require.NoError(t, stmt.Dispose()) // No-op.

	assert.Equal(t, ErrDisposed, stmt.BindInt64(1, 2))
	_, err = stmt.Step()
	assert.Equal(t, ErrDisposed, err)
	_, err = stmt.Handle()
	assert.Equal(t, ErrDisposed, err)
	_, err = stmt.Query()
	assert.Equal(t, ErrDisposed, err)
}

func TestCursorAccessorsRequireRow(t *testing.T) {
	var db, err = OpenMemory("cursor", testSchema)
	require.NoError(t, err)
	defer db.Close()

	cursor, err := db.QueryFinalized(`SELECT k FROM kv`)
	require.NoError(t, err)
	defer cursor.Dispose()

	_, err = cursor.LongValue(0)
	assert.EqualError(t, err, "cursor is not positioned on a row")

	ok, err := cursor.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
