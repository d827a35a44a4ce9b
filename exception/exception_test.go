package exception

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrwrabbit/Partisan-Telegram-Android-sub001/sqlite"
)

const testSchema = `
	CREATE TABLE search_recent (did INTEGER PRIMARY KEY, date INTEGER);
	CREATE TABLE enc_chats (uid INTEGER PRIMARY KEY, user INTEGER);
	`

func TestCacheLoadReplacesSnapshot(t *testing.T) {
	var db = openTestDB(t)
	require.NoError(t, db.ExecuteImmediate(`INSERT INTO search_recent (did, date) VALUES (1, 0), (3, 0), (-42, 0)`))

	var c = NewCache(RecentSearch)
	require.NoError(t, c.Load(db))
	assert.Equal(t, 3, c.Len())
	assert.True(t, c.Contains(1))
	assert.True(t, c.Contains(-42))
	assert.False(t, c.Contains(2))

	c.Add(2)
	assert.True(t, c.Contains(2))

	// A reload replaces the set wholesale, dropping the added id.
	require.NoError(t, db.ExecuteImmediate(`DELETE FROM search_recent WHERE did = 1`))
	require.NoError(t, c.Load(db))
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains(1))
	assert.False(t, c.Contains(2))

	// A failed reload leaves the snapshot as it was.
	require.NoError(t, db.ExecuteImmediate(`DROP TABLE search_recent`))
	assert.Error(t, c.Load(db))
	assert.True(t, c.Contains(3))
}

func TestSecretChatUsersAreDistinct(t *testing.T) {
	var db = openTestDB(t)
	require.NoError(t, db.ExecuteImmediate(`INSERT INTO enc_chats (uid, user) VALUES (1, 100), (2, 100), (3, 200)`))

	var c = NewCache(SecretChatUsers)
	require.NoError(t, c.Load(db))
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Contains(100))
	assert.True(t, c.Contains(200))
}

func TestRegistryMemoizesConcurrentFirstUse(t *testing.T) {
	var db = openTestDB(t)
	var loads int
	var reg = NewRegistry(func(account int) (Querier, error) {
		loads++ // Guarded by the Registry mutex.
		return db, nil
	})

	var out = make([]*Cache, 8)
	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var c, err = reg.Get(RecentSearch, 1)
			require.NoError(t, err)
			out[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range out {
		assert.True(t, out[0] == c)
	}
	assert.Equal(t, 1, loads)

	// Other kinds and accounts have their own instances.
	other, err := reg.Get(SecretChatUsers, 1)
	require.NoError(t, err)
	assert.False(t, out[0] == other)
	other, err = reg.Get(RecentSearch, 2)
	require.NoError(t, err)
	assert.False(t, out[0] == other)
	assert.Equal(t, 3, loads)
}

func TestRegistryRetriesFailedLoads(t *testing.T) {
	var db = openTestDB(t)
	require.NoError(t, db.ExecuteImmediate(`INSERT INTO search_recent (did, date) VALUES (7, 0)`))

	var fail = true
	var loads int
	var reg = NewRegistry(func(account int) (Querier, error) {
		loads++
		if fail {
			return nil, errors.New("store unavailable")
		}
		return db, nil
	})

	c1, err := reg.Get(RecentSearch, 1)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, RecentSearch, loadErr.Kind)
	assert.Equal(t, 1, loadErr.Account)
	assert.EqualError(t, err, "loading recent_search exceptions of account 1: store unavailable")
	assert.Equal(t, 0, c1.Len())

	// Contains of a failing Cache is false, and also retries.
	assert.False(t, reg.Contains(RecentSearch, 1, 7))
	assert.Equal(t, 2, loads)

	fail = false
	c2, err := reg.Get(RecentSearch, 1)
	require.NoError(t, err)
	assert.False(t, c1 == c2)
	assert.True(t, c2.Contains(7))
	assert.True(t, reg.Contains(RecentSearch, 1, 7))
	assert.Equal(t, 3, loads)
}

func TestRegistryAddAndInvalidate(t *testing.T) {
	var db = openTestDB(t)
	var reg = NewRegistry(func(int) (Querier, error) { return db, nil })

	// Add to a Cache which isn't loaded is a no-op.
	reg.Add(RecentSearch, 1, 5)
	assert.False(t, reg.Contains(RecentSearch, 1, 5))

	reg.Add(RecentSearch, 1, 5)
	assert.True(t, reg.Contains(RecentSearch, 1, 5))

	c1, _ := reg.Get(RecentSearch, 1)
	reg.Invalidate(1)
	c2, _ := reg.Get(RecentSearch, 1)
	assert.False(t, c1 == c2)
	assert.False(t, c2.Contains(5))
}

func TestKindStringAndQuery(t *testing.T) {
	assert.Equal(t, "recent_search", RecentSearch.String())
	assert.Equal(t, "secret_chat_users", SecretChatUsers.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
	assert.Equal(t, "SELECT did FROM search_recent", RecentSearch.Query())
	assert.Equal(t, "SELECT DISTINCT user FROM enc_chats", SecretChatUsers.Query())
	assert.Panics(t, func() { Kind(9).Query() })
}

func openTestDB(t *testing.T) *sqlite.Database {
	var db, err = sqlite.OpenMemory(t.Name(), testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
