package sql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/maxbot/chats"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStateAndDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	store, err := New(ctx, db, DriverSQLite)
	require.NoError(t, err)

	chatID, userID := int64(1), int64(2)
	key := chats.NewStorageKey(&chatID, &userID)

	state, err := store.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", state)

	require.NoError(t, store.SetState(ctx, key, "Form:waiting_for_name"))
	state, err = store.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Form:waiting_for_name", state)

	require.NoError(t, store.SetData(ctx, key, map[string]any{"a": "b"}))
	data, err := store.GetData(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "b", data["a"])

	// SetState must not clobber previously stored data.
	require.NoError(t, store.SetState(ctx, key, "Form:done"))
	data, err = store.GetData(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "b", data["a"])
}

func TestSQLiteUpdateDataAccumulates(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	store, err := New(ctx, db, DriverSQLite)
	require.NoError(t, err)

	chatID, userID := int64(3), int64(4)
	key := chats.NewStorageKey(&chatID, &userID)

	for i := 0; i < 5; i++ {
		_, err := store.UpdateData(ctx, key, func(d map[string]any) map[string]any {
			n, _ := d["count"].(float64)
			d["count"] = n + 1
			return d
		})
		require.NoError(t, err)
	}

	data, err := store.GetData(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 5, data["count"])
}

func TestSQLiteClear(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	store, err := New(ctx, db, DriverSQLite)
	require.NoError(t, err)

	chatID, userID := int64(5), int64(6)
	key := chats.NewStorageKey(&chatID, &userID)

	require.NoError(t, store.SetState(ctx, key, "x"))
	require.NoError(t, store.Clear(ctx, key))

	state, err := store.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", state)
}
