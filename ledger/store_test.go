package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStorePutGet(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	row := Row{Tracker: "deck", SlotIndex: 3, Rack: "tips_0001", Occupied: true}
	require.NoError(store.Put(ctx, TableTips, row))

	got, found, err := store.Get(ctx, TableTips, "deck", 3)
	require.NoError(err)
	require.True(found)
	require.Equal(row, got)

	_, found, err = store.Get(ctx, TableTips, "deck", 4)
	require.NoError(err)
	require.False(found)
}

func TestStoreUpsertOverwrites(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(store.Put(ctx, TableTips, Row{Tracker: "deck", SlotIndex: 0, Rack: "a", Occupied: true}))
	require.NoError(store.Put(ctx, TableTips, Row{Tracker: "deck", SlotIndex: 0, Rack: "a", Occupied: false}))

	got, found, err := store.Get(ctx, TableTips, "deck", 0)
	require.NoError(err)
	require.True(found)
	require.False(got.Occupied)
}

func TestStoreScanOrdered(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	rows := []Row{
		{Tracker: "deck", SlotIndex: 2, Rack: "a", Occupied: true},
		{Tracker: "deck", SlotIndex: 0, Rack: "a", Occupied: true},
		{Tracker: "deck", SlotIndex: 1, Rack: "a", Occupied: false},
		{Tracker: "other", SlotIndex: 0, Rack: "b", Occupied: true},
	}
	require.NoError(store.PutAll(ctx, TableTips, rows))

	got, err := store.Scan(ctx, TableTips, "deck")
	require.NoError(err)
	require.Len(got, 3)
	for i, row := range got {
		require.Equal(i, row.SlotIndex)
		require.Equal("deck", row.Tracker)
	}
}

func TestStoreTablesIndependent(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(store.Put(ctx, TableTips, Row{Tracker: "deck", SlotIndex: 0, Rack: "a", Occupied: true}))
	require.NoError(store.Put(ctx, TableStacks, Row{Tracker: "deck", SlotIndex: 0, Rack: "s", Occupied: true, Ordinal: 5}))

	tips, err := store.Scan(ctx, TableTips, "deck")
	require.NoError(err)
	require.Len(tips, 1)
	require.Equal("a", tips[0].Rack)

	stacks, err := store.Scan(ctx, TableStacks, "deck")
	require.NoError(err)
	require.Len(stacks, 1)
	require.Equal(5, stacks[0].Ordinal)
}

func TestStoreUnknownTable(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	err := store.Put(ctx, Table("tips; DROP TABLE tips"), Row{Tracker: "deck"})
	require.Error(err)
}

func TestStoreDeleteTracker(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(store.PutAll(ctx, TableTips, []Row{
		{Tracker: "deck", SlotIndex: 0, Rack: "a", Occupied: true},
		{Tracker: "deck", SlotIndex: 1, Rack: "a", Occupied: true},
		{Tracker: "other", SlotIndex: 0, Rack: "b", Occupied: true},
	}))

	require.NoError(store.DeleteTracker(ctx, TableTips, "deck"))

	got, err := store.Scan(ctx, TableTips, "deck")
	require.NoError(err)
	require.Empty(got)

	got, err = store.Scan(ctx, TableTips, "other")
	require.NoError(err)
	require.Len(got, 1)
}

func TestStoreTrackers(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(store.PutAll(ctx, TableTips, []Row{
		{Tracker: "beta", SlotIndex: 0, Rack: "a", Occupied: true},
		{Tracker: "alpha", SlotIndex: 0, Rack: "a", Occupied: true},
	}))

	trackers, err := store.Trackers(ctx, TableTips)
	require.NoError(err)
	require.Equal([]string{"alpha", "beta"}, trackers)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := Open(Config{Path: path})
	require.NoError(err)
	require.NoError(store.Put(ctx, TableTips, Row{Tracker: "deck", SlotIndex: 7, Rack: "a", Occupied: false}))
	require.NoError(store.Close())

	store = openTestStore(t, path)
	got, found, err := store.Get(ctx, TableTips, "deck", 7)
	require.NoError(err)
	require.True(found)
	require.False(got.Occupied)
}
