package tiptrack

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgretton/pyhamilton-sub000/layout"
	"github.com/dgretton/pyhamilton-sub000/ledger"
)

func openTestStore(t *testing.T, path string) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(ledger.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testRack(t *testing.T, name string) layout.Rack {
	t.Helper()
	rack, err := layout.NewDeckRack(name, 8, 12)
	require.NoError(t, err)

	return rack
}

func newTestTracker(t *testing.T, store *ledger.Store, reset bool) *Tracker {
	t.Helper()
	tracker, err := Open(context.Background(), Config{
		Store:    store,
		Table:    ledger.TableTips,
		Identity: "deck",
		Racks:    []layout.Rack{testRack(t, "tips_0001"), testRack(t, "tips_0002")},
		Reset:    reset,
	})
	require.NoError(t, err)

	return tracker
}

func TestTrackerAllocateNextDeterministic(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	require.Equal(192, tracker.Total())
	require.Equal(192, tracker.Remaining())

	slots, err := tracker.AllocateNext(ctx, 3)
	require.NoError(err)
	require.Equal([]Slot{
		{Rack: "tips_0001", Position: "A1"},
		{Rack: "tips_0001", Position: "B1"},
		{Rack: "tips_0001", Position: "C1"},
	}, slots)
	require.Equal(189, tracker.Remaining())
}

func TestTrackerRoundTrip(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	total := tracker.Total()
	for _, k := range []int{0, 1, 8, total} {
		slots, err := tracker.AllocateNext(ctx, k)
		require.NoError(err)
		require.Len(slots, k)
		require.Equal(total-k, tracker.Remaining())

		require.NoError(tracker.Restore(ctx, slots))
		require.Equal(total, tracker.Remaining())
	}
}

func TestTrackerNoDoubleAllocation(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	first, err := tracker.AllocateNext(ctx, 16)
	require.NoError(err)
	second, err := tracker.AllocateNext(ctx, 16)
	require.NoError(err)

	taken := make(map[Slot]bool)
	for _, s := range first {
		taken[s] = true
	}
	for _, s := range second {
		require.False(taken[s], "slot %s allocated twice", s)
	}
}

func TestTrackerExhaustionLeavesStateUnchanged(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	_, err := tracker.AllocateNext(ctx, tracker.Total()-2)
	require.NoError(err)
	require.Equal(2, tracker.Remaining())

	_, err = tracker.AllocateNext(ctx, 3)
	require.ErrorIs(err, ErrInsufficient)
	require.ErrorContains(err, "only 2 available; 3 requested")
	require.Equal(2, tracker.Remaining())
}

func TestTrackerAllocateWholeRack(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	// A partial allocation makes the first rack ineligible.
	_, err := tracker.AllocateNext(ctx, 1)
	require.NoError(err)

	slots, err := tracker.AllocateWholeRack(ctx)
	require.NoError(err)
	require.Len(slots, 96)
	for _, s := range slots {
		require.Equal("tips_0002", s.Rack)
	}

	_, err = tracker.AllocateWholeRack(ctx)
	require.ErrorIs(err, ErrNoRackAvailable)
}

func TestTrackerRestoreValidation(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	slots, err := tracker.AllocateNext(ctx, 2)
	require.NoError(err)

	err = tracker.Restore(ctx, []Slot{{Rack: "tips_9999", Position: "A1"}})
	require.ErrorIs(err, ErrForeignRack)

	err = tracker.Restore(ctx, []Slot{{Rack: "tips_0001", Position: "Z99"}})
	require.ErrorIs(err, ErrPositionOutOfRange)

	err = tracker.Restore(ctx, []Slot{{Rack: "tips_0001", Position: "D1"}})
	require.ErrorIs(err, ErrAlreadyAvailable)

	// One bad pair fails the whole batch without mutating anything.
	before := tracker.Remaining()
	err = tracker.Restore(ctx, []Slot{slots[0], {Rack: "tips_9999", Position: "A1"}})
	require.ErrorIs(err, ErrForeignRack)
	require.Equal(before, tracker.Remaining())

	// Duplicates within one batch count as a double restore.
	err = tracker.Restore(ctx, []Slot{slots[0], slots[0]})
	require.ErrorIs(err, ErrAlreadyAvailable)
	require.Equal(before, tracker.Remaining())

	require.NoError(tracker.Restore(ctx, slots))
	require.Equal(tracker.Total(), tracker.Remaining())
}

func TestTrackerPersistsAcrossReopen(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := ledger.Open(ledger.Config{Path: path})
	require.NoError(err)
	tracker := newTestTracker(t, store, true)

	slots, err := tracker.AllocateNext(ctx, 5)
	require.NoError(err)
	require.NoError(store.Close())

	store = openTestStore(t, path)
	tracker = newTestTracker(t, store, false)
	require.Equal(tracker.Total()-5, tracker.Remaining())

	// The reopened tracker must not hand out the already-taken slots.
	again, err := tracker.AllocateNext(ctx, 5)
	require.NoError(err)
	taken := make(map[Slot]bool)
	for _, s := range slots {
		taken[s] = true
	}
	for _, s := range again {
		require.False(taken[s], "slot %s allocated twice across restart", s)
	}
}

func TestTrackerHydrateIgnoresStaleRacks(t *testing.T) {
	require := require.New(t)
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	// Rows from a rack no longer on the deck must not affect hydration.
	require.NoError(store.PutAll(ctx, ledger.TableTips, []ledger.Row{
		{Tracker: "deck", SlotIndex: 0, Rack: "tips_0001", Occupied: false},
		{Tracker: "deck", SlotIndex: 500, Rack: "tips_gone", Occupied: false},
	}))

	tracker := newTestTracker(t, store, false)
	require.Equal(tracker.Total()-1, tracker.Remaining())
}

func TestTrackerResetAll(t *testing.T) {
	require := require.New(t)
	tracker := newTestTracker(t, openTestStore(t, ":memory:"), true)
	ctx := context.Background()

	_, err := tracker.AllocateNext(ctx, 40)
	require.NoError(err)

	require.NoError(tracker.ResetAll(ctx))
	require.Equal(tracker.Total(), tracker.Remaining())
}
