package tiptrack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgretton/pyhamilton-sub000/layout"
	"github.com/dgretton/pyhamilton-sub000/ledger"
	"github.com/dgretton/pyhamilton-sub000/logger"
)

// Slot identifies one allocatable position as a (rack, position) pair.
// Position is the rack's human-readable id for the slot, e.g. "A1".
type Slot struct {
	Rack     string
	Position string
}

func (s Slot) String() string {
	return s.Rack + "/" + s.Position
}

// Config holds the parameters for opening a tracker.
type Config struct {
	// Store is the durable ledger backing this tracker. Required.
	Store *ledger.Store
	// Table selects which ledger table the tracker writes. Required.
	Table ledger.Table
	// Identity names this tracker in the ledger. Rows from other identities
	// are never read or written. Required.
	Identity string
	// Racks are the managed resource pools, in allocation order.
	Racks []layout.Rack
	// Reset discards any prior ledger rows for this identity and seeds the
	// ledger with every slot available. When false the tracker hydrates from
	// whatever the ledger already holds.
	Reset bool
	// Logger receives operational messages. Defaults to the package default
	// logger.
	Logger logger.Logger
}

// rackState is the in-memory occupancy view of one managed rack.
type rackState struct {
	rack      layout.Rack
	offset    int // global slot index of this rack's first slot
	positions []string
	posIndex  map[string]int
	available []bool
}

// Tracker manages exclusive allocation of slots across one or more fixed-size
// racks. Every mutation writes through to the ledger before the in-memory
// view advances, so a successful return is always durably recorded.
//
// A Tracker assumes single-writer access per identity. The internal mutex
// serializes calls within this process only; it does not guard against a
// second process mutating the same identity in the same ledger file.
type Tracker struct {
	mu       sync.Mutex
	store    *ledger.Store
	table    ledger.Table
	identity string
	racks    []*rackState
	byName   map[string]*rackState
	total    int
	logger   logger.Logger
}

// Open constructs a tracker over cfg.Racks. With cfg.Reset the ledger rows
// for this identity are replaced by an all-available seed; otherwise existing
// rows override the default available state, and rows naming racks the
// tracker does not manage are ignored as stale.
func Open(ctx context.Context, cfg Config) (*Tracker, error) {
	if cfg.Store == nil {
		return nil, errors.New("tiptrack: store is required")
	}
	if cfg.Identity == "" {
		return nil, errors.New("tiptrack: identity is required")
	}
	if len(cfg.Racks) == 0 {
		return nil, errors.New("tiptrack: at least one rack is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	t := &Tracker{
		store:    cfg.Store,
		table:    cfg.Table,
		identity: cfg.Identity,
		byName:   make(map[string]*rackState, len(cfg.Racks)),
		logger:   log,
	}

	offset := 0
	for _, rack := range cfg.Racks {
		name := rack.LayoutName()
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("tiptrack: duplicate rack name %q", name)
		}

		count := rack.SlotCount()
		state := &rackState{
			rack:      rack,
			offset:    offset,
			positions: make([]string, count),
			posIndex:  make(map[string]int, count),
			available: make([]bool, count),
		}
		for i := 0; i < count; i++ {
			pos, err := rack.PositionID(i)
			if err != nil {
				return nil, fmt.Errorf("tiptrack: rack %q position %d: %w", name, i, err)
			}
			state.positions[i] = pos
			state.posIndex[pos] = i
			state.available[i] = true
		}

		t.racks = append(t.racks, state)
		t.byName[name] = state
		t.total += count
		offset += count
	}

	if cfg.Reset {
		if err := t.reset(ctx); err != nil {
			return nil, err
		}
	} else if err := t.hydrate(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// reset replaces the ledger state for this identity with an all-available
// seed and marks every in-memory slot available.
func (t *Tracker) reset(ctx context.Context) error {
	if err := t.store.DeleteTracker(ctx, t.table, t.identity); err != nil {
		return err
	}

	rows := make([]ledger.Row, 0, t.total)
	for _, state := range t.racks {
		for i := range state.available {
			rows = append(rows, t.row(state, i, true))
		}
	}
	if err := t.store.PutAll(ctx, t.table, rows); err != nil {
		return err
	}

	for _, state := range t.racks {
		for i := range state.available {
			state.available[i] = true
		}
	}

	t.logger.Info("tracker reset", "identity", t.identity, "slots", t.total)

	return nil
}

// hydrate loads prior ledger rows for this identity. A row applies only when
// its rack name is managed and its slot index falls within that rack's index
// range; anything else is stale data from an earlier deck arrangement. When
// the ledger holds no rows at all, the all-available default is seeded.
func (t *Tracker) hydrate(ctx context.Context) error {
	rows, err := t.store.Scan(ctx, t.table, t.identity)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return t.reset(ctx)
	}

	applied := 0
	for _, row := range rows {
		state, ok := t.byName[row.Rack]
		if !ok {
			t.logger.Debug("ignoring ledger row for unmanaged rack",
				"identity", t.identity, "rack", row.Rack, "slot_index", row.SlotIndex)
			continue
		}
		i := row.SlotIndex - state.offset
		if i < 0 || i >= len(state.available) {
			t.logger.Debug("ignoring ledger row outside rack range",
				"identity", t.identity, "rack", row.Rack, "slot_index", row.SlotIndex)
			continue
		}
		state.available[i] = row.Occupied
		applied++
	}

	t.logger.Info("tracker hydrated",
		"identity", t.identity, "rows", len(rows), "applied", applied, "remaining", t.remaining())

	return nil
}

func (t *Tracker) row(state *rackState, i int, available bool) ledger.Row {
	return ledger.Row{
		Tracker:   t.identity,
		SlotIndex: state.offset + i,
		Rack:      state.rack.LayoutName(),
		Occupied:  available,
		Ordinal:   i,
	}
}

// AllocateNext returns the first n available slots in rack order, then
// within-rack index order, marking each unavailable. The scan order is stable
// given identical prior state, so physical positions are reconstructable from
// logs. Either all n slots are durably allocated or none is; on
// ErrInsufficient the tracker is unchanged.
func (t *Tracker) AllocateNext(ctx context.Context, n int) ([]Slot, error) {
	if n < 0 {
		return nil, fmt.Errorf("tiptrack: negative request %d", n)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	avail := t.remaining()
	if n > avail {
		return nil, fmt.Errorf("%w: only %d available; %d requested", ErrInsufficient, avail, n)
	}
	if n == 0 {
		return []Slot{}, nil
	}

	slots := make([]Slot, 0, n)
	rows := make([]ledger.Row, 0, n)
	type pick struct {
		state *rackState
		index int
	}
	picks := make([]pick, 0, n)

	for _, state := range t.racks {
		for i, ok := range state.available {
			if !ok {
				continue
			}
			slots = append(slots, Slot{Rack: state.rack.LayoutName(), Position: state.positions[i]})
			rows = append(rows, t.row(state, i, false))
			picks = append(picks, pick{state, i})
			if len(slots) == n {
				break
			}
		}
		if len(slots) == n {
			break
		}
	}

	if err := t.store.PutAll(ctx, t.table, rows); err != nil {
		return nil, fmt.Errorf("tiptrack: recording allocation: %w", err)
	}
	for _, p := range picks {
		p.state.available[p.index] = false
	}

	t.logger.Debug("allocated slots", "identity", t.identity, "count", n, "remaining", t.remaining())

	return slots, nil
}

// AllocateWholeRack finds the first managed rack whose every slot is
// available and allocates all of them, returning the rack's slots in index
// order. Fails with ErrNoRackAvailable when no rack qualifies.
func (t *Tracker) AllocateWholeRack(ctx context.Context) ([]Slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, state := range t.racks {
		whole := true
		for _, ok := range state.available {
			if !ok {
				whole = false
				break
			}
		}
		if !whole {
			continue
		}

		name := state.rack.LayoutName()
		slots := make([]Slot, len(state.available))
		rows := make([]ledger.Row, len(state.available))
		for i := range state.available {
			slots[i] = Slot{Rack: name, Position: state.positions[i]}
			rows[i] = t.row(state, i, false)
		}
		if err := t.store.PutAll(ctx, t.table, rows); err != nil {
			return nil, fmt.Errorf("tiptrack: recording allocation: %w", err)
		}
		for i := range state.available {
			state.available[i] = false
		}

		t.logger.Debug("allocated whole rack", "identity", t.identity, "rack", name, "slots", len(slots))

		return slots, nil
	}

	return nil, ErrNoRackAvailable
}

// Restore marks the given slots available again. The whole batch is validated
// before anything is written: a foreign rack, an unknown position, or a slot
// that is already available (including a duplicate within the batch) fails
// the entire call and leaves the tracker unchanged.
func (t *Tracker) Restore(ctx context.Context, slots []Slot) error {
	if len(slots) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	type pick struct {
		state *rackState
		index int
	}
	picks := make([]pick, 0, len(slots))
	seen := make(map[pick]bool, len(slots))

	for _, slot := range slots {
		state, ok := t.byName[slot.Rack]
		if !ok {
			return fmt.Errorf("%w: %q", ErrForeignRack, slot.Rack)
		}
		i, ok := state.posIndex[slot.Position]
		if !ok {
			return fmt.Errorf("%w: %q on rack %q", ErrPositionOutOfRange, slot.Position, slot.Rack)
		}
		p := pick{state, i}
		if state.available[i] || seen[p] {
			return fmt.Errorf("%w: %s", ErrAlreadyAvailable, slot)
		}
		seen[p] = true
		picks = append(picks, p)
	}

	rows := make([]ledger.Row, len(picks))
	for i, p := range picks {
		rows[i] = t.row(p.state, p.index, true)
	}
	if err := t.store.PutAll(ctx, t.table, rows); err != nil {
		return fmt.Errorf("tiptrack: recording restore: %w", err)
	}
	for _, p := range picks {
		p.state.available[p.index] = true
	}

	t.logger.Debug("restored slots", "identity", t.identity, "count", len(slots), "remaining", t.remaining())

	return nil
}

// ResetAll marks every managed slot available, overwriting any prior state.
func (t *Tracker) ResetAll(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reset(ctx)
}

// Remaining reports the number of currently available slots.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remaining()
}

// Total reports the number of managed slots across all racks.
func (t *Tracker) Total() int {
	return t.total
}

func (t *Tracker) remaining() int {
	n := 0
	for _, state := range t.racks {
		for _, ok := range state.available {
			if ok {
				n++
			}
		}
	}

	return n
}
