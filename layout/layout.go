// Package layout defines the boundary to deck layout resolution: the racks
// and positions that commands and the resource tracker address. Parsing of
// vendor layout files into these handles happens elsewhere; this package only
// fixes the contract those handles satisfy.
package layout

import (
	"errors"
	"fmt"
)

// ErrPositionRange indicates a slot index outside a rack's slot count.
var ErrPositionRange = errors.New("position index out of range")

// Rack is a fixed-size physical resource pool on the deck, such as a tip box.
// Every rack exposes a stable layout name, a fixed slot count, and a mapping
// from slot index to the human-readable position identifier used in logs and
// command parameters.
type Rack interface {
	// LayoutName returns the stable name of this rack in the deck layout.
	LayoutName() string
	// SlotCount returns the fixed number of slots. It never changes after
	// construction.
	SlotCount() int
	// PositionID maps a zero-based slot index to its human-readable position
	// identifier, e.g. "A1" or "37".
	PositionID(index int) (string, error)
}

// DeckRack is a grid-shaped rack addressed by well coordinates. Position ids
// run column-major, the way the instrument traverses a tip box: A1, B1, ...
// down the first column, then A2 and onward.
type DeckRack struct {
	name string
	rows int
	cols int
}

// NewDeckRack creates a grid rack with the given layout name and dimensions.
// Rows are letter-coded, so at most 26 are supported.
func NewDeckRack(name string, rows, cols int) (*DeckRack, error) {
	if name == "" {
		return nil, errors.New("rack layout name is empty")
	}
	if rows < 1 || rows > 26 {
		return nil, fmt.Errorf("rack %q rows %d out of range [1, 26]", name, rows)
	}
	if cols < 1 {
		return nil, fmt.Errorf("rack %q columns %d is not positive", name, cols)
	}

	return &DeckRack{name: name, rows: rows, cols: cols}, nil
}

func (r *DeckRack) LayoutName() string { return r.name }

func (r *DeckRack) SlotCount() int { return r.rows * r.cols }

func (r *DeckRack) PositionID(index int) (string, error) {
	if index < 0 || index >= r.SlotCount() {
		return "", fmt.Errorf("%w: %d on rack %q of %d", ErrPositionRange, index, r.name, r.SlotCount())
	}

	row := index % r.rows
	col := index / r.rows

	return fmt.Sprintf("%c%d", 'A'+row, col+1), nil
}

// LinearRack is a rack addressed by plain 1-based ordinals, used for stacked
// or bulk resources without a grid geometry.
type LinearRack struct {
	name  string
	count int
}

// NewLinearRack creates a linear rack with the given layout name and slot count.
func NewLinearRack(name string, count int) (*LinearRack, error) {
	if name == "" {
		return nil, errors.New("rack layout name is empty")
	}
	if count < 1 {
		return nil, fmt.Errorf("rack %q slot count %d is not positive", name, count)
	}

	return &LinearRack{name: name, count: count}, nil
}

func (r *LinearRack) LayoutName() string { return r.name }

func (r *LinearRack) SlotCount() int { return r.count }

func (r *LinearRack) PositionID(index int) (string, error) {
	if index < 0 || index >= r.count {
		return "", fmt.Errorf("%w: %d on rack %q of %d", ErrPositionRange, index, r.name, r.count)
	}

	return fmt.Sprintf("%d", index+1), nil
}
