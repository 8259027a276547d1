// Package tilestate implements the per-tile residency state machine:
// Free, Requested, Allocated, Mapped and Standby, with the fixed set of
// legal transitions between them. The machine itself holds no allocator
// or queue state — it validates transitions and invokes Hooks so the
// caller can thread the transition into its own allocator, standby
// queue and statistics.
package tilestate

import "fmt"

// State is a tile's residency state.
type State uint8

const (
	Free State = iota
	Requested
	Allocated
	Mapped
	Standby
)

func (s State) String() string {
	switch s {
	case Free:
		return "Free"
	case Requested:
		return "Requested"
	case Allocated:
		return "Allocated"
	case Mapped:
		return "Mapped"
	case Standby:
		return "Standby"
	default:
		return "Invalid"
	}
}

// Hooks receives the side effect for each transition's target state. The
// Allocated hook reports whether allocation actually succeeded: returning
// false aborts the transition and leaves the tile in its prior state,
// since running out of heap room is an expected, frequent outcome, not a
// programming error.
type Hooks interface {
	OnFree(tileIndex uint32)
	OnRequested(tileIndex uint32)
	OnAllocated(tileIndex uint32) bool
	OnMapped(tileIndex uint32)
	OnStandby(tileIndex uint32)
	OnLeaveStandby(tileIndex uint32)
}

// valid reports whether transitioning from cur to next is legal.
func valid(cur, next State) bool {
	switch cur {
	case Free:
		return next == Requested
	case Requested:
		return next == Allocated
	case Allocated:
		return next == Mapped
	case Mapped:
		return next == Free || next == Standby
	case Standby:
		return next == Free || next == Mapped
	default:
		return false
	}
}

// Machine tracks the state of every tile belonging to one texture.
//
// Machine is not safe for concurrent use.
type Machine struct {
	states []State
	hooks  Hooks
}

// New creates a Machine for numTiles tiles, all starting Free.
func New(numTiles uint32, hooks Hooks) *Machine {
	return &Machine{states: make([]State, numTiles), hooks: hooks}
}

// State returns tileIndex's current state.
func (m *Machine) State(tileIndex uint32) State { return m.states[tileIndex] }

// Transition moves tileIndex to newState, invoking the corresponding Hooks
// callback. It panics if the transition is not legal from the tile's
// current state — an invalid transition is always a programming error,
// never an expected runtime condition. It returns false, without
// panicking, only when newState is Allocated and the Allocated hook
// reports allocation failure; the tile remains in its current state.
func (m *Machine) Transition(tileIndex uint32, newState State) bool {
	cur := m.states[tileIndex]
	if !valid(cur, newState) {
		panic(fmt.Sprintf("tilestate: illegal transition for tile %d: %s -> %s", tileIndex, cur, newState))
	}

	if cur == Standby {
		m.hooks.OnLeaveStandby(tileIndex)
	}

	switch newState {
	case Free:
		m.hooks.OnFree(tileIndex)
	case Requested:
		m.hooks.OnRequested(tileIndex)
	case Allocated:
		if !m.hooks.OnAllocated(tileIndex) {
			return false
		}
	case Mapped:
		m.hooks.OnMapped(tileIndex)
	case Standby:
		m.hooks.OnStandby(tileIndex)
	}

	m.states[tileIndex] = newState
	return true
}

// Reset forces tileIndex back to Free without running any hook, for
// texture removal where the allocator and queues are being torn down
// wholesale rather than transitioned tile by tile.
func (m *Machine) Reset(tileIndex uint32) { m.states[tileIndex] = Free }

// Len returns the number of tiles tracked by the machine.
func (m *Machine) Len() int { return len(m.states) }
