// Package heap implements the fixed-capacity, heap-packed tile slot
// allocator: first-fit insertion-order allocation across a set of
// caller-identified heaps, LIFO free-slot reuse within a heap, and
// fragmentation-donor selection for the defragmenter.
package heap

// Occupant identifies the (texture, tile) pair occupying a slot.
type Occupant struct {
	TextureID uint32
	TileIndex uint32
}

// Slot identifies an allocated tile's location: which heap, and which slot
// within it. It is a plain reference by id, never an owning pointer — heaps
// own their slots, an allocation only names one.
type Slot struct {
	HeapID    uint32
	SlotIndex uint32
}

// heapRecord tracks one fixed-capacity backing heap.
type heapRecord struct {
	id        uint32
	capacity  uint32
	freeStack []uint32   // stack of free slot indices, for LIFO locality
	used      []bool     // used[slotIndex] = occupied
	usedOrder []uint32   // ascending-maintained list of occupied slot indices
	occupancy []Occupant // occupancy[slotIndex], valid iff used[slotIndex]
}

func newHeapRecord(id, capacity uint32) *heapRecord {
	h := &heapRecord{
		id:        id,
		capacity:  capacity,
		freeStack: make([]uint32, capacity),
		used:      make([]bool, capacity),
		occupancy: make([]Occupant, capacity),
	}
	for i := uint32(0); i < capacity; i++ {
		h.freeStack[i] = i
	}
	return h
}

func (h *heapRecord) freeCount() uint32 { return uint32(len(h.freeStack)) }
func (h *heapRecord) usedCount() uint32 { return h.capacity - h.freeCount() }
func (h *heapRecord) isEmpty() bool     { return len(h.freeStack) == int(h.capacity) }

func (h *heapRecord) allocate(occ Occupant) uint32 {
	n := len(h.freeStack)
	slotIndex := h.freeStack[n-1]
	h.freeStack = h.freeStack[:n-1]
	h.used[slotIndex] = true
	h.occupancy[slotIndex] = occ
	h.usedOrder = insertSorted(h.usedOrder, slotIndex)
	return slotIndex
}

func (h *heapRecord) free(slotIndex uint32) {
	h.used[slotIndex] = false
	h.occupancy[slotIndex] = Occupant{}
	h.freeStack = append(h.freeStack, slotIndex)
	h.usedOrder = removeSorted(h.usedOrder, slotIndex)
}

func insertSorted(s []uint32, v uint32) []uint32 {
	i := 0
	for i < len(s) && s[i] < v {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeSorted(s []uint32, v uint32) []uint32 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// Allocator packs tile slots across a set of fixed-capacity heaps in
// insertion order.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	capacity       uint32 // tiles per heap
	tileSizeBytes  uint32 // reported only via statistics
	heaps          []*heapRecord
	allocatedTiles uint32
}

// NewAllocator creates an Allocator with the given per-heap tile capacity.
// tileSizeBytes is carried only for statistics reporting and has no effect
// on allocation behavior.
func NewAllocator(heapTilesCapacity, tileSizeBytes uint32) *Allocator {
	return &Allocator{capacity: heapTilesCapacity, tileSizeBytes: tileSizeBytes}
}

// TileSizeBytes returns the configured per-tile byte size, for statistics.
func (a *Allocator) TileSizeBytes() uint32 { return a.tileSizeBytes }

// AddHeap appends a fresh heap, identified by the caller-supplied heapID,
// with all capacity slots free.
func (a *Allocator) AddHeap(heapID uint32) {
	a.heaps = append(a.heaps, newHeapRecord(heapID, a.capacity))
}

// RemoveHeap detaches the heap identified by heapID. It panics if the heap
// is not empty or does not exist — removing an occupied heap would silently
// orphan live tile allocations.
func (a *Allocator) RemoveHeap(heapID uint32) {
	for i, h := range a.heaps {
		if h.id == heapID {
			if !h.isEmpty() {
				panic("heap: RemoveHeap of non-empty heap")
			}
			a.heaps = append(a.heaps[:i], a.heaps[i+1:]...)
			return
		}
	}
	panic("heap: RemoveHeap of unknown heap id")
}

// Allocate scans heaps in insertion order and places occ in the first heap
// with a free slot. It reports false if no heap has room.
func (a *Allocator) Allocate(occ Occupant) (Slot, bool) {
	for _, h := range a.heaps {
		if h.freeCount() == 0 {
			continue
		}
		slotIndex := h.allocate(occ)
		a.allocatedTiles++
		return Slot{HeapID: h.id, SlotIndex: slotIndex}, true
	}
	return Slot{}, false
}

// Free returns slot to its heap's free stack. It panics if the heap does
// not exist.
func (a *Allocator) Free(slot Slot) {
	h := a.find(slot.HeapID)
	if h == nil {
		panic("heap: Free referencing unknown heap id")
	}
	h.free(slot.SlotIndex)
	a.allocatedTiles--
}

func (a *Allocator) find(heapID uint32) *heapRecord {
	for _, h := range a.heaps {
		if h.id == heapID {
			return h
		}
	}
	return nil
}

// FreeTilesNum returns the total number of free slots across all heaps.
func (a *Allocator) FreeTilesNum() uint32 {
	var free uint32
	for _, h := range a.heaps {
		free += h.freeCount()
	}
	return free
}

// AllocatedTilesNum returns the total number of occupied slots.
func (a *Allocator) AllocatedTilesNum() uint32 { return a.allocatedTiles }

// HeapsNum returns the number of registered heaps.
func (a *Allocator) HeapsNum() int { return len(a.heaps) }

// TotalTilesNum returns the summed capacity of all registered heaps.
func (a *Allocator) TotalTilesNum() uint32 {
	return uint32(len(a.heaps)) * a.capacity
}

// EmptyHeaps returns the ids of heaps with no occupied slots, so the caller
// can recycle them.
func (a *Allocator) EmptyHeaps() []uint32 {
	var empty []uint32
	for _, h := range a.heaps {
		if h.isEmpty() {
			empty = append(empty, h.id)
		}
	}
	return empty
}

// GetFragmentedDonor finds a movable tile to relocate in order to reduce
// fragmentation.
//
// The allocator is considered fragmented when any heap before the last one
// has free slots — evictions over time leave holes in earlier heaps while
// new allocations keep landing in the last heap, so the identifiable
// pattern is free space "on the left". When fragmented, heaps are scanned
// from newest to second (the first heap is never a donor source — it's
// where defragmented tiles should land), and within each non-empty heap,
// occupants are visited in ascending slot order. The first occupant for
// which isMovable returns true is returned. GetFragmentedDonor returns
// false if the allocator isn't fragmented, has fewer than two heaps, or no
// movable occupant exists.
func (a *Allocator) GetFragmentedDonor(isMovable func(textureID, tileIndex uint32) bool) (Occupant, bool) {
	if len(a.heaps) < 2 {
		return Occupant{}, false
	}

	fragmented := false
	for i := 0; i < len(a.heaps)-1; i++ {
		if a.heaps[i].freeCount() > 0 {
			fragmented = true
			break
		}
	}
	if !fragmented {
		return Occupant{}, false
	}

	for i := len(a.heaps) - 1; i > 0; i-- {
		h := a.heaps[i]
		if h.isEmpty() {
			continue
		}
		for _, slotIndex := range h.usedOrder {
			occ := h.occupancy[slotIndex]
			if isMovable(occ.TextureID, occ.TileIndex) {
				return occ, true
			}
		}
	}
	return Occupant{}, false
}
