package main

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/google/hilbert"

	"github.com/sparsetex/ttm"
)

// printHeapReport lists every tile currently holding a heap slot for
// texID, ordered by Hilbert-curve locality across (heapID, slotIndex)
// rather than by heap/slot number — a diagnostic view for spotting
// spatially-scattered allocations. This is read-only reporting over
// TileAllocations; it does not affect GetFragmentedDonor's specified
// ascending-slot-order donor selection.
func printHeapReport(m *ttm.Manager, texID uint32) error {
	allocations := m.TileAllocations(texID)

	type entry struct {
		tileIndex uint32
		alloc     ttm.TileAllocation
		distance  int
	}

	var maxCoord uint32
	for _, a := range allocations {
		if !a.Valid {
			continue
		}
		if a.HeapID > maxCoord {
			maxCoord = a.HeapID
		}
		if a.SlotIndex > maxCoord {
			maxCoord = a.SlotIndex
		}
	}

	side := 1 << uint(bits.Len32(maxCoord))
	if side < 2 {
		side = 2
	}
	curve, err := hilbert.NewHilbert(side)
	if err != nil {
		return err
	}

	var entries []entry
	for tileIndex, a := range allocations {
		if !a.Valid {
			continue
		}
		d, err := curve.MapInverse(int(a.HeapID), int(a.SlotIndex))
		if err != nil {
			return err
		}
		entries = append(entries, entry{tileIndex: uint32(tileIndex), alloc: a, distance: d})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].distance < entries[j].distance })

	fmt.Println("tile     heap     slot     hilbertDistance")
	for _, e := range entries {
		fmt.Printf("%-8d %-8d %-8d %-8d\n", e.tileIndex, e.alloc.HeapID, e.alloc.SlotIndex, e.distance)
	}
	return nil
}
