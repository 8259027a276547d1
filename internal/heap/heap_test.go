package heap

import "testing"

func TestAllocateFirstFit(t *testing.T) {
	a := NewAllocator(2, 65536)
	a.AddHeap(100)
	a.AddHeap(200)

	s1, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	if !ok || s1.HeapID != 100 {
		t.Fatalf("first allocation should land in heap 100, got %+v ok=%v", s1, ok)
	}
	s2, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: 1})
	if !ok || s2.HeapID != 100 {
		t.Fatalf("second allocation should still land in heap 100, got %+v ok=%v", s2, ok)
	}
	s3, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: 2})
	if !ok || s3.HeapID != 200 {
		t.Fatalf("third allocation should overflow into heap 200, got %+v ok=%v", s3, ok)
	}
}

func TestAllocateOutOfCapacity(t *testing.T) {
	a := NewAllocator(1, 65536)
	a.AddHeap(1)
	if _, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: 0}); !ok {
		t.Fatalf("expected allocation to succeed")
	}
	if _, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: 1}); ok {
		t.Fatalf("expected allocation to fail: no heaps with room")
	}
}

func TestAllocateNoHeaps(t *testing.T) {
	a := NewAllocator(4, 65536)
	if _, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: 0}); ok {
		t.Fatalf("expected allocation to fail with zero heaps")
	}
}

func TestFreeAndReallocate(t *testing.T) {
	a := NewAllocator(2, 65536)
	a.AddHeap(1)
	s, _ := a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	a.Free(s)
	if a.AllocatedTilesNum() != 0 {
		t.Fatalf("AllocatedTilesNum() = %d, want 0", a.AllocatedTilesNum())
	}
	if a.FreeTilesNum() != 2 {
		t.Fatalf("FreeTilesNum() = %d, want 2", a.FreeTilesNum())
	}
}

func TestRemoveHeapNonEmptyPanics(t *testing.T) {
	a := NewAllocator(1, 65536)
	a.AddHeap(1)
	a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic removing non-empty heap")
		}
	}()
	a.RemoveHeap(1)
}

func TestRemoveEmptyHeap(t *testing.T) {
	a := NewAllocator(1, 65536)
	a.AddHeap(1)
	a.AddHeap(2)
	a.RemoveHeap(1)
	if a.HeapsNum() != 1 {
		t.Fatalf("HeapsNum() = %d, want 1", a.HeapsNum())
	}
}

func TestEmptyHeaps(t *testing.T) {
	a := NewAllocator(1, 65536)
	a.AddHeap(1)
	a.AddHeap(2)
	s, _ := a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	empty := a.EmptyHeaps()
	if len(empty) != 1 || empty[0] != 2 {
		t.Fatalf("EmptyHeaps() = %v, want [2]", empty)
	}
	a.Free(s)
	empty = a.EmptyHeaps()
	if len(empty) != 2 {
		t.Fatalf("EmptyHeaps() = %v, want both heaps empty", empty)
	}
}

// TestGetFragmentedDonor reproduces spec.md scenario 5: two heaps of
// capacity 4, eight tiles allocated (filling both), then four tiles from
// heap 0 are freed, leaving heap 0 fragmented and heap 1 full.
func TestGetFragmentedDonor(t *testing.T) {
	a := NewAllocator(4, 65536)
	a.AddHeap(0)
	a.AddHeap(1)

	var slots []Slot
	for i := uint32(0); i < 8; i++ {
		s, ok := a.Allocate(Occupant{TextureID: 1, TileIndex: i})
		if !ok {
			t.Fatalf("allocation %d failed", i)
		}
		slots = append(slots, s)
	}

	// Free the four tiles that landed in heap 0.
	for _, s := range slots {
		if s.HeapID == 0 {
			a.Free(s)
		}
	}

	movable := func(textureID, tileIndex uint32) bool { return true }

	donor, ok := a.GetFragmentedDonor(movable)
	if !ok {
		t.Fatalf("expected a fragmented donor")
	}
	// Heap 0 is now empty (never a donor source); heap 1 is still full and
	// is the only heap the newest-to-second scan ever visits here.
	if donor.TextureID != 1 {
		t.Fatalf("unexpected donor %+v", donor)
	}
}

func TestGetFragmentedDonorNotFragmented(t *testing.T) {
	a := NewAllocator(2, 65536)
	a.AddHeap(0)
	a.AddHeap(1)
	a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	a.Allocate(Occupant{TextureID: 1, TileIndex: 1})
	// heap 0 full, heap 1 empty: not fragmented since only the LAST heap has room.
	if _, ok := a.GetFragmentedDonor(func(uint32, uint32) bool { return true }); ok {
		t.Fatalf("expected no fragmentation when only the last heap has free slots")
	}
}

func TestGetFragmentedDonorSkipsNonMovable(t *testing.T) {
	a := NewAllocator(2, 65536)
	a.AddHeap(0)
	a.AddHeap(1)
	s0, _ := a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	a.Allocate(Occupant{TextureID: 1, TileIndex: 1})
	a.Allocate(Occupant{TextureID: 1, TileIndex: 2})
	a.Free(s0) // frees a slot in heap 0, the non-last heap -> fragmented

	calls := map[uint32]bool{}
	movable := func(textureID, tileIndex uint32) bool {
		calls[tileIndex] = true
		return tileIndex == 2
	}
	donor, ok := a.GetFragmentedDonor(movable)
	if !ok || donor.TileIndex != 2 {
		t.Fatalf("GetFragmentedDonor() = %+v, %v, want tile 2", donor, ok)
	}
}

func TestGetFragmentedDonorRequiresTwoHeaps(t *testing.T) {
	a := NewAllocator(4, 65536)
	a.AddHeap(0)
	a.Allocate(Occupant{TextureID: 1, TileIndex: 0})
	if _, ok := a.GetFragmentedDonor(func(uint32, uint32) bool { return true }); ok {
		t.Fatalf("expected no donor with a single heap")
	}
}
