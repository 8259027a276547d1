// Package ttm tracks which tiles of one or more sparse, tiled,
// mipmapped textures should be resident given per-frame GPU sampler
// feedback, and packs resident tiles into a set of caller-managed heaps.
//
// A Manager is driven once per frame in a fixed sequence: feed it sampler
// feedback (UpdateWithSamplerFeedback / MatchPrimaryTexture), ask it how
// many heaps it would like (GetNumDesiredHeaps), reconcile heaps
// (AddHeap / RemoveHeap), let it age out standby tiles and allocate newly
// requested ones (TrimStandbyTiles / AllocateRequestedTiles), then pull
// the resulting map/unmap work (GetTilesToMap / UpdateTilesMapping /
// GetTilesToUnmap) and refresh the GPU-visible residency grid
// (WriteMinMipData). A Manager is not safe for concurrent use — callers
// serialize these calls around their own per-frame pipeline.
package ttm

import (
	"fmt"
	"log/slog"

	"github.com/sparsetex/ttm/internal/bitset"
	"github.com/sparsetex/ttm/internal/feedback"
	"github.com/sparsetex/ttm/internal/heap"
	"github.com/sparsetex/ttm/internal/layout"
	"github.com/sparsetex/ttm/internal/lru"
	"github.com/sparsetex/ttm/internal/minmip"
	"github.com/sparsetex/ttm/internal/tilestate"
)

// textureTile identifies one tile of one texture, the shared key type for
// the package-wide requested and standby queues.
type textureTile struct {
	TextureID uint32
	TileIndex uint32
}

// textureState is the per-texture bookkeeping a Manager keeps. A nil
// entry in Manager.textures marks a freed texture id.
type textureState struct {
	descIndex                int
	allocatedUnpackedTilesNum uint32
	requestedTilesNum         uint32

	lastRequestedTime []float64
	tileAllocations   []TileAllocation
	tilesToMap        []uint32
	tilesToUnmap      []uint32

	// requestedBits is the full tile set (regular + packed) requested as
	// of the last UpdateWithSamplerFeedback/MatchPrimaryTexture call,
	// kept so this texture can act as a MatchPrimaryTexture primary.
	requestedBits bitset.Set
	// resident marks regular tiles currently Mapped or Standby, the set
	// WriteMinMipData reads from.
	resident bitset.Set

	machine *tilestate.Machine
}

// Manager is the top-level tile residency orchestrator. Use NewManager
// to construct one.
type Manager struct {
	heapTilesCapacity    uint32
	allocator            *heap.Allocator
	heapAllocator        HeapAllocator
	alwaysMapPackedTiles bool

	layouts layout.Registry

	textures []*textureState
	freelist []uint32

	requestedQueue *lru.Queue[textureTile]
	standbyQueue   *lru.Queue[textureTile]

	config        ManagerConfig
	totalTilesNum uint32
}

const tileSizeBytes = 65536

// NewManager creates a Manager. desc.HeapTilesCapacity defaults to 256
// tiles per heap when zero, matching the original tool's default.
func NewManager(desc ManagerDesc, opts ...Option) *Manager {
	if desc.HeapTilesCapacity == 0 {
		desc.HeapTilesCapacity = 256
	}

	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		heapTilesCapacity:    desc.HeapTilesCapacity,
		allocator:            heap.NewAllocator(desc.HeapTilesCapacity, tileSizeBytes),
		heapAllocator:        o.heapAllocator,
		alwaysMapPackedTiles: defaultAlwaysMapPackedTiles,
		requestedQueue:       lru.New[textureTile](),
		standbyQueue:         lru.New[textureTile](),
		config:               defaultManagerConfig(),
	}
	if o.alwaysMapPackedTiles != nil {
		m.alwaysMapPackedTiles = *o.alwaysMapPackedTiles
	}

	if o.logger != nil {
		SetLogger(o.logger)
	}
	if o.heapAllocator != nil {
		registerHeapAllocator(o.heapAllocator)
		propagateLogger(o.heapAllocator, Logger())
	}

	return m
}

// SetConfig updates the runtime-mutable configuration.
func (m *Manager) SetConfig(cfg ManagerConfig) { m.config = cfg }

func (m *Manager) layoutFor(ts *textureState) *layout.Layout { return m.layouts.At(ts.descIndex) }

func (m *Manager) texture(textureID uint32) *textureState {
	if int(textureID) >= len(m.textures) || m.textures[textureID] == nil {
		panic(fmt.Sprintf("ttm: unknown texture id %d", textureID))
	}
	return m.textures[textureID]
}

func (m *Manager) transition(textureID, tileIndex uint32, newState tilestate.State) bool {
	return m.textures[textureID].machine.Transition(tileIndex, newState)
}

// AddTiledTexture registers a new texture and returns its id. If
// alwaysMapPackedTiles is set (the default), packed tiles, if any, are
// immediately requested; they are never evicted once resident either way.
func (m *Manager) AddTiledTexture(desc TiledTextureDesc) uint32 {
	var textureID uint32
	if n := len(m.freelist); n > 0 {
		textureID = m.freelist[n-1]
		m.freelist = m.freelist[:n-1]
	} else {
		textureID = uint32(len(m.textures))
		m.textures = append(m.textures, nil)
	}

	descIndex := m.layouts.Intern(toLayoutDesc(desc))
	l := m.layouts.At(descIndex)
	total := l.TotalTiles()

	ts := &textureState{
		descIndex:         descIndex,
		requestedTilesNum: l.PackedTilesNum,
		lastRequestedTime: make([]float64, total),
		tileAllocations:   make([]TileAllocation, total),
		requestedBits:     bitset.New(int(total)),
		resident:          bitset.New(int(l.RegularTilesNum)),
	}
	ts.machine = tilestate.New(total, textureHooks{m: m, textureID: textureID})
	m.textures[textureID] = ts

	if m.alwaysMapPackedTiles {
		for i := uint32(0); i < l.PackedTilesNum; i++ {
			ts.machine.Transition(l.RegularTilesNum+i, tilestate.Requested)
		}
	}

	m.totalTilesNum += total
	Logger().Info("ttm: texture added", slog.Uint64("textureID", uint64(textureID)), slog.Uint64("totalTiles", uint64(total)))
	return textureID
}

func toLayoutDesc(d TiledTextureDesc) layout.Desc {
	levels := make([]layout.LevelDesc, len(d.TiledLevelDescs))
	for i, lv := range d.TiledLevelDescs {
		levels[i] = layout.LevelDesc{WidthInTiles: lv.WidthInTiles, HeightInTiles: lv.HeightInTiles}
	}
	return layout.Desc{
		TextureWidth:       d.TextureWidth,
		TextureHeight:      d.TextureHeight,
		TileWidth:          d.TileWidth,
		TileHeight:         d.TileHeight,
		RegularMipLevels:   levels,
		PackedMipLevelsNum: d.PackedMipLevelsNum,
		PackedTilesNum:     d.PackedTilesNum,
	}
}

// RemoveTiledTexture frees every tile allocation belonging to textureID,
// purges it from the requested and standby queues, and releases the id
// for reuse.
func (m *Manager) RemoveTiledTexture(textureID uint32) {
	ts := m.texture(textureID)
	l := m.layoutFor(ts)

	for i, alloc := range ts.tileAllocations {
		if alloc.Valid {
			m.allocator.Free(heap.Slot{HeapID: alloc.HeapID, SlotIndex: alloc.SlotIndex})
		}
		ts.machine.Reset(uint32(i))
	}
	for i := uint32(0); i < l.TotalTiles(); i++ {
		tt := textureTile{TextureID: textureID, TileIndex: i}
		m.requestedQueue.Erase(tt)
		m.standbyQueue.Erase(tt)
	}

	m.totalTilesNum -= l.TotalTiles()
	m.textures[textureID] = nil
	m.freelist = append(m.freelist, textureID)
	Logger().Info("ttm: texture removed", slog.Uint64("textureID", uint64(textureID)))
}

// UpdateWithSamplerFeedback decodes a frame's sampler feedback for
// textureID and updates its tile request state. timestamp is the
// caller's own clock (any monotonically increasing unit); timeout is in
// the same unit and controls how long an unrequested Mapped tile waits
// before moving to Standby.
func (m *Manager) UpdateWithSamplerFeedback(textureID uint32, desc SamplerFeedbackDesc, timestamp, timeout float64) {
	ts := m.texture(textureID)
	l := m.layoutFor(ts)

	ts.tilesToMap = ts.tilesToMap[:0]
	ts.tilesToUnmap = ts.tilesToUnmap[:0]

	first, hasFirst := feedback.Decode(l, feedback.Desc{
		MinMipData:           desc.MinMipData,
		MipLevelBias:         desc.MipLevelBias,
		AlwaysMapPackedTiles: m.alwaysMapPackedTiles,
	}, &ts.requestedBits)
	m.updateTiledTexture(textureID, hasFirst, first, timestamp, timeout)
}

// MatchPrimaryTexture requests, in followerID, every tile that covers the
// same texel region as a currently-requested tile in primaryID, at the
// same mip level. Follower mip levels finer than anything primaryID has
// are never marked requested by this call.
func (m *Manager) MatchPrimaryTexture(primaryID, followerID uint32, timestamp, timeout float64) {
	primary := m.texture(primaryID)
	follower := m.texture(followerID)
	primaryLayout := m.layoutFor(primary)
	followerLayout := m.layoutFor(follower)

	follower.requestedBits.Clear()
	for i := uint32(0); i < followerLayout.PackedTilesNum; i++ {
		follower.requestedBits.Set(int(followerLayout.RegularTilesNum + i))
	}

	first := followerLayout.RegularTilesNum
	hasFirst := false

	primary.requestedBits.ForEachSet(func(primaryTileIndex int) {
		coord := primaryLayout.TileIndexToCoord[primaryTileIndex]
		mip := coord.MipLevel
		if mip >= followerLayout.RegularMipLevels {
			return
		}

		pLeft := coord.X * primaryLayout.TileWidth
		pTop := coord.Y * primaryLayout.TileHeight
		pRight := pLeft + primaryLayout.TileWidth
		pBottom := pTop + primaryLayout.TileHeight

		tiling := followerLayout.MipTilings[mip]
		start := tiling.FirstTileIndex
		end := start + tiling.TilesX*tiling.TilesY
		for ft := start; ft < end; ft++ {
			fc := followerLayout.TileIndexToCoord[ft]
			fLeft := fc.X * followerLayout.TileWidth
			fTop := fc.Y * followerLayout.TileHeight
			fRight := fLeft + followerLayout.TileWidth
			fBottom := fTop + followerLayout.TileHeight

			if fLeft < pRight && fRight > pLeft && fTop < pBottom && fBottom > pTop {
				follower.requestedBits.Set(int(ft))
				if ft < first {
					first = ft
					hasFirst = true
				}
			}
		}
	})

	m.updateTiledTexture(followerID, hasFirst, first, timestamp, timeout)
}

// updateTiledTexture applies ts.requestedBits (already populated by the
// caller) against the tile state machine: newly-requested free tiles
// (regular or packed) move to Requested, standby tiles that are requested
// again move back to Mapped, and mapped tiles that have gone unrequested
// past timeout move to Standby.
func (m *Manager) updateTiledTexture(textureID uint32, hasFirst bool, firstTileIndex uint32, timestamp, timeout float64) {
	ts := m.texture(textureID)
	l := m.layoutFor(ts)

	ts.requestedTilesNum = l.PackedTilesNum
	if l.RegularMipLevels == 0 {
		return
	}
	if !hasFirst && ts.allocatedUnpackedTilesNum == 0 {
		return
	}

	for tileIndex := l.RegularTilesNum; tileIndex < l.TotalTiles(); tileIndex++ {
		if ts.requestedBits.Get(int(tileIndex)) && ts.machine.State(tileIndex) == tilestate.Free {
			m.transition(textureID, tileIndex, tilestate.Requested)
		}
	}

	for tileIndex := uint32(0); tileIndex < l.RegularTilesNum; tileIndex++ {
		if ts.requestedBits.Get(int(tileIndex)) {
			ts.lastRequestedTime[tileIndex] = timestamp
			ts.requestedTilesNum++

			switch ts.machine.State(tileIndex) {
			case tilestate.Standby:
				m.transition(textureID, tileIndex, tilestate.Mapped)
			case tilestate.Free:
				m.transition(textureID, tileIndex, tilestate.Requested)
			}
		} else if ts.machine.State(tileIndex) == tilestate.Mapped {
			if timestamp-ts.lastRequestedTime[tileIndex] >= timeout {
				m.transition(textureID, tileIndex, tilestate.Standby)
			}
		}
	}
}

// GetNumDesiredHeaps reports how many heaps would be needed to hold every
// currently requested tile across all textures, plus the configured
// standby headroom.
func (m *Manager) GetNumDesiredHeaps() uint32 {
	var numTiles uint32
	for _, ts := range m.textures {
		if ts != nil {
			numTiles += ts.requestedTilesNum
		}
	}
	numTiles += m.config.NumExtraStandbyTiles

	tilesPerHeap := m.heapTilesCapacity
	return (numTiles + tilesPerHeap - 1) / tilesPerHeap
}

// AddHeap registers a new heap with the given id. If a HeapAllocator was
// supplied via WithHeapAllocator, it is consulted first; an error from it
// aborts the call before the heap is tracked internally.
func (m *Manager) AddHeap(heapID uint32) error {
	if m.heapAllocator != nil {
		if err := m.heapAllocator.AddHeap(heapID); err != nil {
			return fmt.Errorf("%w: heap %d: %v", ErrHeapAllocationFailed, heapID, err)
		}
	}
	m.allocator.AddHeap(heapID)
	Logger().Info("ttm: heap added", slog.Uint64("heapID", uint64(heapID)))
	return nil
}

// RemoveHeap retires heapID. It panics if the heap still holds tiles.
func (m *Manager) RemoveHeap(heapID uint32) {
	m.allocator.RemoveHeap(heapID)
	if m.heapAllocator != nil {
		m.heapAllocator.RemoveHeap(heapID)
	}
	Logger().Info("ttm: heap removed", slog.Uint64("heapID", uint64(heapID)))
}

// TrimStandbyTiles evicts the oldest standby tiles until the standby
// queue is no larger than config.NumExtraStandbyTiles.
func (m *Manager) TrimStandbyTiles() {
	for uint32(m.standbyQueue.Len()) > m.config.NumExtraStandbyTiles {
		tt, ok := m.standbyQueue.Front()
		if !ok {
			break
		}
		m.transition(tt.TextureID, tt.TileIndex, tilestate.Free)
	}
}

// AllocateRequestedTiles attempts to allocate heap space for every
// outstanding requested tile, oldest request first, stopping at the
// first tile that cannot be allocated (out of heap room).
func (m *Manager) AllocateRequestedTiles() {
	for m.requestedQueue.Len() > 0 {
		tt, ok := m.requestedQueue.Front()
		if !ok {
			break
		}
		if !m.transition(tt.TextureID, tt.TileIndex, tilestate.Allocated) {
			Logger().Warn("ttm: allocation capacity exhausted", slog.Uint64("textureID", uint64(tt.TextureID)))
			break
		}
		m.requestedQueue.PopFront()
	}
}

// GetTilesToMap returns and clears the set of tiles newly allocated for
// textureID since the last call. UpdateWithSamplerFeedback for textureID
// also empties this list, so entries not fetched before it are dropped.
func (m *Manager) GetTilesToMap(textureID uint32) []uint32 {
	ts := m.texture(textureID)
	out := ts.tilesToMap
	ts.tilesToMap = nil
	return out
}

// UpdateTilesMapping transitions each of tileIndices to Mapped, after the
// caller has bound them to GPU-visible memory.
func (m *Manager) UpdateTilesMapping(textureID uint32, tileIndices []uint32) {
	for _, tileIndex := range tileIndices {
		m.transition(textureID, tileIndex, tilestate.Mapped)
	}
}

// GetTilesToUnmap returns and clears the set of tiles freed for
// textureID since the last call. UpdateWithSamplerFeedback for textureID
// also empties this list, so entries not fetched before it are dropped.
func (m *Manager) GetTilesToUnmap(textureID uint32) []uint32 {
	ts := m.texture(textureID)
	out := ts.tilesToUnmap
	ts.tilesToUnmap = nil
	return out
}

// WriteMinMipData fills data, which must be sized per
// GetTextureDesc(textureID, MinMipTexture), with textureID's current
// residency grid.
func (m *Manager) WriteMinMipData(textureID uint32, data []byte) {
	ts := m.texture(textureID)
	l := m.layoutFor(ts)
	minmip.Write(l, func(tileIndex uint32) bool { return ts.resident.Get(int(tileIndex)) }, data)
}

// DefragmentTiles moves up to numTiles movable tiles out of fragmented
// heap space, stopping early if no fragmented, movable tile remains.
func (m *Manager) DefragmentTiles(numTiles uint32) {
	for i := uint32(0); i < numTiles; i++ {
		occ, ok := m.allocator.GetFragmentedDonor(m.IsMovableTile)
		if !ok {
			break
		}
		m.transition(occ.TextureID, occ.TileIndex, tilestate.Free)
		m.transition(occ.TextureID, occ.TileIndex, tilestate.Requested)
	}
}

// GetEmptyHeaps returns the ids of heaps with no occupied slots.
func (m *Manager) GetEmptyHeaps() []uint32 { return m.allocator.EmptyHeaps() }

// GetTextureDesc describes the auxiliary texture of the given type for
// textureID. For MinMipTexture, Width and Height are the mip-0 tile grid
// size. For FeedbackTexture, Width and Height are the feedback granule
// (mip region) size in texels, not the feedback grid size, and
// MipLevelsNum is the tiled texture's total mip count.
func (m *Manager) GetTextureDesc(textureID uint32, textureType TextureType) TextureDesc {
	ts := m.texture(textureID)
	l := m.layoutFor(ts)

	switch textureType {
	case FeedbackTexture:
		return TextureDesc{
			Width:        l.TileWidth / l.FeedbackGranularX,
			Height:       l.TileHeight / l.FeedbackGranularY,
			MipLevelsNum: l.RegularMipLevels + l.PackedMipLevels,
		}
	case MinMipTexture:
		return TextureDesc{
			Width:        l.MinMip0TilesX(),
			Height:       l.MinMip0TilesY(),
			MipLevelsNum: 1,
		}
	default:
		panic(fmt.Sprintf("ttm: unknown texture type %d", textureType))
	}
}

// IsMovableTile reports whether tileIndex of textureID can currently be
// relocated by the defragmenter: it must be a regular tile in the Mapped
// or Standby state.
func (m *Manager) IsMovableTile(textureID, tileIndex uint32) bool {
	ts := m.texture(textureID)
	l := m.layoutFor(ts)
	if tileIndex >= l.RegularTilesNum {
		return false
	}
	switch ts.machine.State(tileIndex) {
	case tilestate.Mapped, tilestate.Standby:
		return true
	default:
		return false
	}
}

// TileCoordinates returns textureID's shared layout's tile coordinate
// table: index i gives tile i's (x, y, mipLevel).
func (m *Manager) TileCoordinates(textureID uint32) []TileCoord {
	ts := m.texture(textureID)
	return m.layoutFor(ts).TileIndexToCoord
}

// TileAllocations returns textureID's current per-tile allocation
// records.
func (m *Manager) TileAllocations(textureID uint32) []TileAllocation {
	return m.texture(textureID).tileAllocations
}

// GetStatistics reports the Manager's current residency totals.
func (m *Manager) GetStatistics() Statistics {
	return Statistics{
		TotalTilesNum:     m.totalTilesNum,
		AllocatedTilesNum: m.allocator.AllocatedTilesNum(),
		StandbyTilesNum:   uint32(m.standbyQueue.Len()),
		HeapFreeTilesNum:  m.allocator.FreeTilesNum(),
	}
}

// textureHooks adapts one texture's tilestate.Machine transitions onto
// its Manager: allocating/freeing heap slots, maintaining the requested
// and standby queues, and keeping the resident bitset WriteMinMipData
// reads from in sync.
type textureHooks struct {
	m         *Manager
	textureID uint32
}

func (h textureHooks) OnFree(tileIndex uint32) {
	ts := h.m.textures[h.textureID]
	alloc := ts.tileAllocations[tileIndex]
	if alloc.Valid {
		h.m.allocator.Free(heap.Slot{HeapID: alloc.HeapID, SlotIndex: alloc.SlotIndex})
	}
	ts.tileAllocations[tileIndex] = TileAllocation{}
	ts.tilesToUnmap = append(ts.tilesToUnmap, tileIndex)

	l := h.m.layoutFor(ts)
	if tileIndex < l.RegularTilesNum {
		ts.allocatedUnpackedTilesNum--
		ts.resident.Reset(int(tileIndex))
	}
}

func (h textureHooks) OnRequested(tileIndex uint32) {
	h.m.requestedQueue.PushBack(textureTile{TextureID: h.textureID, TileIndex: tileIndex})
}

func (h textureHooks) OnAllocated(tileIndex uint32) bool {
	ts := h.m.textures[h.textureID]

	if h.m.allocator.FreeTilesNum() == 0 {
		if victim, ok := h.m.standbyQueue.Front(); ok {
			h.m.transition(victim.TextureID, victim.TileIndex, tilestate.Free)
		}
	}

	slot, ok := h.m.allocator.Allocate(heap.Occupant{TextureID: h.textureID, TileIndex: tileIndex})
	if !ok {
		return false
	}

	ts.tileAllocations[tileIndex] = TileAllocation{HeapID: slot.HeapID, SlotIndex: slot.SlotIndex, Valid: true}
	ts.tilesToMap = append(ts.tilesToMap, tileIndex)

	l := h.m.layoutFor(ts)
	if tileIndex < l.RegularTilesNum {
		ts.allocatedUnpackedTilesNum++
	}
	return true
}

func (h textureHooks) OnMapped(tileIndex uint32) {
	ts := h.m.textures[h.textureID]
	l := h.m.layoutFor(ts)
	if tileIndex < l.RegularTilesNum {
		ts.resident.Set(int(tileIndex))
	}
}

func (h textureHooks) OnStandby(tileIndex uint32) {
	h.m.standbyQueue.PushBack(textureTile{TextureID: h.textureID, TileIndex: tileIndex})
	ts := h.m.textures[h.textureID]
	l := h.m.layoutFor(ts)
	if tileIndex < l.RegularTilesNum {
		ts.resident.Set(int(tileIndex))
	}
}

func (h textureHooks) OnLeaveStandby(tileIndex uint32) {
	h.m.standbyQueue.Erase(textureTile{TextureID: h.textureID, TileIndex: tileIndex})
}
