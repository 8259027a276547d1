// Package feedback decodes a hardware sampler feedback MinMip byte grid
// into the set of tiles a texture currently needs resident, propagating
// each requested tile's need down to its lower-resolution mip chain.
package feedback

import (
	"github.com/sparsetex/ttm/internal/bitset"
	"github.com/sparsetex/ttm/internal/layout"
)

// unmapped marks a feedback grid cell that requested no tile (the GPU's
// MinMip sentinel byte).
const unmapped = 0xFF

// allRequestedWord is the 8-byte value of eight consecutive unmapped
// feedback cells, used to skip whole words at once.
const allRequestedWord = 0xFFFFFFFFFFFFFFFF

// Desc describes one decode pass over a MinMip byte grid.
type Desc struct {
	// MinMipData is one byte per feedback grid cell, row-major, mipLevel
	// (or 0xFF for "nothing requested").
	MinMipData []byte
	// MipLevelBias shifts every decoded mip level before lookup; it may
	// be negative (to request finer detail than requested) and is
	// clamped to mip level 0 at the low end.
	MipLevelBias int32
	// AlwaysMapPackedTiles, when true, marks the packed tile range
	// requested on every decode regardless of what else is requested.
	// When false, packed tiles are only marked requested alongside at
	// least one requested regular tile.
	AlwaysMapPackedTiles bool
}

// Decode reads desc against l and sets bits in requested: bit i set means
// tile i of l is needed. requested must already be sized to l.TotalTiles()
// tiles — Decode only clears and sets its bits, it never resizes it. The
// packed tile range is marked requested when desc.AlwaysMapPackedTiles is
// set or when any regular tile is requested this call. Decode also returns
// the lowest regular tile index observed, or false if nothing in the
// regular range was requested (the packed-only case).
func Decode(l *layout.Layout, desc Desc, requested *bitset.Set) (firstTileIndex uint32, hasFirst bool) {
	requested.Clear()

	if l.RegularMipLevels == 0 || len(desc.MinMipData) == 0 {
		if desc.AlwaysMapPackedTiles {
			markPacked(l, requested)
		}
		return 0, false
	}

	first := l.RegularTilesNum // sentinel: "no regular tile seen yet"
	feedbackTilesNum := l.FeedbackTilesX * l.FeedbackTilesY
	useBatch := feedbackTilesNum%8 == 0 && len(desc.MinMipData) >= int(feedbackTilesNum)

	for fb := uint32(0); fb < feedbackTilesNum; {
		if useBatch && fb%8 == 0 {
			if wordIsAllUnmapped(desc.MinMipData[fb : fb+8]) {
				fb += 8
				continue
			}
		}

		mipByte := desc.MinMipData[fb]
		if mipByte != unmapped {
			mip := int32(mipByte) + desc.MipLevelBias
			if mip < 0 {
				mip = 0
			}
			coord := layout.TileCoord{
				X:        (fb % l.FeedbackTilesX) / l.FeedbackGranularX >> uint32(mip),
				Y:        (fb / l.FeedbackTilesX) / l.FeedbackGranularY >> uint32(mip),
				MipLevel: uint32(mip),
			}
			tileIndex := l.TileIndex(coord)
			if tileIndex < first {
				first = tileIndex
			}
			requested.Set(int(tileIndex))
		}
		fb++
	}

	hasFirst = first != l.RegularTilesNum
	if desc.AlwaysMapPackedTiles || hasFirst {
		markPacked(l, requested)
	}

	if !hasFirst {
		return 0, false
	}

	// Propagate requested tiles down to their lower mip level so a
	// visible fine tile always keeps its coarser ancestor resident too.
	lastTileIndex := uint32(0)
	if l.RegularMipLevels > 1 {
		lastTileIndex = l.MipTilings[l.RegularMipLevels-1].FirstTileIndex
	}
	for tileIndex := first; tileIndex < lastTileIndex; tileIndex++ {
		if requested.Get(int(tileIndex)) {
			requested.Set(int(l.TileIndexToLowerMipTile[tileIndex]))
		}
	}

	return first, true
}

func markPacked(l *layout.Layout, requested *bitset.Set) {
	for i := uint32(0); i < l.PackedTilesNum; i++ {
		requested.Set(int(l.RegularTilesNum + i))
	}
}

func wordIsAllUnmapped(b []byte) bool {
	var w uint64
	for i := 0; i < 8; i++ {
		w |= uint64(b[i]) << (8 * i)
	}
	return w == allRequestedWord
}
