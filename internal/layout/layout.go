// Package layout derives and caches per-texture tile indexing: mip-to-tile
// ranges, tile-to-coordinate and tile-to-lower-mip-tile tables, and sampler
// feedback grid geometry. Layouts are value objects, deduplicated across
// textures that share identical shape by structural equality.
package layout

// TileCoord is a tile's position within the mip grid. Packed tiles use
// MipLevel == the owning layout's RegularMipLevelsNum and X == packed index.
type TileCoord struct {
	X, Y     uint32
	MipLevel uint32
}

// MipLevelTiling describes one regular mip level's tile range.
type MipLevelTiling struct {
	FirstTileIndex uint32
	TilesX, TilesY uint32
}

// LevelDesc describes one regular mip level's extent in tiles, as supplied
// by the caller when adding a texture.
type LevelDesc struct {
	WidthInTiles, HeightInTiles uint32
}

// Desc is the caller-supplied shape of a tiled texture, used to derive or
// look up a shared Layout.
type Desc struct {
	TextureWidth, TextureHeight uint32
	TileWidth, TileHeight       uint32
	RegularMipLevels            []LevelDesc
	PackedMipLevelsNum          uint32
	PackedTilesNum              uint32
}

// Layout is the shared, immutable-after-construction tile indexing for one
// texture shape. Multiple textures with structurally identical Desc values
// share a single Layout.
type Layout struct {
	RegularTilesNum   uint32
	PackedTilesNum    uint32
	RegularMipLevels  uint32
	PackedMipLevels   uint32
	TileWidth         uint32
	TileHeight        uint32
	FeedbackGranularX uint32
	FeedbackGranularY uint32
	FeedbackTilesX    uint32
	FeedbackTilesY    uint32

	MipTilings []MipLevelTiling

	// TileIndexToCoord[t] gives the coordinate of regular or packed tile t.
	TileIndexToCoord []TileCoord

	// TileIndexToLowerMipTile[t] gives, for a regular tile t at mip m, the
	// tile at mip m+1 covering the same texels, or RegularTilesNum if t is
	// on the last regular mip.
	TileIndexToLowerMipTile []uint32
}

// TotalTiles returns RegularTilesNum + PackedTilesNum.
func (l *Layout) TotalTiles() uint32 { return l.RegularTilesNum + l.PackedTilesNum }

// MinMip0TilesX/Y report the mip-0 tile grid dimensions, used to size the
// MinMip residency image. For a texture with no regular mips, both are 1
// (the single packed-tile residency entry).
func (l *Layout) MinMip0TilesX() uint32 {
	if l.RegularTilesNum == 0 {
		return 1
	}
	return l.MipTilings[0].TilesX
}

func (l *Layout) MinMip0TilesY() uint32 {
	if l.RegularTilesNum == 0 {
		return 1
	}
	return l.MipTilings[0].TilesY
}

// prevPow2 returns the largest power of two <= x, for x > 0.
func prevPow2(x uint32) uint32 {
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	return x - (x >> 1)
}

// Build derives a Layout from desc. It does not consult or populate a
// Registry — callers that want deduplication use Registry.Intern.
func Build(desc Desc) Layout {
	var l Layout
	l.RegularMipLevels = uint32(len(desc.RegularMipLevels))
	l.PackedMipLevels = desc.PackedMipLevelsNum
	l.TileWidth = desc.TileWidth
	l.TileHeight = desc.TileHeight
	l.MipTilings = make([]MipLevelTiling, l.RegularMipLevels)

	var regularTiles uint32
	for i, lvl := range desc.RegularMipLevels {
		l.MipTilings[i] = MipLevelTiling{
			FirstTileIndex: regularTiles,
			TilesX:         lvl.WidthInTiles,
			TilesY:         lvl.HeightInTiles,
		}
		regularTiles += lvl.WidthInTiles * lvl.HeightInTiles
	}
	l.RegularTilesNum = regularTiles
	if desc.PackedMipLevelsNum > 0 {
		l.PackedTilesNum = desc.PackedTilesNum
	}

	// Feedback grid geometry (spec.md §4.4): shrink the feedback granule
	// power-of-two-wise until it fits within half the texture resolution,
	// so small textures never demand a feedback grid finer than the
	// texture itself.
	halfW := desc.TextureWidth / 2
	halfH := desc.TextureHeight / 2
	fbTileW := desc.TileWidth
	fbTileH := desc.TileHeight
	for fbTileW > halfW {
		fbTileW = prevPow2(fbTileW - 1)
	}
	for fbTileH > halfH {
		fbTileH = prevPow2(fbTileH - 1)
	}
	l.FeedbackGranularX = desc.TileWidth / fbTileW
	l.FeedbackGranularY = desc.TileHeight / fbTileH
	l.FeedbackTilesX = (desc.TextureWidth-1)/fbTileW + 1
	l.FeedbackTilesY = (desc.TextureHeight-1)/fbTileH + 1

	tilesNum := l.RegularTilesNum + l.PackedTilesNum
	l.TileIndexToCoord = make([]TileCoord, tilesNum)
	l.TileIndexToLowerMipTile = make([]uint32, l.RegularTilesNum)

	tileIndex := uint32(0)
	for mip, lvl := range desc.RegularMipLevels {
		nextMip := mip + 1
		for y := uint32(0); y < lvl.HeightInTiles; y++ {
			for x := uint32(0); x < lvl.WidthInTiles; x++ {
				l.TileIndexToCoord[tileIndex] = TileCoord{X: x, Y: y, MipLevel: uint32(mip)}

				lowerX, lowerY := x>>1, y>>1
				if nextMip < len(desc.RegularMipLevels) {
					nt := l.MipTilings[nextMip]
					l.TileIndexToLowerMipTile[tileIndex] = nt.FirstTileIndex + lowerY*nt.TilesX + lowerX
				} else {
					l.TileIndexToLowerMipTile[tileIndex] = l.RegularTilesNum
				}
				tileIndex++
			}
		}
	}

	packedLevel := l.RegularMipLevels
	for i := uint32(0); i < l.PackedTilesNum; i++ {
		l.TileIndexToCoord[l.RegularTilesNum+i] = TileCoord{X: i, Y: 0, MipLevel: packedLevel}
	}

	return l
}

// TileIndex returns the dense tile index for coord within l. Coordinates at
// or past the last regular mip map to the packed pseudo-tile range's base
// index (l.RegularTilesNum); callers that need a specific packed tile must
// add the packed index themselves.
func (l *Layout) TileIndex(coord TileCoord) uint32 {
	if coord.MipLevel >= l.RegularMipLevels {
		return l.RegularTilesNum
	}
	t := l.MipTilings[coord.MipLevel]
	return t.FirstTileIndex + coord.Y*t.TilesX + coord.X
}

// Equal reports whether l and other describe structurally identical
// layouts: every scalar field through FeedbackTilesY matches, and the
// mip-level tiling tables match entry-for-entry. TileIndexToCoord and
// TileIndexToLowerMipTile are derived deterministically from the scalar
// fields and mip tilings, so they're intentionally excluded from the
// comparison (comparing them would be redundant, and they're the most
// expensive fields to compare).
func (l *Layout) Equal(other *Layout) bool {
	if l.RegularTilesNum != other.RegularTilesNum ||
		l.PackedTilesNum != other.PackedTilesNum ||
		l.RegularMipLevels != other.RegularMipLevels ||
		l.PackedMipLevels != other.PackedMipLevels ||
		l.TileWidth != other.TileWidth ||
		l.TileHeight != other.TileHeight ||
		l.FeedbackGranularX != other.FeedbackGranularX ||
		l.FeedbackGranularY != other.FeedbackGranularY ||
		l.FeedbackTilesX != other.FeedbackTilesX ||
		l.FeedbackTilesY != other.FeedbackTilesY {
		return false
	}
	if len(l.MipTilings) != len(other.MipTilings) {
		return false
	}
	for i := range l.MipTilings {
		if l.MipTilings[i] != other.MipTilings[i] {
			return false
		}
	}
	return true
}

// Registry interns Layout values so structurally-identical textures share a
// single record, per spec.md's "Deduplicated layouts" design note.
type Registry struct {
	layouts []Layout
}

// Intern returns the index of a Layout structurally equal to desc's
// derivation, building and appending a new one if none exists.
func (r *Registry) Intern(desc Desc) int {
	candidate := Build(desc)
	for i := range r.layouts {
		if r.layouts[i].Equal(&candidate) {
			return i
		}
	}
	r.layouts = append(r.layouts, candidate)
	return len(r.layouts) - 1
}

// At returns a pointer to the interned layout at index i.
func (r *Registry) At(i int) *Layout { return &r.layouts[i] }
