package ttm

import "github.com/sparsetex/ttm/internal/layout"

// TileCoord is a tile's position within a texture's mip grid.
type TileCoord = layout.TileCoord

// LevelDesc describes one regular mip level's extent in tiles.
type LevelDesc struct {
	WidthInTiles, HeightInTiles uint32
}

// TiledTextureDesc describes a texture's shape when adding it to a Manager.
type TiledTextureDesc struct {
	TextureWidth, TextureHeight uint32
	TiledLevelDescs             []LevelDesc
	PackedMipLevelsNum          uint32
	PackedTilesNum              uint32
	TileWidth, TileHeight       uint32
}

// SamplerFeedbackDesc carries one frame's decoded hardware sampler
// feedback data for a texture.
type SamplerFeedbackDesc struct {
	// MinMipData holds one byte per feedback grid cell, row-major. A
	// value of 0xFF means nothing was sampled at that cell this frame.
	MinMipData []byte
	// MipLevelBias shifts every decoded mip level before lookup.
	MipLevelBias int32
}

// TileAllocation is a tile's current heap slot, if it has one.
type TileAllocation struct {
	HeapID    uint32
	SlotIndex uint32
	Valid     bool
}

// TextureType selects which auxiliary texture GetTextureDesc describes.
type TextureType int

const (
	// FeedbackTexture is the GPU-side sampler feedback target.
	FeedbackTexture TextureType = iota
	// MinMipTexture is the residency grid WriteMinMipData fills.
	MinMipTexture
)

// TextureDesc describes the dimensions of an auxiliary texture associated
// with a tiled texture.
type TextureDesc struct {
	Width, Height uint32
	MipLevelsNum  uint32
}

// Statistics summarizes a Manager's current tile residency state.
type Statistics struct {
	TotalTilesNum     uint32
	AllocatedTilesNum uint32
	StandbyTilesNum   uint32
	HeapFreeTilesNum  uint32
}

// ManagerDesc configures a Manager at construction time. It is immutable
// for the Manager's lifetime.
type ManagerDesc struct {
	// HeapTilesCapacity is the number of tiles each heap can hold.
	// Defaults to 256 if zero.
	HeapTilesCapacity uint32
}

// defaultAlwaysMapPackedTiles is the zero-value behavior when no
// WithAlwaysMapPackedTiles option is supplied, matching the original
// tool's default.
const defaultAlwaysMapPackedTiles = true

// ManagerConfig holds the subset of configuration that can change at
// runtime, applied via (*Manager).SetConfig.
type ManagerConfig struct {
	// NumExtraStandbyTiles is the target number of tiles to keep resident
	// in standby before TrimStandbyTiles evicts them.
	NumExtraStandbyTiles uint32
}

func defaultManagerConfig() ManagerConfig {
	return ManagerConfig{NumExtraStandbyTiles: 1000}
}
