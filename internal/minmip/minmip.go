// Package minmip renders a texture's current residency into a MinMip
// byte grid: one byte per mip-0 tile, giving the finest mip level
// resident at that location, or the texture's regular mip count if
// nothing is resident there.
package minmip

import "github.com/sparsetex/ttm/internal/layout"

// Write fills out, which must have length l.MinMip0TilesX()*l.MinMip0TilesY(),
// with the MinMip residency grid for l. resident reports, for a regular
// tile index, whether that tile is currently Mapped or Standby — the two
// states that make a tile's data available to the GPU.
//
// Tiles are walked from the coarsest mip level down to the finest
// (descending tile index, since tile indices are assigned finest-first).
// A coarse tile stamps its whole footprint with its mip level; each finer
// tile only narrows a cell to its own (lower) mip level when the cell
// still holds exactly one level coarser than it — otherwise the chain
// between this tile and the grid cell is broken by a missing tile, and
// the coarser value is left in place to avoid a visibly patchy result.
func Write(l *layout.Layout, resident func(tileIndex uint32) bool, out []byte) {
	minMipTilesX := l.MinMip0TilesX()
	minMipTilesY := l.MinMip0TilesY()
	n := minMipTilesX * minMipTilesY
	for i := uint32(0); i < n; i++ {
		out[i] = byte(l.RegularMipLevels)
	}

	if l.RegularTilesNum == 0 {
		return
	}

	for i := l.RegularTilesNum; i > 0; i-- {
		tileIndex := i - 1
		if !resident(tileIndex) {
			continue
		}

		coord := l.TileIndexToCoord[tileIndex]
		mipLevel := coord.MipLevel
		tileSize := uint32(1) << mipLevel
		xStart := coord.X << mipLevel
		yStart := coord.Y << mipLevel

		for y := yStart; y < yStart+tileSize; y++ {
			if y >= minMipTilesY {
				continue
			}
			for x := xStart; x < xStart+tileSize; x++ {
				if x >= minMipTilesX {
					continue
				}
				idx := y*minMipTilesX + x
				if out[idx] == byte(mipLevel+1) {
					out[idx] = byte(mipLevel)
				}
			}
		}
	}
}
