package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func texture1024() Desc {
	return Desc{
		TextureWidth:  1024,
		TextureHeight: 1024,
		TileWidth:     256,
		TileHeight:    256,
		RegularMipLevels: []LevelDesc{
			{WidthInTiles: 4, HeightInTiles: 4},
			{WidthInTiles: 2, HeightInTiles: 2},
			{WidthInTiles: 1, HeightInTiles: 1},
		},
		PackedMipLevelsNum: 1,
		PackedTilesNum:     1,
	}
}

func TestBuildTileCounts(t *testing.T) {
	l := Build(texture1024())
	if l.RegularTilesNum != 16+4+1 {
		t.Fatalf("RegularTilesNum = %d, want 21", l.RegularTilesNum)
	}
	if l.PackedTilesNum != 1 {
		t.Fatalf("PackedTilesNum = %d, want 1", l.PackedTilesNum)
	}
	if len(l.MipTilings) != 3 {
		t.Fatalf("len(MipTilings) = %d, want 3", len(l.MipTilings))
	}
	// Invariant: firstTileIndex[m+1] == firstTileIndex[m] + tilesX[m]*tilesY[m]
	for m := 0; m < len(l.MipTilings)-1; m++ {
		want := l.MipTilings[m].FirstTileIndex + l.MipTilings[m].TilesX*l.MipTilings[m].TilesY
		if l.MipTilings[m+1].FirstTileIndex != want {
			t.Fatalf("mip %d firstTileIndex = %d, want %d", m+1, l.MipTilings[m+1].FirstTileIndex, want)
		}
	}
}

func TestTileIndexToLowerMipTile(t *testing.T) {
	l := Build(texture1024())
	// Mip 0, tile (0,0) -> mip 1 tile (0,0).
	t0 := l.TileIndex(TileCoord{X: 0, Y: 0, MipLevel: 0})
	lower := l.TileIndexToLowerMipTile[t0]
	want := l.TileIndex(TileCoord{X: 0, Y: 0, MipLevel: 1})
	if lower != want {
		t.Fatalf("lower mip tile for mip0(0,0) = %d, want %d", lower, want)
	}
	// Last regular mip (mip 2, the single 1x1 tile) maps to RegularTilesNum.
	tLast := l.TileIndex(TileCoord{X: 0, Y: 0, MipLevel: 2})
	if l.TileIndexToLowerMipTile[tLast] != l.RegularTilesNum {
		t.Fatalf("last mip tile should point past regular range")
	}
}

func TestFeedbackGeometrySmallTexture(t *testing.T) {
	// A texture smaller than its tile size must shrink the feedback granule.
	desc := Desc{
		TextureWidth:  128,
		TextureHeight: 128,
		TileWidth:     256,
		TileHeight:    256,
		RegularMipLevels: []LevelDesc{
			{WidthInTiles: 1, HeightInTiles: 1},
		},
	}
	l := Build(desc)
	if l.FeedbackTilesX == 0 || l.FeedbackTilesY == 0 {
		t.Fatalf("feedback grid must have positive dimensions")
	}
	// fbTileW must not exceed half the texture width (64).
	fbTileW := l.TileWidth / l.FeedbackGranularX
	if fbTileW > 64 {
		t.Fatalf("feedback tile width %d exceeds half texture width", fbTileW)
	}
}

func TestEqualStructuralDedup(t *testing.T) {
	a := Build(texture1024())
	b := Build(texture1024())
	if !a.Equal(&b) {
		t.Fatalf("identical descriptors should produce structurally equal layouts")
	}
	if diff := cmp.Diff(a.MipTilings, b.MipTilings); diff != "" {
		t.Fatalf("MipTilings differ (-a +b):\n%s", diff)
	}

	desc2 := texture1024()
	desc2.TileWidth = 128
	c := Build(desc2)
	if a.Equal(&c) {
		t.Fatalf("differing tile width should not be structurally equal")
	}
}

func TestRegistryInternDeduplicates(t *testing.T) {
	var r Registry
	i1 := r.Intern(texture1024())
	i2 := r.Intern(texture1024())
	if i1 != i2 {
		t.Fatalf("Intern() of identical descs should share an index, got %d and %d", i1, i2)
	}

	desc2 := texture1024()
	desc2.TextureWidth = 2048
	desc2.TextureHeight = 2048
	i3 := r.Intern(desc2)
	if i3 == i1 {
		t.Fatalf("Intern() of a differing desc should not share the index")
	}
}

func TestNoRegularMips(t *testing.T) {
	desc := Desc{
		TextureWidth:       256,
		TextureHeight:      256,
		TileWidth:          256,
		TileHeight:         256,
		PackedMipLevelsNum: 1,
		PackedTilesNum:     3,
	}
	l := Build(desc)
	if l.RegularTilesNum != 0 {
		t.Fatalf("RegularTilesNum = %d, want 0", l.RegularTilesNum)
	}
	if l.PackedTilesNum != 3 {
		t.Fatalf("PackedTilesNum = %d, want 3", l.PackedTilesNum)
	}
	if l.MinMip0TilesX() != 1 || l.MinMip0TilesY() != 1 {
		t.Fatalf("MinMip0 dims should be 1x1 with no regular mips")
	}
	for i := uint32(0); i < 3; i++ {
		coord := l.TileIndexToCoord[i]
		if coord.MipLevel != 0 {
			t.Fatalf("packed tile %d mip level = %d, want 0 (packedLevel == regularMipLevels == 0)", i, coord.MipLevel)
		}
		if coord.X != i {
			t.Fatalf("packed tile %d x = %d, want %d", i, coord.X, i)
		}
	}
}
