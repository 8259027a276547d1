package main

import (
	"image"
	"image/color"
	"image/png"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// mipColor maps a MinMip grid byte to a display color: a perceptually
// even hue ramp from coarsest (cool) to finest (warm) resident mip level,
// with the "nothing resident" sentinel (maxMip+1, written by minmip.Write
// for cells with no ancestor yet) rendered as flat gray.
func mipColor(mipLevel byte, maxMip int) color.Color {
	if int(mipLevel) > maxMip {
		return color.RGBA{R: 40, G: 40, B: 40, A: 255}
	}
	if maxMip == 0 {
		r, g, b := colorful.Hsv(200, 0.65, 0.9).RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}
	}
	t := float64(maxMip-int(mipLevel)) / float64(maxMip)
	hue := 260 - t*260 // 260 (blue, coarse) -> 0 (red, finest)
	r, g, b := colorful.Hsv(hue, 0.65, 0.9).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// renderResidencyPNG draws a tilesX x tilesY grid, one scale x scale
// pixel block per cell, upscaled with golang.org/x/image/draw so the
// output stays readable at small tile counts.
func renderResidencyPNG(path string, grid []byte, tilesX, tilesY, scale, maxMip int) error {
	small := image.NewRGBA(image.Rect(0, 0, tilesX, tilesY))
	for y := 0; y < tilesY; y++ {
		for x := 0; x < tilesX; x++ {
			small.Set(x, y, mipColor(grid[y*tilesX+x], maxMip))
		}
	}

	if scale < 1 {
		scale = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, tilesX*scale, tilesY*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), small, small.Bounds(), xdraw.Over, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}
