// Command ttmviz renders a ttm.Manager's current MinMip residency grid to
// a PNG for visual debugging, one cell per mip-0 tile colored by its
// resident mip level. It drives the same recorded frame sequence format
// ttmreplay consumes, then renders the resulting end-of-run state.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sugawarayuuta/sonnet"

	"github.com/sparsetex/ttm"
)

// recording mirrors ttmreplay's on-disk frame-sequence format: a
// texture's shape plus the per-frame feedback to replay against it.
type recording struct {
	Texture           ttm.TiledTextureDesc `json:"Texture"`
	HeapTilesCapacity uint32               `json:"HeapTilesCapacity"`
	Frames            []frame              `json:"frames"`
}

type frame struct {
	Timestamp    float64 `json:"timestamp"`
	Timeout      float64 `json:"timeout"`
	MipLevelBias int32   `json:"mipLevelBias"`
	MinMipData   []byte  `json:"minMipData"`
}

func main() {
	framesPath := flag.String("frames", "", "Path to a recorded frame sequence (JSON), same format as ttmreplay")
	outPath := flag.String("out", "ttmviz.png", "Output PNG path for the residency grid")
	scale := flag.Int("scale", 16, "Pixels per mip-0 tile in the rendered grid")
	report := flag.Bool("report", false, "Also print a Hilbert-curve-ordered heap occupancy report")
	flag.Parse()

	if *framesPath == "" {
		log.Fatal("ttmviz: -frames is required")
	}

	data, err := os.ReadFile(*framesPath)
	if err != nil {
		log.Fatal(err)
	}
	var rec recording
	if err := sonnet.Unmarshal(data, &rec); err != nil {
		log.Fatal(err)
	}

	m := ttm.NewManager(ttm.ManagerDesc{HeapTilesCapacity: rec.HeapTilesCapacity})
	texID := m.AddTiledTexture(rec.Texture)

	var nextHeapID uint32
	for _, fr := range rec.Frames {
		m.UpdateWithSamplerFeedback(texID, ttm.SamplerFeedbackDesc{
			MinMipData:   fr.MinMipData,
			MipLevelBias: fr.MipLevelBias,
		}, fr.Timestamp, fr.Timeout)

		m.TrimStandbyTiles()
		for desired := m.GetNumDesiredHeaps(); nextHeapID < desired; nextHeapID++ {
			if err := m.AddHeap(nextHeapID); err != nil {
				log.Printf("ttmviz: AddHeap(%d): %v", nextHeapID, err)
			}
		}
		m.AllocateRequestedTiles()
		m.UpdateTilesMapping(texID, m.GetTilesToMap(texID))
		m.GetTilesToUnmap(texID)
	}

	desc := m.GetTextureDesc(texID, ttm.MinMipTexture)
	grid := make([]byte, desc.Width*desc.Height)
	m.WriteMinMipData(texID, grid)

	maxMip := maxRegularMipLevel(rec.Texture)
	if err := renderResidencyPNG(*outPath, grid, int(desc.Width), int(desc.Height), *scale, maxMip); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%dx%d tiles, scale %d)\n", *outPath, desc.Width, desc.Height, *scale)

	if *report {
		if err := printHeapReport(m, texID); err != nil {
			log.Fatal(err)
		}
	}
}

func maxRegularMipLevel(desc ttm.TiledTextureDesc) int {
	if len(desc.TiledLevelDescs) == 0 {
		return 0
	}
	return len(desc.TiledLevelDescs) - 1
}
