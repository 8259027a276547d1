package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/schollz/progressbar/v3"
	"github.com/google/subcommands"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sparsetex/ttm"
)

type replayCmd struct {
	framesPath string
	dbPath     string
}

func (c *replayCmd) Name() string     { return "replay" }
func (c *replayCmd) Synopsis() string { return "replay a recorded sampler feedback sequence through a Manager" }
func (c *replayCmd) Usage() string {
	return "ttmreplay replay -frames <path> [-db <path>]\n"
}
func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.framesPath, "frames", "", "Path to a recorded frame sequence (JSON)")
	f.StringVar(&c.dbPath, "db", "", "Optional SQLite path to persist per-frame statistics")
}

func (c *replayCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.framesPath == "" {
		log.Println("ttmreplay: -frames is required")
		return subcommands.ExitUsageError
	}

	rec, err := loadRecording(c.framesPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	var store *statsStore
	if c.dbPath != "" {
		store, err = openStatsStore(c.dbPath)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		defer store.Close()
	}

	m := ttm.NewManager(ttm.ManagerDesc{HeapTilesCapacity: rec.HeapTilesCapacity})
	texID := m.AddTiledTexture(rec.Texture)

	var nextHeapID uint32
	growHeaps := func() {
		for desired := m.GetNumDesiredHeaps(); nextHeapID < desired; nextHeapID++ {
			if err := m.AddHeap(nextHeapID); err != nil {
				log.Printf("ttmreplay: AddHeap(%d): %v", nextHeapID, err)
			}
		}
	}
	growHeaps()

	bar := progressbar.NewOptions(len(rec.Frames), progressbar.OptionShowCount(), progressbar.OptionShowIts())
	for i, frame := range rec.Frames {
		m.UpdateWithSamplerFeedback(texID, ttm.SamplerFeedbackDesc{
			MinMipData:   frame.MinMipData,
			MipLevelBias: frame.MipLevelBias,
		}, frame.Timestamp, frame.Timeout)

		m.TrimStandbyTiles()
		growHeaps()
		m.AllocateRequestedTiles()
		m.UpdateTilesMapping(texID, m.GetTilesToMap(texID))
		m.GetTilesToUnmap(texID)

		stats := m.GetStatistics()
		if store != nil {
			if err := store.record(i, stats); err != nil {
				log.Println(err)
				return subcommands.ExitFailure
			}
		}
		bar.Add(1)
	}
	fmt.Println()

	printSummary(m.GetStatistics(), len(rec.Frames))
	return subcommands.ExitSuccess
}

func printSummary(stats ttm.Statistics, numFrames int) {
	p := message.NewPrinter(language.English)
	p.Printf("replayed %d frames\n", numFrames)
	p.Printf("final residency: %d/%d tiles allocated, %d in standby, %d heap slots free\n",
		stats.AllocatedTilesNum, stats.TotalTilesNum, stats.StandbyTilesNum, stats.HeapFreeTilesNum)
}
