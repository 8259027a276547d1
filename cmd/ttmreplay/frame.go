package main

import (
	"os"

	"github.com/sugawarayuuta/sonnet"

	"github.com/sparsetex/ttm"
)

// Frame is one recorded call to UpdateWithSamplerFeedback.
type Frame struct {
	TextureID    uint32  `json:"textureId"`
	Timestamp    float64 `json:"timestamp"`
	Timeout      float64 `json:"timeout"`
	MipLevelBias int32   `json:"mipLevelBias"`
	// MinMipData is the raw feedback byte grid; sonnet (like encoding/json)
	// encodes/decodes a []byte field as a base64 string.
	MinMipData []byte `json:"minMipData"`
}

// Recording is the on-disk format ttmreplay consumes: one texture's shape
// plus the sequence of per-frame feedback to replay against it.
type Recording struct {
	Texture           ttm.TiledTextureDesc `json:"Texture"`
	HeapTilesCapacity uint32               `json:"HeapTilesCapacity"`
	Frames            []Frame              `json:"frames"`
}

func loadRecording(path string) (Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recording{}, err
	}
	var rec Recording
	if err := sonnet.Unmarshal(data, &rec); err != nil {
		return Recording{}, err
	}
	return rec, nil
}
