package renderer

import (
	"image"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// Tile represents a rectangular region of the image
type Tile struct {
	ID      int             // Unique tile identifier
	Bounds  image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	Sampler core.Sampler    // Tile-specific sampler for deterministic results
}

// NewTile creates a tile whose sampler is seeded from the base seed and id
func NewTile(id int, bounds image.Rectangle, seed int64) *Tile {
	return &Tile{
		ID:      id,
		Bounds:  bounds,
		Sampler: core.NewSeededSampler(seed + int64(id)),
	}
}

// NewTileGrid splits the image into tiles of at most tileSize pixels per side
func NewTileGrid(width, height, tileSize int, seed int64) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1), seed))
			tileID++
		}
	}

	return tiles
}
