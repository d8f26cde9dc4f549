package lod

import "fmt"

// Config controls quadtree subdivision behavior.
type Config struct {
	// Grid resolution of each chunk's generated mesh.
	Subdivisions int `yaml:"subdivisions"`
	// Maximum quadtree depth (0-indexed, so 9 = 10 total levels).
	MaxDepth int `yaml:"max_depth"`
	// Vertical extent used for each chunk's placement transform.
	ChunkHeight float32 `yaml:"chunk_height"`
	// A leaf at depth d splits when the viewer is closer than
	// SplitDistances[d] to its center.
	SplitDistances []float32 `yaml:"split_distances"`
	// A split chunk at depth d collapses when every descendant leaf is
	// farther than CollapseDistances[d]. These must exceed the split
	// distances to provide hysteresis.
	CollapseDistances []float32 `yaml:"collapse_distances"`
}

// DefaultConfig returns thresholds that start at 1000m and halve per level,
// with collapse at 1.5x the split distance for hysteresis.
func DefaultConfig() Config {
	return Config{
		Subdivisions:      10,
		MaxDepth:          9,
		ChunkHeight:       50,
		SplitDistances:    []float32{1000, 500, 250, 125, 62.5, 31.25, 15.6, 7.8, 3.9, 2.0},
		CollapseDistances: []float32{1500, 750, 375, 187.5, 93.75, 46.875, 23.4, 11.7, 5.85, 3.0},
	}
}

// Validate checks internal consistency. A collapse threshold at or below
// the split threshold at the same depth would let a chunk oscillate between
// split and collapsed every frame.
func (c Config) Validate() error {
	if c.Subdivisions < 1 {
		return fmt.Errorf("lod config: subdivisions %d, must be >= 1", c.Subdivisions)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("lod config: max_depth %d, must be >= 0", c.MaxDepth)
	}
	if len(c.SplitDistances) <= c.MaxDepth {
		return fmt.Errorf("lod config: %d split distances for max_depth %d", len(c.SplitDistances), c.MaxDepth)
	}
	if len(c.CollapseDistances) <= c.MaxDepth {
		return fmt.Errorf("lod config: %d collapse distances for max_depth %d", len(c.CollapseDistances), c.MaxDepth)
	}
	for d := 0; d <= c.MaxDepth; d++ {
		if c.CollapseDistances[d] <= c.SplitDistances[d] {
			return fmt.Errorf("lod config: collapse distance %v <= split distance %v at depth %d",
				c.CollapseDistances[d], c.SplitDistances[d], d)
		}
	}
	return nil
}
